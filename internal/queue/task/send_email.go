package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tajer-app/locations/internal/domain"
)

const (
	SendEmailTaskName  = "locations:sendEmail"
	SendEmailQueueName = "emails"
)

type SyncFailedEmail struct {
	ProgressID   uuid.UUID      `json:"progress_id"`
	Partner      domain.Partner `json:"partner"`
	TriggeredBy  string         `json:"triggered_by"`
	StartedAt    time.Time      `json:"started_at"`
	ErrorMessage string         `json:"error_message"`
}

func NewSyncFailedEmailTask(data SyncFailedEmail) (*asynq.Task, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		SendEmailTaskName,
		payload,
		asynq.MaxRetry(5),
		asynq.Queue(SendEmailQueueName),
	), nil
}
