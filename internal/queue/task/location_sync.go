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
	LocationSyncTaskName  = "locations:sync"
	LocationSyncQueueName = "locations"

	ScheduledSyncTaskName = "locations:scheduledSync"
)

type LocationSync struct {
	ProgressID  uuid.UUID      `json:"progress_id"`
	Partner     domain.Partner `json:"partner"`
	Token       string         `json:"token"`
	TriggeredBy string         `json:"triggered_by"`
}

// NewLocationSyncTask builds the sync job of one progress record. The task id
// is the progress id so the job can be found and cancelled by it. Failed syncs
// are not retried, a new run has to be triggered.
func NewLocationSyncTask(data LocationSync, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		LocationSyncTaskName,
		payload,
		asynq.TaskID(data.ProgressID.String()),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Queue(LocationSyncQueueName),
	), nil
}

type ScheduledSync struct {
	Partner domain.Partner `json:"partner"`
}

// NewScheduledSyncTask is registered with the scheduler, its handler goes
// through the same trigger as the api.
func NewScheduledSyncTask(partner domain.Partner) (*asynq.Task, error) {
	payload, err := json.Marshal(ScheduledSync{Partner: partner})
	if err != nil {
		return nil, fmt.Errorf("json data marshal failed: %w", err)
	}

	return asynq.NewTask(
		ScheduledSyncTaskName,
		payload,
		asynq.MaxRetry(0),
		asynq.Queue(LocationSyncQueueName),
	), nil
}
