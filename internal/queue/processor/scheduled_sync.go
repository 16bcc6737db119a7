package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/service"
	"github.com/tajer-app/locations/pkg/logger"
)

// SyncTrigger starts or joins a partner sync.
type SyncTrigger interface {
	Trigger(ctx context.Context, input service.TriggerSyncInput) (*domain.SyncProgress, bool, error)
}

type scheduledSyncProcessor struct {
	trigger     SyncTrigger
	tokens      map[string]string
	triggeredBy string
}

// NewScheduledSyncProcessor turns scheduler ticks into regular sync triggers
// using the partner tokens configured for unattended runs.
func NewScheduledSyncProcessor(trigger SyncTrigger, tokens map[string]string, triggeredBy string) *scheduledSyncProcessor {
	return &scheduledSyncProcessor{
		trigger:     trigger,
		tokens:      tokens,
		triggeredBy: triggeredBy,
	}
}

func (p *scheduledSyncProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var data task.ScheduledSync
	if err := json.Unmarshal(t.Payload(), &data); err != nil {
		return fmt.Errorf("process scheduled sync task json unmarshal failed: %w: %w", err, asynq.SkipRetry)
	}

	partner := data.Partner.Normalize()
	token := p.tokens[partner.String()]
	if token == "" {
		return fmt.Errorf("no scheduled token for partner %s: %w", partner, asynq.SkipRetry)
	}

	progress, joined, err := p.trigger.Trigger(ctx, service.TriggerSyncInput{
		Partner:     partner,
		Token:       token,
		TriggeredBy: p.triggeredBy,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPartner) {
			return fmt.Errorf("scheduled sync trigger failed: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("scheduled sync trigger failed: %w", err)
	}

	logger.Info("scheduled sync triggered",
		zap.String("partner", partner.String()),
		zap.String("progress_id", progress.ID.String()),
		zap.Bool("joined", joined),
	)

	return nil
}
