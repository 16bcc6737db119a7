package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/worker"

	"github.com/hibiken/asynq"
)

type locationSyncProcessor struct {
	workers *worker.Workers
}

func NewLocationSyncProcessor(workers *worker.Workers) *locationSyncProcessor {
	return &locationSyncProcessor{
		workers: workers,
	}
}

func (p *locationSyncProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var data task.LocationSync
	err := json.Unmarshal(t.Payload(), &data)
	if err != nil {
		return fmt.Errorf("process location sync task json unmarshal failed: %w: %w", err, asynq.SkipRetry)
	}

	if err = p.workers.LocationSync.Run(ctx, data); err != nil {
		return fmt.Errorf("location sync of %s failed: %w", data.Partner, err)
	}

	return nil
}
