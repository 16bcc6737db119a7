package asynqserver

import (
	"fmt"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/queue/processor"
	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/worker"
)

func New(cfg *config.Config, workers *worker.Workers, trigger processor.SyncTrigger) (*asynq.Server, *asynq.ServeMux) {
	mux, queues := getQueues(cfg, workers, trigger)

	concurrency := cfg.Sync.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	srv := asynq.NewServer(
		client.RedisOptions(cfg.Cache),
		asynq.Config{
			Concurrency:     concurrency,
			LogLevel:        asynq.ErrorLevel,
			Queues:          queues,
			ShutdownTimeout: 30 * time.Second,
		},
	)

	return srv, mux
}

// NewScheduler registers one periodic sync per partner that has a scheduled
// token. It returns nil when no schedule is configured.
func NewScheduler(cfg *config.Config) (*asynq.Scheduler, error) {
	if cfg.Sync.Schedule == "" || len(cfg.Sync.ScheduledTokens) == 0 {
		return nil, nil
	}

	scheduler := asynq.NewScheduler(client.RedisOptions(cfg.Cache), &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.ErrorLevel,
	})

	partners := make([]string, 0, len(cfg.Sync.ScheduledTokens))
	for partner := range cfg.Sync.ScheduledTokens {
		partners = append(partners, partner)
	}
	sort.Strings(partners)

	for _, partner := range partners {
		t, err := task.NewScheduledSyncTask(domain.Partner(partner).Normalize())
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(cfg.Sync.Schedule, t); err != nil {
			return nil, fmt.Errorf("register scheduled sync for %s failed: %w", partner, err)
		}
	}

	return scheduler, nil
}

func getQueues(cfg *config.Config, workers *worker.Workers, trigger processor.SyncTrigger) (*asynq.ServeMux, map[string]int) {
	mux := asynq.NewServeMux()
	mux.Handle(task.LocationSyncTaskName, processor.NewLocationSyncProcessor(workers))
	mux.Handle(task.ScheduledSyncTaskName, processor.NewScheduledSyncProcessor(trigger, cfg.Sync.ScheduledTokens, cfg.Sync.ScheduledBy))
	mux.Handle(task.SendEmailTaskName, processor.NewSendEmailProcessor(workers))
	queues := map[string]int{
		task.LocationSyncQueueName: 3,
		task.SendEmailQueueName:    1,
	}
	return mux, queues
}
