package client

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/tajer-app/locations/internal/cache"
	"github.com/tajer-app/locations/internal/config"
)

// Enqueuer is the part of *asynq.Client used to schedule jobs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector is the part of *asynq.Inspector used to stop jobs.
type Inspector interface {
	CancelProcessing(id string) error
	DeleteTask(queue, id string) error
}

func New(cfg config.Cache) *asynq.Client {
	return asynq.NewClient(RedisOptions(cfg))
}

func NewInspector(cfg config.Cache) *asynq.Inspector {
	return asynq.NewInspector(RedisOptions(cfg))
}

func RedisOptions(cfg config.Cache) asynq.RedisConnOpt {
	var opts asynq.RedisConnOpt
	if cfg.Type == cache.RedisTypeCluster {
		opts = asynq.RedisClusterClientOpt{Addrs: cfg.RedisCluster.Addresses, Password: cfg.RedisCluster.Password}
	} else {
		opts = asynq.RedisClientOpt{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	}
	return opts
}
