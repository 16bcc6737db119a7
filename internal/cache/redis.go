package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tajer-app/locations/internal/config"
)

const (
	RedisTypeSingle  = "redis"
	RedisTypeCluster = "redisCluster"
	pingTimeout      = time.Millisecond * 1500
	defaultTimeout   = time.Second
)

// NewRedis connects to a single node or a cluster and pings it. The client
// backs the sync locks and the cache invalidation channel.
func NewRedis(cfg config.Cache) (redis.UniversalClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var client redis.UniversalClient
	switch cfg.Type {
	case RedisTypeSingle:
		client = redis.NewClient(&redis.Options{
			Addr:            cfg.Redis.Address,
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			PoolSize:        cfg.Redis.PoolSize,
			ConnMaxIdleTime: 170 * time.Second,
			DialTimeout:     timeout,
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
		})
	case RedisTypeCluster:
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           cfg.RedisCluster.Addresses,
			Password:        cfg.RedisCluster.Password,
			PoolSize:        cfg.RedisCluster.PoolSize,
			ConnMaxLifetime: 15 * time.Minute,
			DialTimeout:     timeout,
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
		})
	default:
		return nil, fmt.Errorf("unknown redis type %q", cfg.Type)
	}

	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func ping(client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
