package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/config"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestLocker_Acquire(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	locker := NewLocker(client, "lock:")

	release, err := locker.Acquire(ctx, "alwaseet", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:alwaseet"))

	_, err = locker.Acquire(ctx, "alwaseet", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	// other keys are independent
	releaseModon, err := locker.Acquire(ctx, "modon", time.Minute)
	require.NoError(t, err)
	require.NoError(t, releaseModon(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("lock:alwaseet"))

	_, err = locker.Acquire(ctx, "alwaseet", time.Minute)
	assert.NoError(t, err)
}

func TestLocker_ReleaseAfterExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	locker := NewLocker(client, "lock:")

	release, err := locker.Acquire(ctx, "alwaseet", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	// a new owner took the key, the stale release must not drop it
	_, err = locker.Acquire(ctx, "alwaseet", time.Minute)
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	assert.True(t, mr.Exists("lock:alwaseet"))
}

func TestNotifier_PublishSubscribe(t *testing.T) {
	_, client := newTestRedis(t)
	notifier := NewNotifier(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- notifier.Subscribe(ctx, LocationsInvalidateChannel, func(message string) {
			received <- message
		})
	}()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(context.Background(), LocationsInvalidateChannel).Result()
		return err == nil && n[LocationsInvalidateChannel] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, notifier.Publish(context.Background(), LocationsInvalidateChannel, "modon"))

	select {
	case msg := <-received:
		assert.Equal(t, "modon", msg)
	case <-time.After(time.Second):
		t.Fatal("message not received")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	var cfg config.Cache
	cfg.Type = RedisTypeSingle
	cfg.Redis.Address = mr.Addr()
	cfg.Redis.DB = 2

	client, err := NewRedis(cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	v, err := mr.DB(2).Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestNewRedis_Errors(t *testing.T) {
	var cfg config.Cache
	cfg.Type = "memcached"
	_, err := NewRedis(cfg)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg.Type = RedisTypeSingle
	cfg.Redis.Address = addr
	cfg.Timeout = 100 * time.Millisecond
	_, err = NewRedis(cfg)
	assert.ErrorContains(t, err, "redis ping failed")
}
