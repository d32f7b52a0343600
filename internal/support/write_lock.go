package support

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultWriteLockTTL   = 10 * time.Second
	DefaultWriteLockWait  = 5 * time.Second
	writeLockRetryDelay   = 25 * time.Millisecond
	writeLockReleaseTimer = 2 * time.Second
)

var (
	ErrWriteLockTimeout = errors.New("timed out waiting for write lock")

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

// RedisWriteLock serialises writers across instances that share one redis.
// The key expires after TTL so a crashed holder cannot wedge other writers.
type RedisWriteLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisWriteLock(client *redis.Client, ttl, wait time.Duration) *RedisWriteLock {
	if ttl <= 0 {
		ttl = DefaultWriteLockTTL
	}
	if wait <= 0 {
		wait = DefaultWriteLockWait
	}
	return &RedisWriteLock{client: client, ttl: ttl, wait: wait}
}

// Lock blocks until key is held or the wait budget runs out. The returned
// function releases the lock and is safe to call more than once.
func (l *RedisWriteLock) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("support: write lock has no redis client")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if ok {
			break
		}

		if time.Now().After(deadline) {
			return nil, ErrWriteLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(writeLockRetryDelay):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := l.release(key, token); err != nil {
			log.Warn("write lock: release failed", "key", key, "error", err)
		}
	}, nil
}

func (l *RedisWriteLock) release(key, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeLockReleaseTimer)
	defer cancel()

	_, err := releaseScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
