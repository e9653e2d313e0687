package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock is a DistributedLock backed by a Redis SET NX with a TTL.
type RedisLock struct {
	rdb *redis.Client
}

var _ DistributedLock = (*RedisLock)(nil)

// NewRedisLock wraps an existing Redis client.
func NewRedisLock(rdb *redis.Client) *RedisLock {
	return &RedisLock{rdb: rdb}
}

// TryLock sets key to a sentinel value only if absent, the standard
// SET NX pattern for a non-reentrant distributed lock.
func (l *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("scheduler: redis lock acquire: %w", err)
	}
	return ok, nil
}

// Unlock deletes key. It does not verify ownership; the gate's TTL bounds
// how long a crashed holder can keep the lock regardless.
func (l *RedisLock) Unlock(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("scheduler: redis lock release: %w", err)
	}
	return nil
}
