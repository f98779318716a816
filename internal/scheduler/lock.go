package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker guards a sweep so that overlapping triggers do not run it twice.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}
