package infra

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockNotObtained is returned when another worker currently holds the key.
var ErrLockNotObtained = errors.New("lock held by another request")

// Locker hands out short-lived distributed locks backed by Redis. A nil
// *Locker grants every lock immediately.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker returns a Locker on rdb. Without a client every lock is granted.
func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	l := &Locker{ttl: ttl}
	if rdb != nil {
		l.client = redislock.New(rdb)
	}
	return l
}

// Obtain takes the lock for key without waiting. The returned release func
// must be called once the protected work is done.
func (l *Locker) Obtain(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("locker: release failed")
		}
	}, nil
}
