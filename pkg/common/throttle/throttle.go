package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a keyed rolling-window counter backed by Redis. The window
// starts on the first hit for a key and the counter expires with it, so no
// background sweep is needed.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, err
		}
	} else {
		// A crash between INCR and EXPIRE leaves a counter with no TTL
		// that would throttle the key forever. Re-arm it.
		ttl, err := l.client.TTL(ctx, redisKey).Result()
		if err != nil {
			return false, err
		}
		if ttl < 0 {
			if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
				return false, err
			}
		}
	}

	return count <= int64(l.limit), nil
}

// Lockout tracks verification failures per key and trips a cooldown lock once
// the threshold is reached. While locked, attempts must be rejected without
// consulting the underlying record.
type Lockout struct {
	client    *redis.Client
	prefix    string
	threshold int
	cooldown  time.Duration
}

func NewLockout(client *redis.Client, prefix string, threshold int, cooldown time.Duration) *Lockout {
	return &Lockout{client: client, prefix: prefix, threshold: threshold, cooldown: cooldown}
}

func (l *Lockout) lockKey(key string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, key)
}

func (l *Lockout) failKey(key string) string {
	return fmt.Sprintf("%s:fail:%s", l.prefix, key)
}

func (l *Lockout) Locked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.lockKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordFailure increments the failure counter and reports whether this
// failure tripped the lock.
func (l *Lockout) RecordFailure(ctx context.Context, key string) (bool, error) {
	failures, err := l.client.Incr(ctx, l.failKey(key)).Result()
	if err != nil {
		return false, err
	}
	if failures == 1 {
		if err := l.client.Expire(ctx, l.failKey(key), l.cooldown).Err(); err != nil {
			return false, err
		}
	}

	if failures < int64(l.threshold) {
		return false, nil
	}

	if err := l.client.Set(ctx, l.lockKey(key), failures, l.cooldown).Err(); err != nil {
		return true, err
	}
	return true, nil
}

// Clear resets the failure counter after a successful verification.
func (l *Lockout) Clear(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.failKey(key)).Err()
}
