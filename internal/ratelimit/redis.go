package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisLimiter is a fixed-window limiter backed by a shared redis
// instance, so limits hold across process restarts and replicas.
type RedisLimiter struct {
	client *redis.Client
	limits Limits
}

// NewRedisLimiter creates a redis-backed limiter.
func NewRedisLimiter(client *redis.Client, limits Limits) *RedisLimiter {
	return &RedisLimiter{client: client, limits: limits}
}

// Allow implements Limiter. INCR plus a first-hit EXPIRE gives one counter
// per window; the key carries the window start so windows never bleed into
// each other.
func (l *RedisLimiter) Allow(ctx context.Context, key string, class Class) (Result, error) {
	max := l.limits.Max(class)
	now := time.Now()
	windowStart := now.Truncate(l.limits.Window)
	resetAt := windowStart.Add(l.limits.Window)

	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", key, class, windowStart.Unix())

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.limits.Window+time.Second).Err(); err != nil {
			log.Error().Err(err).Str("key", redisKey).Msg("Failed to set rate limit window expiry")
		}
	}

	res := Result{
		Limit:     max,
		ResetTime: resetAt,
	}
	if int(count) <= max {
		res.Allowed = true
		res.Remaining = max - int(count)
	}

	return res, nil
}

// Close is a no-op; the shared client is owned by the caller.
func (l *RedisLimiter) Close() error {
	return nil
}
