package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deltacron/authgate/internal/observability"
)

// keyPrefix namespaces limiter keys in redis.
const keyPrefix = "authgate:ratelimit:"

// RedisLimiter implements a fixed window limiter on redis. Counters are
// shared across instances, so the limit holds for the whole deployment.
// Redis failures fail open: an unreachable redis must not lock out logins.
type RedisLimiter struct {
	client   redis.UniversalClient
	limit    Limit
	logger   observability.Logger
	failOpen bool
}

// RedisLimiterOption is a functional option for configuring the limiter.
type RedisLimiterOption func(*RedisLimiter)

// WithRedisLimiterLogger sets the logger.
func WithRedisLimiterLogger(logger observability.Logger) RedisLimiterOption {
	return func(l *RedisLimiter) {
		l.logger = logger
	}
}

// WithFailClosed makes redis failures reject requests instead of allowing
// them.
func WithFailClosed() RedisLimiterOption {
	return func(l *RedisLimiter) {
		l.failOpen = false
	}
}

// NewRedisLimiter creates a redis-backed fixed window limiter.
func NewRedisLimiter(client redis.UniversalClient, limit Limit, opts ...RedisLimiterOption) *RedisLimiter {
	l := &RedisLimiter{
		client:   client,
		limit:    limit,
		logger:   observability.NopLogger(),
		failOpen: true,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Allow implements Limiter using INCR with a windowed key. The key embeds
// the window start, so expiry only has to outlive the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	windowStart := time.Now().Truncate(l.limit.Window)
	redisKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.limit.Window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter redis error",
			observability.String("key", key),
			observability.Error(err),
		)
		if l.failOpen {
			return &Result{Allowed: true, Limit: l.limit.Requests, Remaining: -1}, nil
		}
		return nil, err
	}

	count := int(incr.Val())
	remaining := l.limit.Requests - count
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   count <= l.limit.Requests,
		Limit:     l.limit.Requests,
		Remaining: remaining,
	}
	if !result.Allowed {
		result.RetryAfter = time.Until(windowStart.Add(l.limit.Window))
		if result.RetryAfter < 0 {
			result.RetryAfter = 0
		}
	}

	return result, nil
}
