// Package ratelimit provides request rate limiting for credential
// endpoints. Limits are keyed per client IP; a redis-backed fixed window
// limiter is used when redis is configured, with an in-process fallback
// otherwise.
package ratelimit

import (
	"context"
	"time"
)

// Limit describes a rate limit: Requests per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of a limiter check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool
	// Limit is the configured number of requests per window.
	Limit int
	// Remaining is the number of requests left in the current window.
	Remaining int
	// RetryAfter is how long the caller should wait when not allowed.
	RetryAfter time.Duration
}

// Limiter checks whether a keyed request is within its rate limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// NoopLimiter allows every request.
type NoopLimiter struct{}

// Allow implements Limiter.
func (NoopLimiter) Allow(context.Context, string) (*Result, error) {
	return &Result{Allowed: true, Remaining: -1}, nil
}
