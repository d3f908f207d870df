package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter implements a per-key token bucket limiter in process
// memory. Used when no redis is configured; limits then apply per
// instance.
type MemoryLimiter struct {
	limit    Limit
	mu       sync.Mutex
	buckets  map[string]*memoryBucket
	lastSeen map[string]time.Time
	maxIdle  time.Duration
}

type memoryBucket struct {
	limiter *rate.Limiter
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(limit Limit) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		buckets:  make(map[string]*memoryBucket),
		lastSeen: make(map[string]time.Time),
		maxIdle:  10 * limit.Window,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdleLocked()

	bucket, ok := l.buckets[key]
	if !ok {
		perSecond := rate.Limit(float64(l.limit.Requests) / l.limit.Window.Seconds())
		bucket = &memoryBucket{
			limiter: rate.NewLimiter(perSecond, l.limit.Requests),
		}
		l.buckets[key] = bucket
	}
	l.lastSeen[key] = time.Now()

	if bucket.limiter.Allow() {
		return &Result{
			Allowed:   true,
			Limit:     l.limit.Requests,
			Remaining: int(bucket.limiter.Tokens()),
		}, nil
	}

	return &Result{
		Allowed:    false,
		Limit:      l.limit.Requests,
		Remaining:  0,
		RetryAfter: l.limit.Window / time.Duration(l.limit.Requests),
	}, nil
}

// evictIdleLocked drops buckets that have not been touched recently so
// the map cannot grow without bound.
func (l *MemoryLimiter) evictIdleLocked() {
	if len(l.buckets) < 10000 {
		return
	}
	cutoff := time.Now().Add(-l.maxIdle)
	for key, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastSeen, key)
		}
	}
}
