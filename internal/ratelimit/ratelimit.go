// Package ratelimit bounds how often a caller may use a paid or remote
// resource, counting requests per key in fixed one-minute windows.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// staleAfter is how long an idle key is remembered.
const staleAfter = 10 * time.Minute

// Limiter provides rate limiting functionality
type Limiter struct {
	mu      sync.Mutex
	callers map[string]*callerInfo
	now     func() time.Time

	requestsPerMinute int
	rejected          atomic.Int64
}

type callerInfo struct {
	windowStart time.Time
	lastRequest time.Time
	requests    int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 20,
	}
}

// NewLimiter creates a new rate limiter. Stale keys are dropped by
// CleanExpired, usually from a cache.Manager sweep.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	return &Limiter{
		callers:           make(map[string]*callerInfo),
		now:               time.Now,
		requestsPerMinute: config.RequestsPerMinute,
	}
}

// Allow checks if a request for key should be allowed
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	caller, exists := rl.callers[key]
	if !exists || now.Sub(caller.windowStart) >= time.Minute {
		rl.callers[key] = &callerInfo{
			windowStart: now,
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	caller.lastRequest = now
	if caller.requests >= rl.requestsPerMinute {
		rl.rejected.Add(1)
		return false
	}
	caller.requests++
	return true
}

// CleanExpired removes keys idle for more than ten minutes.
func (rl *Limiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleAfter)
	removed := 0
	for key, caller := range rl.callers {
		if caller.lastRequest.Before(cutoff) {
			delete(rl.callers, key)
			removed++
		}
	}
	return removed
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	Rejected    int64
	ActiveCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	active := int64(len(rl.callers))
	rl.mu.Unlock()

	return Metrics{
		Rejected:    rl.rejected.Load(),
		ActiveCount: active,
	}
}
