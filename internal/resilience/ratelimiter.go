package resilience

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RateLimiter is a token bucket used to throttle the sketch-construction
// worker pool so a very wide -j does not overwhelm the allocator on huge
// corpora. Refill happens lazily on each Allow check based on elapsed time.
type RateLimiter struct {
	mu         sync.Mutex
	capacity   int64
	fillRate   float64
	available  float64
	lastRefill time.Time
	drops      metric.Int64Counter
}

// NewRateLimiter creates a token bucket with the given capacity and
// tokens-per-second fill rate. drops, if non-nil, is incremented once per
// denied token request; pass nil to run without that instrumentation.
func NewRateLimiter(capacity int64, fillRate float64, drops metric.Int64Counter) *RateLimiter {
	return &RateLimiter{
		capacity:   capacity,
		fillRate:   fillRate,
		available:  float64(capacity),
		lastRefill: time.Now(),
		drops:      drops,
	}
}

// Allow returns whether one token can be consumed now.
func (r *RateLimiter) Allow() bool { return r.AllowN(1) }

// AllowN attempts to consume n tokens.
func (r *RateLimiter) AllowN(n int64) bool {
	if n <= 0 {
		return true
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := now.Sub(r.lastRefill).Seconds()
	if elapsed > 0 {
		if refill := elapsed * r.fillRate; refill > 0 {
			r.available = minFloat(float64(r.capacity), r.available+refill)
			r.lastRefill = now
		}
	}

	if float64(n) <= r.available {
		r.available -= float64(n)
		return true
	}
	if r.drops != nil {
		r.drops.Add(context.Background(), n)
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
