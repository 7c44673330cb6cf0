// Package resilience provides the CLI's two robustness primitives: a
// generic bounded-attempt retry with backoff, wrapping the corpus file
// open, and a token-bucket rate limiter throttling parallel sketch
// construction.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
)

// OnAttempt is notified after every attempt Retry makes (success or
// failure), so a caller can fold per-attempt detail into its own record
// of the run instead of only seeing the final outcome. May be nil.
type OnAttempt func(attempt int, err error)

// Retry executes fn with exponential backoff and full jitter, up to
// attempts times, reporting each attempt to observe if non-nil. It stops
// early on ctx cancellation.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, observe OnAttempt, fn func() (T, error)) (T, error) {
	var zero T
	if attempts <= 0 {
		return zero, nil
	}
	cur := delay
	var lastErr error
	meter := otel.Meter("find-simdoc")
	attemptCounter, _ := meter.Int64Counter("find_simdoc_resilience_retry_attempts_total")
	successCounter, _ := meter.Int64Counter("find_simdoc_resilience_retry_success_total")
	failCounter, _ := meter.Int64Counter("find_simdoc_resilience_retry_fail_total")
	for i := 0; i < attempts; i++ {
		v, err := fn()
		attemptCounter.Add(ctx, 1)
		if observe != nil {
			observe(i+1, err)
		}
		if err == nil {
			successCounter.Add(ctx, 1)
			return v, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if cur > 60*time.Second {
			cur = 60 * time.Second
		}
		sleep := time.Duration(rand.Int63n(int64(cur) + 1))
		select {
		case <-ctx.Done():
			failCounter.Add(ctx, 1)
			return zero, ctx.Err()
		case <-time.After(sleep):
		}
		cur *= 2
	}
	failCounter.Add(ctx, 1)
	return zero, lastErr
}
