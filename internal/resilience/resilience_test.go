package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	var observed []int
	v, err := Retry(context.Background(), 5, time.Millisecond, func(attempt int, err error) {
		observed = append(observed, attempt)
	}, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if v != 42 {
		t.Fatalf("got %d want 42", v)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(observed) != 3 || observed[0] != 1 || observed[2] != 3 {
		t.Fatalf("expected observer called with attempts 1,2,3, got %v", observed)
	}
}

func TestRetryExhausted(t *testing.T) {
	failedAttempts := 0
	_, err := Retry(context.Background(), 3, time.Millisecond, func(attempt int, err error) {
		if err != nil {
			failedAttempts++
		}
	}, func() (int, error) {
		return 0, errors.New("always fails")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if failedAttempts != 3 {
		t.Fatalf("expected observer to see 3 failed attempts, got %d", failedAttempts)
	}
}

func TestRetryNilObserver(t *testing.T) {
	v, err := Retry(context.Background(), 2, time.Millisecond, nil, func() (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("Retry with nil observer: v=%d err=%v", v, err)
	}
}

func TestRateLimiterAllowsWithinCapacity(t *testing.T) {
	rl := NewRateLimiter(2, 0, nil)
	if !rl.Allow() || !rl.Allow() {
		t.Fatalf("expected first two tokens to be allowed")
	}
	if rl.Allow() {
		t.Fatalf("expected third token to be denied with zero refill")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 1000, nil)
	if !rl.Allow() {
		t.Fatalf("expected first token allowed")
	}
	time.Sleep(5 * time.Millisecond)
	if !rl.Allow() {
		t.Fatalf("expected token to have refilled")
	}
}
