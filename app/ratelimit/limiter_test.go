package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireFirstRequestNoWait(t *testing.T) {
	limiter := NewLimiter(time.Second, 0)

	start := time.Now()
	if err := limiter.Acquire(context.Background(), "example.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("First acquire should not wait, took %v", elapsed)
	}
}

func TestAcquireEnforcesMinimumGap(t *testing.T) {
	base := 100 * time.Millisecond
	jitter := 0.2
	limiter := NewLimiter(base, jitter)

	ctx := context.Background()
	if err := limiter.Acquire(ctx, "example.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	first := time.Now()
	if err := limiter.Acquire(ctx, "example.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	gap := time.Since(first)

	minGap := time.Duration(float64(base) * (1 - jitter))
	if gap < minGap {
		t.Errorf("Gap between grants was %v, expected at least %v", gap, minGap)
	}
}

func TestAcquireIndependentDomainsDoNotBlock(t *testing.T) {
	limiter := NewLimiter(500*time.Millisecond, 0)
	ctx := context.Background()

	// Prime both domains so a second acquire on either would wait.
	if err := limiter.Acquire(ctx, "a.example.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, domain := range []string{"b.example.com", "c.example.com"} {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			if err := limiter.Acquire(ctx, d); err != nil {
				t.Errorf("Expected no error for %s, got: %v", d, err)
			}
		}(domain)
	}
	wg.Wait()

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Unrelated domains should proceed immediately, took %v", elapsed)
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	limiter := NewLimiter(5*time.Second, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx, "example.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	err := limiter.Acquire(ctx, "example.com")
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got: %v", err)
	}
}

func TestFailureBackoffAndDecay(t *testing.T) {
	base := time.Second
	limiter := NewLimiter(base, 0)

	limiter.ReportFailure("example.com")
	if got := limiter.Interval("example.com"); got != 2*base {
		t.Errorf("Expected interval %v after one failure, got %v", 2*base, got)
	}

	// Backoff is capped at 8x base.
	for i := 0; i < 10; i++ {
		limiter.ReportFailure("example.com")
	}
	if got := limiter.Interval("example.com"); got != 8*base {
		t.Errorf("Expected capped interval %v, got %v", 8*base, got)
	}

	// Three consecutive successes halve the multiplier.
	for i := 0; i < 3; i++ {
		limiter.ReportSuccess("example.com")
	}
	if got := limiter.Interval("example.com"); got != 4*base {
		t.Errorf("Expected decayed interval %v, got %v", 4*base, got)
	}

	// A failure resets the success streak.
	limiter.ReportSuccess("example.com")
	limiter.ReportSuccess("example.com")
	limiter.ReportFailure("example.com")
	if got := limiter.Interval("example.com"); got != 8*base {
		t.Errorf("Expected interval %v after streak reset, got %v", 8*base, got)
	}
}
