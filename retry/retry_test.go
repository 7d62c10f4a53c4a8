package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Operation:    "test",
	}
}

func TestDoSuccessPassesValueThrough(t *testing.T) {
	got, err := DoValue(context.Background(), fastPolicy(), func() (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("value = %q, want ok", got)
	}
}

func TestDoExhaustionReturnsFinalError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		return errBoom
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("error identity lost: %v", err)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoShouldRetryStopsEarly(t *testing.T) {
	policy := fastPolicy()
	policy.ShouldRetry = func(error) bool { return false }

	calls := 0
	err := Do(context.Background(), policy, func() error {
		calls++
		return errBoom
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("error identity lost: %v", err)
	}
}

func TestDoReportsFailedAttempts(t *testing.T) {
	var attempts []int
	policy := fastPolicy()
	policy.OnAttempt = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), policy, func() error { return errBoom })
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Fatalf("attempts reported = %v, want [1 2 3]", attempts)
	}
}

func TestDoContextCancelledDuringSleep(t *testing.T) {
	policy := fastPolicy()
	policy.InitialDelay = time.Hour
	policy.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, policy, func() error { return errBoom })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestBackoffCapped(t *testing.T) {
	policy := Policy{
		MaxAttempts:  3,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     10000 * time.Millisecond,
	}

	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 200; i++ {
			if d := policy.Backoff(attempt); d > policy.MaxDelay {
				t.Fatalf("backoff(%d) = %v exceeds max %v", attempt, d, policy.MaxDelay)
			}
		}
	}
}

func TestBackoffWithinJitterWindow(t *testing.T) {
	policy := Policy{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Hour,
	}

	// Attempt 2 has a deterministic exponential value of 200ms, so the jitter
	// window is [100ms, 300ms).
	for i := 0; i < 200; i++ {
		d := policy.Backoff(2)
		if d < 100*time.Millisecond || d >= 300*time.Millisecond {
			t.Fatalf("backoff(2) = %v outside [100ms, 300ms)", d)
		}
	}
}
