// Package retry provides bounded retry with exponential backoff and jitter.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialDelay seeds the exponential backoff.
	InitialDelay time.Duration
	// MaxDelay caps each computed delay.
	MaxDelay time.Duration
	// ShouldRetry decides whether a failure is retried. Nil retries everything.
	ShouldRetry func(error) bool
	// Operation names the work for logging.
	Operation string
	// OnAttempt, when set, is invoked with each failed attempt before sleeping.
	OnAttempt func(attempt int, err error)
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Operation == "" {
		p.Operation = "operation"
	}
	return p
}

// Backoff returns the sleep before attempt+1, given the 1-based attempt that
// just failed: min(maxDelay, initialDelay * 2^(attempt-1) * (0.5 + rand[0,1))).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.normalized()
	if attempt <= 0 {
		attempt = 1
	}

	delay := float64(p.InitialDelay) * float64(int64(1)<<(attempt-1))
	delay *= 0.5 + rand.Float64()
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Do runs op, retrying failures per the policy. The final error is returned
// unchanged once attempts are exhausted or ShouldRetry declines.
func Do(ctx context.Context, policy Policy, op func() error) error {
	_, err := DoValue(ctx, policy, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// DoValue runs op and passes its result through untouched on success.
func DoValue[T any](ctx context.Context, policy Policy, op func() (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		value, err := op()
		if err == nil {
			return value, nil
		}
		lastErr = err

		slog.Error("retryable operation failed",
			slog.String("operation", policy.Operation),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", policy.MaxAttempts),
			slog.Any("error", err),
		)
		if policy.OnAttempt != nil {
			policy.OnAttempt(attempt, err)
		}

		if attempt == policy.MaxAttempts {
			break
		}
		if policy.ShouldRetry != nil && !policy.ShouldRetry(err) {
			break
		}

		delay := policy.Backoff(attempt)
		slog.Debug("retrying",
			slog.String("operation", policy.Operation),
			slog.Duration("delay", delay),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
