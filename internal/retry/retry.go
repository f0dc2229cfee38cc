// Package retry provides a reusable bounded-retry policy with
// exponential backoff for calls to external inference endpoints.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
)

// Policy describes how a call is retried. Retryable decides whether an
// error is worth another attempt; when nil, DefaultRetryable is used.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64
	Retryable   func(error) bool
}

// DefaultPolicy matches the provider call sites: 3 attempts, 1s initial
// delay, doubling.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: time.Second, Backoff: 2.0}
}

// DefaultRetryable treats timeouts and temporary network failures as
// retryable. Anything else (malformed request, auth failure) is not.
func DefaultRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Do runs fn up to MaxAttempts times, sleeping with exponential backoff
// between attempts. Context cancellation aborts the wait. The last
// error is returned when all attempts fail or the error is not
// retryable.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Backoff <= 1 {
		p.Backoff = 2.0
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	delay := p.Delay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == p.MaxAttempts {
			break
		}

		logger.Warn("retrying after failure",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Backoff)
	}

	return zero, lastErr
}
