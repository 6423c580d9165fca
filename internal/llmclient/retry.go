package llmclient

import (
	"context"
	"time"
)

// RetryPolicy is a bounded retry with exponential backoff. The batch
// scheduler applies one policy uniformly to every job instead of each
// call site rolling its own.
//
// Each attempt streams into a fresh buffer, so progress observers see
// the accumulated content restart from empty when an attempt is
// retried; growth is monotonic only within a single attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries. Zero or one means no
	// retry.
	MaxAttempts int
	// BaseDelay is doubled on every failed attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy mirrors the attempt count and backoff base used
// against the completion service elsewhere in the stack.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond}
}

// Do runs fn until it succeeds, exhausts attempts, returns a
// non-retryable error, or the context ends. The last error is
// returned.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = 300 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(base * time.Duration(1<<(attempt-1))):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
