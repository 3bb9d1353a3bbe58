package dispatch

import (
	"context"
	"errors"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/logx"
)

// RetryConfig describes bounded retry behavior for persistence failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// withRetry retries fn on persistence failures only. Validation, not-found
// and conflict results are final: conflicts are normal races, not faults.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Retry.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == s.cfg.Retry.MaxAttempts || !isRetryable(err) {
			break
		}

		delay := backoff(s.cfg.Retry.BaseDelay, s.cfg.Retry.MaxDelay, attempt)
		s.logger.Warn("dispatch retry",
			logx.String("op", op),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Any("err", err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return lastErr
}

// isRetryable treats every error as a transient persistence failure except
// the structured domain outcomes.
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, apperr.ErrInvalid),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// backoff computes the retry delay
func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << (attempt - 1)
	if max > 0 && d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
