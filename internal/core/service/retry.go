package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/videorental/rental-lifecycle/internal/core/domain"
)

const (
	defaultMaxAttempts  = 2
	defaultRetryDelay   = 20 * time.Millisecond
	defaultJitterFactor = 0.3
)

// retryConfig holds the retry settings for storage faults.
type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	// attemptTimeout bounds each attempt; zero leaves the caller's deadline alone.
	attemptTimeout time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultRetryDelay,
		jitterFactor: defaultJitterFactor,
	}
}

// retryable reports whether err is a storage fault worth another attempt.
// Business outcomes and invariant violations always fail fast.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrUnavailable)
}

// withRetry runs fn, retrying ErrUnavailable up to maxAttempts in total.
func (s *RentalService) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < s.retry.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.retry.baseDelay
			jitter := rand.Float64() * float64(delay) * s.retry.jitterFactor //nolint:gosec // jitter only
			s.metrics.RetryAttempted(op)
			s.log.Warn().Err(lastErr).Str("op", op).Int("attempt", attempt+1).Msg("retrying after storage fault")

			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return lastErr
			}
		}

		lastErr = s.attempt(ctx, fn)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (s *RentalService) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.retry.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.retry.attemptTimeout)
		defer cancel()
	}

	err := fn(ctx)
	if err != nil && isContextErr(err) && !errors.Is(err, domain.ErrUnavailable) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
