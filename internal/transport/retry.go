package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// OpenWithRetry calls open with exponential backoff until it succeeds, ctx
// is done, or timeout elapses. Errors wrapped with backoff.Permanent stop the
// retries immediately.
func OpenWithRetry[T any](ctx context.Context, timeout time.Duration, open func() (T, error)) (T, error) {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         2 * time.Second,
	}
	b.Reset()

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	}
	return backoff.Retry(ctx, backoff.Operation[T](open), opts...)
}
