package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
)

// WithTimeout runs fn under a context that expires after timeout. A call
// that outlives its budget returns an error matching both
// apperrors.ErrTimeout and context.DeadlineExceeded; fn keeps running in
// the background until it observes the cancelled context. A non-positive
// timeout calls fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, apperrors.ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(context.Cause(ctx), apperrors.ErrTimeout) {
			return timeoutError(name, timeout)
		}
		return err
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), apperrors.ErrTimeout) {
			return timeoutError(name, timeout)
		}
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
}

func timeoutError(name string, limit time.Duration) error {
	return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, limit, context.DeadlineExceeded)
}
