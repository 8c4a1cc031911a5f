package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// WithTimeout runs fn under a deadline of the given length. fn must return
// once its context ends. When the deadline is what ended it, the error
// wraps both apperrors.ErrTimeout and fn's own error, so serving code maps
// it to 504 and callers can still match context.DeadlineExceeded. A
// non-positive timeout runs fn under ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	cause := fmt.Errorf("%s: %w (limit %v)", name, apperrors.ErrTimeout, timeout)
	tctx, cancel := context.WithTimeoutCause(ctx, timeout, cause)
	defer cancel()

	err := fn(tctx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(context.Cause(tctx), apperrors.ErrTimeout) {
		return fmt.Errorf("%w: %w", cause, err)
	}
	return err
}
