package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout calls fn with a context that expires after timeout and waits
// for it to return; fn must honour ctx. A deadline error caused by this
// timeout, rather than by the parent context, is annotated with name and
// the limit. A non-positive timeout calls fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out after %v: %w", name, timeout, errors.Join(err, context.DeadlineExceeded))
	}
	return err
}
