package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/qquiche/ir/pkg/errors"
)

// WithTimeout runs fn under a deadline derived from ctx. A deadline hit maps
// to ErrTimeout so callers can translate it to a 503.
func WithTimeout(ctx context.Context, name string, d time.Duration, fn func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(tctx) }()

	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if tctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s exceeded %s: %w", name, d, apperrors.ErrTimeout)
		}
		return tctx.Err()
	}
}
