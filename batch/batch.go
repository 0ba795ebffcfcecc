// Package batch runs independent work items through a bounded goroutine pool,
// collecting per-item results and errors so one failure never aborts the rest
// of the batch.
package batch

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
)

// Map applies fn to every item using at most limit concurrent goroutines.
// Results and errors are aligned with the input by index; a failed item
// leaves its result slot at the zero value. Panics inside fn are captured as
// that item's error. A limit below one runs the batch unbounded.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	p := pool.New()
	if limit > 0 {
		p = p.WithMaxGoroutines(limit)
	}

	for i, item := range items {
		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic processing item %d: %v", i, r)
				}
			}()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}

			results[i], errs[i] = fn(ctx, item)
		})
	}

	p.Wait()

	return results, errs
}

// FirstError returns the first non-nil error from a Map error slice, or nil.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
