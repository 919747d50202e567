// Package purge implements cache purge backends for asset invalidation.
package purge

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when the object behind a path does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Purger purges the cached copies of one asset path.
type Purger interface {
	Purge(ctx context.Context, path string) error
}

// Func adapts a function to Purger.
type Func func(ctx context.Context, path string) error

// Purge calls f.
func (f Func) Purge(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Chain runs every purger in order and joins their errors. All backends are
// attempted even when an earlier one fails, so a single stale layer does not
// hide the others.
func Chain(purgers ...Purger) Purger {
	return Func(func(ctx context.Context, path string) error {
		var errs []error
		for _, p := range purgers {
			if p == nil {
				continue
			}
			if err := p.Purge(ctx, path); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
