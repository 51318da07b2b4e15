package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachPartial runs fn for every item with at most limit calls in flight and
// returns the per-item errors, index-aligned with items. Unlike a plain errgroup
// it never cancels siblings: one failed item does not stop the others.
//
//	errs := ForEachPartial(ctx, 4, ids, func(ctx context.Context, id string) error {
//	    return store.RecordUsage(ctx, id, now)
//	})
func ForEachPartial[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) []error {
	errs := make([]error, len(items))
	if len(items) == 0 {
		return errs
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		g.Go(func() error {
			errs[i] = fn(ctx, item)
			return nil
		})
	}

	_ = g.Wait()

	return errs
}
