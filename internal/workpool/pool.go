// Package workpool runs a function over a slice with a fixed number of
// concurrent workers.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the worker count used by both pipeline stages unless
// configured otherwise.
const DefaultLimit = 3

// Map applies fn to every item using at most limit goroutines and returns the
// results in input order. fn reports failures inside R; the pool itself never
// fails, so one item cannot cancel its siblings. Items not yet started when
// ctx is cancelled are skipped and leave the zero value of R in their slot.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
