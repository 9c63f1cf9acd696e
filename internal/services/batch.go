package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Op is one named aggregate operation inside a mutation's batch.
type Op struct {
	Name string
	Run  func(ctx context.Context) error
}

// OpResult reports the outcome of a single batch operation.
type OpResult struct {
	Name string
	Err  error
}

// runBestEffort issues every op concurrently, waits for all of them, and
// returns one result per op in input order. Nothing is rolled back and no
// failure stops the rest: create and delete tolerate partial aggregate
// failure because the primary record write already succeeded.
func runBestEffort(ctx context.Context, ops []Op) []OpResult {
	results := make([]OpResult, len(ops))
	var wg sync.WaitGroup
	for i, op := range ops {
		wg.Add(1)
		go func(i int, op Op) {
			defer wg.Done()
			results[i] = OpResult{Name: op.Name, Err: op.Run(ctx)}
		}(i, op)
	}
	wg.Wait()
	return results
}

// runFailFast issues every op concurrently and propagates the first error.
// Edit batches run through here: a failed aggregate update during an edit
// surfaces to the caller instead of being swallowed.
func runFailFast(ctx context.Context, ops []Op) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, op := range ops {
		op := op
		g.Go(func() error {
			if err := op.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", op.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
