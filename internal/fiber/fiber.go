// Package fiber provides the cooperative-parallelism collaborator contract
// that demo firmware is built on: a data-parallel parallel_execute(fn, ctx,
// n) primitive and a barrier_wait join point. The real hardware fiber
// scheduler this stands in for is out of scope (spec.md §1 names it an
// external collaborator); this package is a goroutine-pool reference
// implementation of that contract so demo code has something to run
// against. internal/render.RenderContext does not use it; it fans out
// with errgroup directly.
package fiber

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Func is one unit of data-parallel work: given the shared ctx and an
// index in [0,n), do work for that index.
type Func func(ctx any, index int)

// Pool runs ParallelExecute calls across a bounded number of goroutines,
// mirroring the original firmware's fixed-size worker thread pool
// (utils.cpp's parallel_execute helper) rather than spawning one goroutine
// per index unconditionally.
type Pool struct {
	workers int
}

// NewPool returns a Pool that fans work out across workers goroutines at a
// time. workers <= 0 sets no limit: every index gets its own goroutine at
// once.
func NewPool(workers int) *Pool {
	return &Pool{workers: workers}
}

// ParallelExecute invokes fn(ctx, i) for every i in [0,n), and returns once
// all have completed. This is the renderer's only suspension point per
// spec.md §5 ("Suspension points... only at parallel_execute boundaries").
func (p *Pool) ParallelExecute(ctx any, n int, fn Func) {
	if n <= 0 {
		return
	}
	g, _ := errgroup.WithContext(context.Background())
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// BarrierWait is a no-op in this reference implementation: ParallelExecute
// already blocks until every index has completed, so there is no separate
// join point to express. It exists so demo firmware written against the
// parallel_execute/barrier_wait pair (the collaborator contract named in
// spec.md §1) compiles unchanged against this package.
func BarrierWait() {}
