package interpreter

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs independent tasks with bounded parallelism. The engine
// uses it for the versions of a recursive stratum, which write disjoint
// working relations or serialise on the relation lock.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool
// workerCount: number of worker goroutines (0 = use NumCPU)
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// Workers returns the parallelism bound
func (p *WorkerPool) Workers() int { return p.workerCount }

// Execute runs every task and waits for all of them. The first failure
// cancels the context handed to the remaining tasks and is returned.
func (p *WorkerPool) Execute(ctx context.Context, tasks []func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerCount)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := task(gctx); err != nil {
				return fmt.Errorf("parallel execution failed at index %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
