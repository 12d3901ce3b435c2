package pool

import (
	"context"
	"sync"
)

// WorkerPool runs submitted jobs in the background with at most maxWorkers
// of them active at once. Submit never blocks the caller.
type WorkerPool struct {
	ctx context.Context
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(ctx context.Context, maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		ctx: ctx,
		sem: make(chan struct{}, maxWorkers),
	}
}

// Submit queues job. If the pool context ends before a slot frees up, job is
// still run with the cancelled context so it can record its own outcome.
func (p *WorkerPool) Submit(job func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-p.ctx.Done():
		}
		job(p.ctx)
	}()
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
