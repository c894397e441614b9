// Package worker provides the bounded pool that runs extraction jobs
// detached from the HTTP request that enqueued them. A fixed number of
// workers drain a bounded queue; when the queue is full the submit fails
// immediately instead of blocking the caller.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Submit when the queue has no capacity left.
var ErrQueueFull = errors.New("worker: queue full")

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("worker: pool stopped")

// Job is one unit of background work.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed set of workers over a bounded queue.
type Pool struct {
	jobs    chan Job
	workers int

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewPool creates a pool with the given worker count and queue capacity.
// Non-positive values fall back to one worker and an unbuffered queue.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}
}

// Start launches the workers. Jobs run under a context derived from ctx;
// cancelling it stops in-flight jobs but Stop must still be called to
// drain and join the workers.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	zap.L().Info("worker pool started",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.jobs)),
	)
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		job(ctx)
	}
	zap.L().Debug("worker exiting", zap.Int("worker", id))
}

// Submit enqueues a job without blocking. Returns ErrQueueFull when the
// queue is at capacity and ErrStopped after shutdown.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new submissions, drains queued jobs, and waits for workers
// to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	zap.L().Info("worker pool stopped")
}
