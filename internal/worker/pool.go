package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool runs background jobs on a fixed number of workers. The query cache
// submits its fetch and refetch jobs here so an invalidation fan-out never
// spawns an unbounded number of goroutines.
type Pool struct {
	logger *zap.Logger
	count  int
	jobs   chan func(context.Context)
	wg     sync.WaitGroup
	stop   chan struct{}
}

func NewPool(logger *zap.Logger, count int) *Pool {
	return &Pool{
		logger: logger,
		count:  count,
		jobs:   make(chan func(context.Context), 64),
		stop:   make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for running jobs; queued jobs no worker picked up are dropped.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")
	close(p.stop)
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Submit queues a job. Returns false once the pool is stopped.
func (p *Pool) Submit(job func(context.Context)) bool {
	select {
	case <-p.stop:
		return false
	default:
	}

	select {
	case p.jobs <- job:
		return true
	case <-p.stop:
		return false
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.run(ctx, id, job)
		}
	}
}

func (p *Pool) run(ctx context.Context, workerID int, job func(context.Context)) {
	defer func() {
		// Паника в одном запросе не должна убивать весь пул
		if r := recover(); r != nil {
			p.logger.Error("worker panic", zap.Int("worker", workerID), zap.Any("panic", r))
		}
	}()

	job(ctx)
}
