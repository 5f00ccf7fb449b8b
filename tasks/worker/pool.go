package worker

import (
	"context"
	"sync"
	"time"

	"task-dispatch/logger"
)

// Pool manages a collection of workers and their lifecycle. Each worker
// competes on the same task queue through its own broker connection, so
// concurrency is simply the number of workers started.
type Pool struct {
	workers         []*Worker
	logger          *logger.Logger
	wg              sync.WaitGroup
	cancelFn        context.CancelFunc
	shutdownTimeout time.Duration
	mu              sync.RWMutex // protects cancelFn and state
}

func NewPool(workers []*Worker, lg *logger.Logger) *Pool {
	return &Pool{
		workers:         workers,
		logger:          lg,
		shutdownTimeout: 30 * time.Second,
	}
}

// Start begins all workers in the pool
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// create cancellable context for workers
	workerCtx, cancel := context.WithCancel(ctx)
	p.cancelFn = cancel

	p.logger.Info("starting worker pool", map[string]any{
		"worker_count": len(p.workers),
	})

	// start each worker in its own goroutine
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(workerCtx)
		}(w)
	}

	p.logger.Info("worker pool started successfully", map[string]any{
		"active_workers": len(p.workers),
	})
}

// Stop gracefully shuts down all workers
func (p *Pool) Stop() {
	p.mu.Lock()
	cancelFn := p.cancelFn
	p.mu.Unlock()

	p.logger.Info("stopping worker pool", map[string]any{
		"worker_count": len(p.workers),
		"timeout":      p.shutdownTimeout,
	})

	// Cancel context to signal workers to stop
	if cancelFn != nil {
		cancelFn()
	}

	// Stop all workers explicitly too
	for _, w := range p.workers {
		w.Stop()
	}

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully", map[string]any{
			"shutdown_time": "within_timeout",
		})
	case <-time.After(p.shutdownTimeout):
		p.logger.Warn("worker pool shutdown timed out", map[string]any{
			"timeout":         p.shutdownTimeout,
			"forced_shutdown": true,
		})
	}

	// Clear cancel function
	p.mu.Lock()
	p.cancelFn = nil
	p.mu.Unlock()
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return len(p.workers)
}

// SetShutdownTimeout configures how long to wait for graceful shutdown
func (p *Pool) SetShutdownTimeout(timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdownTimeout = timeout
}
