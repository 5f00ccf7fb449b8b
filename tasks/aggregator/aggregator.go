package aggregator

import (
	"context"
	"sync"

	"task-dispatch/logger"
	"task-dispatch/tasks"
	"task-dispatch/tasks/broker"
)

// Aggregator drains the result queue into an in-memory index keyed by
// task id and answers point lookups against it.
//
// The index is process-local and never persisted: a restart loses every
// accumulated result. Entries are never evicted; a duplicate result for the
// same id (possible only under crash-redelivery) overwrites the previous
// entry, so the index holds exactly one entry per executed task either way.
type Aggregator struct {
	queue    broker.Queue
	logger   *logger.Logger
	mu       sync.RWMutex
	results  map[string]*tasks.ResultEnvelope
	onResult func(*tasks.ResultEnvelope)
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(queue broker.Queue, lg *logger.Logger) *Aggregator {
	return &Aggregator{
		queue:   queue,
		logger:  lg,
		results: make(map[string]*tasks.ResultEnvelope),
		stopCh:  make(chan struct{}),
	}
}

// OnResult registers a hook invoked after each result is indexed.
// Must be called before Start.
func (a *Aggregator) OnResult(fn func(*tasks.ResultEnvelope)) {
	a.onResult = fn
}

// Start runs the continuous consume loop until the context is cancelled or
// Stop is called.
func (a *Aggregator) Start(ctx context.Context) {
	a.logger.Info("aggregator starting")

	defer a.logger.Info("aggregator stopped")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("aggregator stopping due to context cancellation")
			return

		case <-a.stopCh:
			a.logger.Info("aggregator stopping")
			return

		default:
			// process next result (blocking)
			a.processNextResult(ctx)
		}
	}
}

// Stop signals the aggregator to stop gracefully
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
}

// GetResult looks up the result for a task id. Absence means either the task
// has not completed yet or the id never existed; this layer cannot tell the
// two apart.
func (a *Aggregator) GetResult(taskID string) (*tasks.ResultEnvelope, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result, ok := a.results[taskID]
	if !ok {
		return nil, false
	}

	copied := *result
	return &copied, true
}

// ResultCount returns the number of indexed results.
func (a *Aggregator) ResultCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.results)
}

func (a *Aggregator) processNextResult(ctx context.Context) {
	delivery, err := a.queue.Consume(ctx)
	if err != nil {
		// Check if context was cancelled (normal shutdown)
		if ctx.Err() != nil {
			return
		}

		a.logger.Error("failed to consume result", map[string]any{
			"error": err.Error(),
		})
		return
	}

	env, err := tasks.DecodeResultEnvelope(delivery.Body)
	if err != nil {
		a.logger.Error("discarding malformed result message", map[string]any{
			"message_id": delivery.ID,
			"error":      err.Error(),
		})
		if ackErr := a.queue.Ack(ctx, delivery); ackErr != nil {
			a.logger.Error("failed to ack malformed result message", map[string]any{
				"message_id": delivery.ID,
				"error":      ackErr.Error(),
			})
		}
		return
	}

	// Index before acking: an unindexed-but-acked result would be lost.
	a.mu.Lock()
	a.results[env.TaskID] = env
	a.mu.Unlock()

	if a.onResult != nil {
		a.onResult(env)
	}

	if err := a.queue.Ack(ctx, delivery); err != nil {
		a.logger.Task(env.TaskID, "failed to ack result message", map[string]any{
			"error": err.Error(),
		})
		return
	}

	a.logger.Task(env.TaskID, "result indexed", map[string]any{
		"status": string(env.Status),
	})
}
