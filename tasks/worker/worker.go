package worker

import (
	"context"
	"encoding/json"
	"sync"

	"task-dispatch/logger"
	"task-dispatch/tasks"
	"task-dispatch/tasks/broker"
)

// Worker consumes task envelopes one at a time, executes the embedded
// command, and publishes a result envelope before acknowledging the task.
//
// The publish-then-ack ordering is the reliability contract of the whole
// system: a crash after execution but before the result is durably published
// leaves the task unacknowledged, so the broker redelivers it and some worker
// re-executes it. Duplicate execution is possible under crashes; result loss
// is not.
type Worker struct {
	id          int
	taskQueue   broker.Queue
	resultQueue broker.Queue
	executor    Executor
	logger      *logger.Logger
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func NewWorker(id int, taskQueue, resultQueue broker.Queue, executor Executor, lg *logger.Logger) *Worker {
	return &Worker{
		id:          id,
		taskQueue:   taskQueue,
		resultQueue: resultQueue,
		executor:    executor,
		logger:      lg,
		stopCh:      make(chan struct{}),
		stopOnce:    sync.Once{},
	}
}

// Start begins worker's processing loop
func (w *Worker) Start(ctx context.Context) {
	w.logger.Worker(w.id, "worker starting")

	defer w.logger.Worker(w.id, "worker stopped")

	for {
		select {
		case <-ctx.Done():
			w.logger.Worker(w.id, "worker stopping due to context cancellation")
			return

		case <-w.stopCh:
			w.logger.Worker(w.id, "worker stopping")
			return

		default:
			// process next task (blocking)
			w.processNextTask(ctx)
		}
	}
}

// Stop signals the worker to stop gracefully
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *Worker) processNextTask(ctx context.Context) {
	// The broker delivers at most one unacknowledged task to this worker,
	// so a slow command is natural backpressure.
	delivery, err := w.taskQueue.Consume(ctx)
	if err != nil {
		// Check if context was cancelled (normal shutdown)
		if ctx.Err() != nil {
			return
		}

		w.logger.Error("failed to consume task", map[string]any{
			"worker_id": w.id,
			"error":     err.Error(),
		})
		return
	}

	env, err := tasks.DecodeTaskEnvelope(delivery.Body)
	if err != nil {
		// A malformed body has no task_id to correlate a failure result to.
		// Ack it so it doesn't loop through redelivery forever.
		w.logger.Error("discarding malformed task message", map[string]any{
			"worker_id":  w.id,
			"message_id": delivery.ID,
			"error":      err.Error(),
		})
		if ackErr := w.taskQueue.Ack(ctx, delivery); ackErr != nil {
			w.logger.Error("failed to ack malformed task message", map[string]any{
				"worker_id":  w.id,
				"message_id": delivery.ID,
				"error":      ackErr.Error(),
			})
		}
		return
	}

	w.logger.Task(env.TaskID, "worker executing task", map[string]any{
		"worker_id": w.id,
	})

	outcome := w.executor.Execute(ctx, env.Definition)

	result := &tasks.ResultEnvelope{
		TaskID: env.TaskID,
		Status: tasks.ResultSuccess,
		Output: outcome.Output,
		Log:    outcome.Log,
	}
	if !outcome.Success {
		result.Status = tasks.ResultFailure
	}

	if err := w.publishResult(ctx, result); err != nil {
		// Leave the task unacknowledged: the broker will redeliver it and
		// the work will be redone, but the result is never silently lost.
		w.logger.Task(env.TaskID, "failed to publish result, leaving task unacknowledged", map[string]any{
			"worker_id": w.id,
			"error":     err.Error(),
		})
		return
	}

	if err := w.taskQueue.Ack(ctx, delivery); err != nil {
		w.logger.Task(env.TaskID, "failed to ack task after result publish", map[string]any{
			"worker_id": w.id,
			"error":     err.Error(),
		})
		return
	}

	w.logger.Task(env.TaskID, "task executed", map[string]any{
		"worker_id":   w.id,
		"status":      string(result.Status),
		"output_size": len(result.Output),
	})
}

func (w *Worker) publishResult(ctx context.Context, result *tasks.ResultEnvelope) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return w.resultQueue.Publish(ctx, body)
}
