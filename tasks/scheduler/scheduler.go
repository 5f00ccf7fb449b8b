package scheduler

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"task-dispatch/errors"
	"task-dispatch/logger"
	"task-dispatch/tasks"
	"task-dispatch/tasks/broker"
	"task-dispatch/tasks/store"
)

// Scheduler assigns identity to tasks and durably hands them off to the
// broker. It is fire-and-forget: ScheduleTask returns as soon as the broker
// accepts the publish, long before any worker has executed anything.
type Scheduler struct {
	queue  broker.Queue
	store  store.TaskStore
	logger *logger.Logger
}

// New constructs a scheduler over the given task queue and record store.
func New(queue broker.Queue, taskStore store.TaskStore, lg *logger.Logger) *Scheduler {
	return &Scheduler{
		queue:  queue,
		store:  taskStore,
		logger: lg,
	}
}

// ScheduleTask generates a fresh task_id, assembles the full envelope, and
// publishes it with persistence. Every successfully returned id corresponds
// to exactly one published envelope; no guarantee of consumption or
// completion is made at this layer.
func (s *Scheduler) ScheduleTask(ctx context.Context, def tasks.Definition, priority int, dependencies []string) (string, error) {
	if err := def.Validate(); err != nil {
		return "", errors.NewValidationError("invalid task definition", map[string]any{
			"error": err.Error(),
		})
	}

	if priority == 0 {
		priority = tasks.DefaultPriority
	}

	env := &tasks.TaskEnvelope{
		TaskID:       uuid.New().String(),
		Definition:   def,
		Priority:     priority,
		Dependencies: dependencies,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return "", errors.NewInternalError("failed to marshal task envelope")
	}

	if err := s.queue.Publish(ctx, body); err != nil {
		s.logger.Task(env.TaskID, "failed to publish task", map[string]any{
			"error": err.Error(),
		})
		return "", errors.NewUnavailableError("failed to publish task", map[string]any{
			"task_id": env.TaskID,
			"error":   err.Error(),
		})
	}

	// The envelope is already durable on the broker; a bookkeeping failure
	// here must not retract the returned id.
	if err := s.store.Save(ctx, tasks.NewRecord(env)); err != nil {
		s.logger.Task(env.TaskID, "failed to record scheduled task", map[string]any{
			"error": err.Error(),
		})
	}

	s.logger.Task(env.TaskID, "task scheduled", map[string]any{
		"command_size": len(def.Command),
		"priority":     env.Priority,
		"dependencies": len(dependencies),
	})

	return env.TaskID, nil
}
