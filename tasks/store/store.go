package store

import (
	"context"

	"task-dispatch/tasks"
)

// TaskStore is the dispatcher's record of every task it has scheduled.
// It backs the HTTP facade's pending-vs-unknown distinction; workers and the
// broker never touch it.
type TaskStore interface {
	Save(ctx context.Context, rec *tasks.Record) error
	Get(ctx context.Context, taskID string) (*tasks.Record, error)
	UpdateState(ctx context.Context, taskID string, state tasks.State) error
}
