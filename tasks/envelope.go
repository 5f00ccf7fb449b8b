package tasks

import (
	"encoding/json"
	"fmt"
)

// DefaultPriority is the priority hint assigned when the caller supplies none.
const DefaultPriority = 1

// Definition is the opaque command specification carried inside a task.
// Beyond "has an invocable command" no schema is imposed; the command is
// executed as-is by a worker and must be trusted by configuration.
type Definition struct {
	Command string `json:"command"`
}

// Validate checks that the definition can actually be invoked.
func (d Definition) Validate() error {
	if d.Command == "" {
		return fmt.Errorf("definition has no command")
	}
	return nil
}

// TaskEnvelope is the serialized unit of work published to the task queue.
//
// TaskID is assigned exactly once, by the scheduler at enqueue time, and is
// never reused across envelopes. Priority is a hint only (a single FIFO queue
// does not reorder by it) and Dependencies are carried as inert metadata.
type TaskEnvelope struct {
	TaskID       string     `json:"task_id"`
	Definition   Definition `json:"definition"`
	Priority     int        `json:"priority"`
	Dependencies []string   `json:"dependencies"`
}

// Validate checks the required fields of a task envelope.
func (e *TaskEnvelope) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("task envelope missing task_id")
	}
	if err := e.Definition.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", e.TaskID, err)
	}
	return nil
}

// ResultStatus classifies the business outcome of a task execution.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
)

// ResultEnvelope is the serialized outcome published to the result queue.
// A worker creates it immediately after command execution completes,
// publishes it once, and never mutates it afterward.
type ResultEnvelope struct {
	TaskID string       `json:"task_id"`
	Status ResultStatus `json:"status"`
	// Output holds captured stdout; on failure, whatever partial output
	// was captured before the command died.
	Output string `json:"output"`
	// Log holds captured stderr or an error description.
	Log string `json:"log"`
}

// Validate checks the required fields of a result envelope.
func (r *ResultEnvelope) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("result envelope missing task_id")
	}
	if r.Status != ResultSuccess && r.Status != ResultFailure {
		return fmt.Errorf("result for task %s has unknown status %q", r.TaskID, r.Status)
	}
	return nil
}

// DecodeTaskEnvelope unmarshals and validates a task envelope body.
func DecodeTaskEnvelope(body []byte) (*TaskEnvelope, error) {
	var env TaskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeResultEnvelope unmarshals and validates a result envelope body.
func DecodeResultEnvelope(body []byte) (*ResultEnvelope, error) {
	var env ResultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
