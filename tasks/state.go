package tasks

import (
	"fmt"
	"time"
)

// State models the dispatcher-side lifecycle of a scheduled task.
//
// The broker-side lifecycle (enqueued, redelivered, executing) is invisible
// to the dispatcher; all it observes is the hand-off to the broker and,
// eventually, a result envelope. There is no cancelled state because
// cancellation is not supported.
type State string

const (
	// StateScheduled means the envelope was accepted by the broker and no
	// result has arrived yet.
	StateScheduled State = "scheduled"
	// StateDone means a success result was indexed for the task.
	StateDone State = "done"
	// StateFailed means a failure result was indexed for the task.
	StateFailed State = "failed"
)

// String returns the wire representation of the state.
func (s State) String() string {
	return string(s)
}

// IsFinal reports whether the state is terminal.
func (s State) IsFinal() bool {
	return s == StateDone || s == StateFailed
}

// canTransitionTo validates a state change against the lifecycle.
func (s State) canTransitionTo(target State) error {
	valid := map[State][]State{
		StateScheduled: {StateDone, StateFailed},
		StateDone:      {},
		StateFailed:    {},
	}

	allowed, ok := valid[s]
	if !ok {
		return fmt.Errorf("unknown current state: %s", s)
	}

	for _, t := range allowed {
		if t == target {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", s, target)
}

// Record is the dispatcher's bookkeeping entry for a scheduled task.
// It exists so the HTTP facade can tell a pending task apart from an id
// that was never scheduled; workers never see it.
type Record struct {
	TaskID       string     `json:"task_id"`
	Definition   Definition `json:"definition"`
	Priority     int        `json:"priority"`
	Dependencies []string   `json:"dependencies"`
	State        State      `json:"state"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

// NewRecord creates the bookkeeping entry for a freshly published envelope.
func NewRecord(env *TaskEnvelope) *Record {
	return &Record{
		TaskID:       env.TaskID,
		Definition:   env.Definition,
		Priority:     env.Priority,
		Dependencies: env.Dependencies,
		State:        StateScheduled,
		SubmittedAt:  time.Now().UTC(),
	}
}

// SetState transitions the record, rejecting invalid lifecycle moves.
func (r *Record) SetState(target State) error {
	if err := r.State.canTransitionTo(target); err != nil {
		return err
	}
	r.State = target
	return nil
}
