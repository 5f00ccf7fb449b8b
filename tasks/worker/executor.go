package worker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"task-dispatch/tasks"
)

// Outcome is what running a command produced. A non-zero exit is a normal
// business outcome, not a system fault, so it is reported here rather than
// as an error.
type Outcome struct {
	Success bool
	// Output is captured stdout; partial output is kept on failure.
	Output string
	// Log is captured stderr, or an error description when the command
	// could not be spawned at all.
	Log string
}

// Executor runs a task definition and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, def tasks.Definition) Outcome
}

var _ Executor = (*ShellExecutor)(nil)

// ShellExecutor runs the definition's command through the shell with captured
// stdout and stderr. This is arbitrary-command execution: the definition is
// trusted input, and no sandboxing is attempted.
type ShellExecutor struct{}

// NewShellExecutor returns the production executor.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

func (e *ShellExecutor) Execute(ctx context.Context, def tasks.Definition) Outcome {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", def.Command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Outcome{
			Success: true,
			Output:  stdout.String(),
			Log:     stderr.String(),
		}
	}

	logMsg := stderr.String()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || logMsg == "" {
		// Spawn failures and silent exits still need a diagnostic trail.
		if logMsg != "" {
			logMsg += "\n"
		}
		logMsg += err.Error()
	}

	return Outcome{
		Success: false,
		Output:  stdout.String(),
		Log:     logMsg,
	}
}
