package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskEnvelope_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		envelope    TaskEnvelope
		shouldError bool
		errContains string
	}{
		{
			name: "valid envelope",
			envelope: TaskEnvelope{
				TaskID:     "task-1",
				Definition: Definition{Command: "echo hello"},
				Priority:   1,
			},
			shouldError: false,
		},
		{
			name: "missing task id",
			envelope: TaskEnvelope{
				Definition: Definition{Command: "echo hello"},
			},
			shouldError: true,
			errContains: "missing task_id",
		},
		{
			name: "missing command",
			envelope: TaskEnvelope{
				TaskID: "task-1",
			},
			shouldError: true,
			errContains: "no command",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.envelope.Validate()
			if tc.shouldError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestResultEnvelope_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		envelope    ResultEnvelope
		shouldError bool
	}{
		{"success result", ResultEnvelope{TaskID: "t1", Status: ResultSuccess, Output: "ok\n"}, false},
		{"failure result", ResultEnvelope{TaskID: "t1", Status: ResultFailure, Log: "boom"}, false},
		{"missing task id", ResultEnvelope{Status: ResultSuccess}, true},
		{"unknown status", ResultEnvelope{TaskID: "t1", Status: "pending"}, true},
		{"empty status", ResultEnvelope{TaskID: "t1"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.envelope.Validate()
			if tc.shouldError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDecodeTaskEnvelope(t *testing.T) {
	body := []byte(`{"task_id":"abc","definition":{"command":"echo hi"},"priority":2,"dependencies":["xyz"]}`)

	env, err := DecodeTaskEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, "abc", env.TaskID)
	assert.Equal(t, "echo hi", env.Definition.Command)
	assert.Equal(t, 2, env.Priority)
	assert.Equal(t, []string{"xyz"}, env.Dependencies)
}

func TestDecodeTaskEnvelope_Invalid(t *testing.T) {
	_, err := DecodeTaskEnvelope([]byte("not-json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal task envelope")

	_, err = DecodeTaskEnvelope([]byte(`{"definition":{"command":"ls"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing task_id")
}

func TestDecodeResultEnvelope(t *testing.T) {
	body := []byte(`{"task_id":"abc","status":"success","output":"hello\n","log":""}`)

	env, err := DecodeResultEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, "abc", env.TaskID)
	assert.Equal(t, ResultSuccess, env.Status)
	assert.Equal(t, "hello\n", env.Output)
	assert.Equal(t, "", env.Log)
}

func TestDecodeResultEnvelope_Invalid(t *testing.T) {
	_, err := DecodeResultEnvelope([]byte("{"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal result envelope")

	_, err = DecodeResultEnvelope([]byte(`{"task_id":"abc","status":"done"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}
