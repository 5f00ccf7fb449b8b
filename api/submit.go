package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"task-dispatch/errors"
	"task-dispatch/logger"
	"task-dispatch/tasks"
)

const (
	maxBodySize       = 1024 * 1024 // 1 MB
	maxCommandLen     = 1024 * 100  // 100 KB
	maxDependencyList = 1000
)

// TaskScheduler is the facade's view of the core scheduler.
type TaskScheduler interface {
	ScheduleTask(ctx context.Context, def tasks.Definition, priority int, dependencies []string) (string, error)
}

// errorResponse defines the JSON structure for error responses
type errorResponse struct {
	Error   string         `json:"error"`
	Type    string         `json:"type,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// submitRequest defines the expected payload for a task submission.
type submitRequest struct {
	Definition   tasks.Definition `json:"definition"`
	Priority     int              `json:"priority"`
	Dependencies []string         `json:"dependencies"`
}

// SubmitResponse defines the JSON response returned after scheduling a task.
// Scheduling is fire-and-forget, so there is no result here — only the id to
// poll with.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// NewSubmitHandler returns an HTTP handler that schedules tasks.
//
// The handler returns as soon as the broker accepts the publish; execution
// happens later on some worker. The 202 status reflects that.
func NewSubmitHandler(sched TaskScheduler, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondWithError(w, errors.NewValidationError("method not allowed"), lg)
			return
		}

		// Limit request body size - this will cause Decode to fail if exceeded
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// Check if the error is due to request size limit
			if strings.Contains(err.Error(), "http: request body too large") {
				respondWithError(w, errors.NewValidationError("request body too large", map[string]any{
					"max_size_bytes": maxBodySize,
				}), lg)
				return
			}

			// Other JSON parsing errors
			respondWithError(w, errors.NewValidationError("invalid JSON payload", map[string]any{
				"error": err.Error(),
			}), lg)
			return
		}

		if req.Definition.Command == "" {
			respondWithError(w, errors.NewValidationError("definition command is required"), lg)
			return
		}

		if len(req.Definition.Command) > maxCommandLen {
			respondWithError(w, errors.NewValidationError("definition command too long", map[string]any{
				"max_length":    maxCommandLen,
				"actual_length": len(req.Definition.Command),
			}), lg)
			return
		}

		if req.Priority < 0 {
			respondWithError(w, errors.NewValidationError("priority must not be negative", map[string]any{
				"priority": req.Priority,
			}), lg)
			return
		}

		if len(req.Dependencies) > maxDependencyList {
			respondWithError(w, errors.NewValidationError("too many dependencies", map[string]any{
				"max_length":    maxDependencyList,
				"actual_length": len(req.Dependencies),
			}), lg)
			return
		}

		taskID, err := sched.ScheduleTask(r.Context(), req.Definition, req.Priority, req.Dependencies)
		if err != nil {
			if dispatchErr, ok := errors.IsDispatchError(err); ok {
				respondWithError(w, dispatchErr, lg)
			} else {
				respondWithError(w, errors.NewInternalError(err.Error()), lg)
			}
			return
		}

		resp := SubmitResponse{
			TaskID: taskID,
			Status: tasks.StateScheduled.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			lg.Error("failed to encode submit response", map[string]any{
				"task_id": taskID,
				"error":   err.Error(),
			})
		}
	}
}

// respondWithError sends a structured error response
func respondWithError(w http.ResponseWriter, dispatchErr *errors.DispatchError, lg *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dispatchErr.Code)

	errorResp := errorResponse{
		Error:   dispatchErr.Message,
		Type:    string(dispatchErr.Type),
		Details: dispatchErr.Details,
	}

	lg.Error("HTTP error response", map[string]any{
		"error_type":    string(dispatchErr.Type),
		"error_message": dispatchErr.Message,
		"status_code":   dispatchErr.Code,
		"error_details": dispatchErr.Details,
	})

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		// Headers and possibly some data are already written; nothing left
		// to do beyond noting the broken connection.
		lg.Error("failed to encode error response", map[string]any{
			"error": err.Error(),
		})
	}
}
