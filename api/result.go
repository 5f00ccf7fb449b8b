package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"task-dispatch/errors"
	"task-dispatch/logger"
	"task-dispatch/tasks"
	"task-dispatch/tasks/store"
)

// ResultLookup is the facade's view of the result aggregator's index.
type ResultLookup interface {
	GetResult(taskID string) (*tasks.ResultEnvelope, bool)
}

// ResultResponse carries a completed task's result envelope.
type ResultResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Output string `json:"output"`
	Log    string `json:"log"`
}

// PendingResponse is returned for tasks that were scheduled but have no
// result yet.
type PendingResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// NewResultHandler creates the handler for task result queries.
//
// The aggregator alone cannot distinguish "not finished" from "never
// existed"; the dispatcher's record of scheduled tasks resolves the
// ambiguity here: indexed result → 200, known but pending → 202,
// unknown id → 404.
func NewResultHandler(results ResultLookup, taskStore store.TaskStore, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondWithError(w, errors.NewValidationError("method not allowed"), lg)
			return
		}

		// Extract task ID from URL path
		pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(pathParts) < 2 || pathParts[0] != "tasks" {
			respondWithError(w, errors.NewValidationError("invalid URL format"), lg)
			return
		}

		taskID := pathParts[1]
		if taskID == "" {
			respondWithError(w, errors.NewValidationError("task ID is required"), lg)
			return
		}

		if result, ok := results.GetResult(taskID); ok {
			resp := ResultResponse{
				TaskID: result.TaskID,
				Status: string(result.Status),
				Output: result.Output,
				Log:    result.Log,
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				lg.Error("failed to encode result response", map[string]any{
					"task_id": taskID,
					"error":   err.Error(),
				})
			}
			return
		}

		rec, err := taskStore.Get(r.Context(), taskID)
		if err != nil {
			respondWithError(w, errors.NewNotFoundError(fmt.Sprintf("task %s not found", taskID)), lg)
			return
		}

		resp := PendingResponse{
			TaskID: rec.TaskID,
			Status: rec.State.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			lg.Error("failed to encode pending response", map[string]any{
				"task_id": taskID,
				"error":   err.Error(),
			})
		}
	}
}
