package api

import (
	"encoding/json"
	"net/http"
	"time"

	"task-dispatch/config"
	"task-dispatch/logger"
	"task-dispatch/tasks/broker"
)

var startTime = time.Now()

// HealthResponse provides detailed health information
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version,omitempty"`
	TaskQueue   int64  `json:"task_queue_depth"`
	ResultQueue int64  `json:"result_queue_depth"`
}

// NewHealthHandler returns a health check handler reporting queue depths.
func NewHealthHandler(cfg *config.Config, taskQueue, resultQueue broker.Queue, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Version:   cfg.Version,
		}

		// Depth failures degrade the report, they don't fail the endpoint.
		if depth, err := taskQueue.Depth(r.Context()); err == nil {
			response.TaskQueue = depth
		} else {
			response.Status = "degraded"
			lg.Warn("failed to read task queue depth", map[string]any{
				"error": err.Error(),
			})
		}

		if depth, err := resultQueue.Depth(r.Context()); err == nil {
			response.ResultQueue = depth
		} else {
			response.Status = "degraded"
			lg.Warn("failed to read result queue depth", map[string]any{
				"error": err.Error(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			lg.Error("failed to encode health response", map[string]any{
				"error": err.Error(),
			})
		}
	}
}
