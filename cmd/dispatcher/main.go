package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"task-dispatch/api/server"
	"task-dispatch/config"
	"task-dispatch/logger"
	"task-dispatch/tasks"
	"task-dispatch/tasks/aggregator"
	"task-dispatch/tasks/broker"
	"task-dispatch/tasks/scheduler"
	"task-dispatch/tasks/store"
)

func main() {
	// Load .env if present; real environment variables take precedence
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Create logger
	lg := logger.New(cfg.LogLevel, nil)

	lg.Info("Starting dispatcher", map[string]any{
		"version":      cfg.Version,
		"port":         cfg.ServerPort,
		"log_level":    cfg.LogLevel,
		"task_queue":   cfg.TaskQueueName,
		"result_queue": cfg.ResultQueueName,
	})

	// Broker connections; a failure here is fatal, there is no retry
	taskQueue, err := broker.NewRedisQueue(cfg.RedisURL, cfg.TaskQueueName, cfg.WorkerGroup, consumerName("dispatcher"))
	if err != nil {
		log.Fatalf("failed to connect task queue: %v", err)
	}
	defer taskQueue.Close()

	resultQueue, err := broker.NewRedisQueue(cfg.RedisURL, cfg.ResultQueueName, cfg.AggregatorGroup, consumerName("aggregator"))
	if err != nil {
		log.Fatalf("failed to connect result queue: %v", err)
	}
	defer resultQueue.Close()
	resultQueue.SetClaimIdle(cfg.ClaimIdle)

	// Wire up the core components
	taskStore := store.NewMemoryTaskStore()
	sched := scheduler.New(taskQueue, taskStore, lg)

	agg := aggregator.New(resultQueue, lg)
	agg.OnResult(func(result *tasks.ResultEnvelope) {
		state := tasks.StateDone
		if result.Status == tasks.ResultFailure {
			state = tasks.StateFailed
		}
		// Results for tasks scheduled by another dispatcher are not in
		// this store; that is expected, not an error.
		if err := taskStore.UpdateState(context.Background(), result.TaskID, state); err != nil {
			lg.Debug("result for unrecorded task", map[string]any{
				"task_id": result.TaskID,
				"error":   err.Error(),
			})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go agg.Start(ctx)

	// Create and start server; blocks until shutdown signal
	srv := server.New(sched, agg, taskStore, taskQueue, resultQueue, cfg, lg)
	if err := srv.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}

	agg.Stop()
	cancel()
}

// consumerName builds a broker consumer name unique to this process.
func consumerName(role string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s-%d", role, host, os.Getpid())
}
