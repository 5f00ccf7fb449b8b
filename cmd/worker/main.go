package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"task-dispatch/config"
	"task-dispatch/logger"
	"task-dispatch/tasks/broker"
	"task-dispatch/tasks/worker"
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

	lg.Info("Starting worker node", map[string]any{
		"version":      cfg.Version,
		"log_level":    cfg.LogLevel,
		"worker_count": cfg.WorkerCount,
		"task_queue":   cfg.TaskQueueName,
		"result_queue": cfg.ResultQueueName,
	})

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	// Each worker owns its broker connections; all coordination goes
	// through the broker's queues.
	workers := make([]*worker.Worker, cfg.WorkerCount)
	queues := make([]*broker.RedisQueue, 0, cfg.WorkerCount*2)
	for i := range workers {
		consumer := fmt.Sprintf("worker-%s-%d-%d", host, os.Getpid(), i+1)

		taskQueue, err := broker.NewRedisQueue(cfg.RedisURL, cfg.TaskQueueName, cfg.WorkerGroup, consumer)
		if err != nil {
			log.Fatalf("failed to connect task queue: %v", err)
		}
		taskQueue.SetClaimIdle(cfg.ClaimIdle)

		resultQueue, err := broker.NewRedisQueue(cfg.RedisURL, cfg.ResultQueueName, cfg.AggregatorGroup, consumer)
		if err != nil {
			log.Fatalf("failed to connect result queue: %v", err)
		}

		queues = append(queues, taskQueue, resultQueue)
		workers[i] = worker.NewWorker(i+1, taskQueue, resultQueue, worker.NewShellExecutor(), lg)
	}

	defer func() {
		for _, q := range queues {
			q.Close()
		}
	}()

	pool := worker.NewPool(workers, lg)
	pool.SetShutdownTimeout(cfg.ShutdownTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Start(ctx)

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	lg.Info("Shutting down worker node")
	pool.Stop()
}
