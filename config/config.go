package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServerPort      int           `json:"server_port"`
	LogLevel        string        `json:"log_level"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Version         string        `json:"version"`

	// Broker
	RedisURL        string        `json:"redis_url"`
	TaskQueueName   string        `json:"task_queue_name"`
	ResultQueueName string        `json:"result_queue_name"`
	WorkerGroup     string        `json:"worker_group"`     // consumer group draining the task queue
	AggregatorGroup string        `json:"aggregator_group"` // consumer group draining the result queue
	// ClaimIdle is the unacked-message redelivery window. Workers hold a
	// delivery unacknowledged while the command runs, so this must exceed
	// the longest expected command duration or live workers get their
	// in-flight tasks reclaimed and re-executed by peers.
	ClaimIdle time.Duration `json:"claim_idle"`

	// Worker process
	WorkerCount int `json:"worker_count"`
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:      getEnvInt("PORT", 8080),
		LogLevel:        getEnvString("LOG_LEVEL", "INFO"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		Version:         getEnvString("VERSION", "1.0.0"),
		RedisURL:        getEnvString("REDIS_URL", "redis://localhost:6379"),
		TaskQueueName:   getEnvString("TASK_QUEUE", "tasks"),
		ResultQueueName: getEnvString("RESULT_QUEUE", "results"),
		WorkerGroup:     getEnvString("WORKER_GROUP", "workers"),
		AggregatorGroup: getEnvString("AGGREGATOR_GROUP", "aggregator"),
		ClaimIdle:       getEnvDuration("CLAIM_IDLE", 5*time.Minute),
		WorkerCount:     getEnvInt("WORKER_COUNT", 3),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// validate performs basic validation of the configuration
func (c *Config) validate() error {
	// Validate ServerPort
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port %d: must be between 1 and 65535", c.ServerPort)
	}

	// Validate and normalize LogLevel
	validLevels := map[string]bool{
		"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
	}
	upperLevel := strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if !validLevels[upperLevel] {
		return fmt.Errorf("invalid log level '%s': must be DEBUG, INFO, WARN, or ERROR", c.LogLevel)
	}
	c.LogLevel = upperLevel

	// Validate ShutdownTimeout
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout)
	}
	if c.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("invalid shutdown timeout %v: must not exceed 5 minutes", c.ShutdownTimeout)
	}

	// Validate Version
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("version cannot be empty")
	}
	c.Version = strings.TrimSpace(c.Version)

	// Validate broker settings
	if strings.TrimSpace(c.RedisURL) == "" {
		return fmt.Errorf("redis URL cannot be empty")
	}
	if strings.TrimSpace(c.TaskQueueName) == "" {
		return fmt.Errorf("task queue name cannot be empty")
	}
	if strings.TrimSpace(c.ResultQueueName) == "" {
		return fmt.Errorf("result queue name cannot be empty")
	}
	if c.TaskQueueName == c.ResultQueueName {
		return fmt.Errorf("task queue and result queue must be distinct, both are %q", c.TaskQueueName)
	}
	if strings.TrimSpace(c.WorkerGroup) == "" {
		return fmt.Errorf("worker group cannot be empty")
	}
	if strings.TrimSpace(c.AggregatorGroup) == "" {
		return fmt.Errorf("aggregator group cannot be empty")
	}
	if c.ClaimIdle <= 0 {
		return fmt.Errorf("invalid claim idle %v: must be positive", c.ClaimIdle)
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}
