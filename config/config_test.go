package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := LoadConfig()

	assert.NilError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "tasks", cfg.TaskQueueName)
	assert.Equal(t, "results", cfg.ResultQueueName)
	assert.Equal(t, "workers", cfg.WorkerGroup)
	assert.Equal(t, "aggregator", cfg.AggregatorGroup)
	assert.Equal(t, 5*time.Minute, cfg.ClaimIdle)
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, ":8080", cfg.Address())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("LOG_LEVEL", "DEBUG")
	os.Setenv("SHUTDOWN_TIMEOUT", "20s")
	os.Setenv("VERSION", "2.0.0-beta")
	os.Setenv("REDIS_URL", "redis://broker:6379/2")
	os.Setenv("TASK_QUEUE", "dispatch_tasks")
	os.Setenv("RESULT_QUEUE", "dispatch_results")
	os.Setenv("WORKER_GROUP", "pool_a")
	os.Setenv("AGGREGATOR_GROUP", "agg_a")
	os.Setenv("CLAIM_IDLE", "1m")
	os.Setenv("WORKER_COUNT", "8")

	defer func() {
		os.Clearenv()
	}()

	cfg, err := LoadConfig()

	assert.NilError(t, err)
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 20*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "2.0.0-beta", cfg.Version)
	assert.Equal(t, "redis://broker:6379/2", cfg.RedisURL)
	assert.Equal(t, "dispatch_tasks", cfg.TaskQueueName)
	assert.Equal(t, "dispatch_results", cfg.ResultQueueName)
	assert.Equal(t, "pool_a", cfg.WorkerGroup)
	assert.Equal(t, "agg_a", cfg.AggregatorGroup)
	assert.Equal(t, time.Minute, cfg.ClaimIdle)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, ":9000", cfg.Address())
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	os.Setenv("PORT", "not-a-number")
	os.Setenv("CLAIM_IDLE", "not-a-duration")

	defer func() {
		os.Clearenv()
	}()

	cfg, err := LoadConfig()

	// Should fall back to defaults and validate successfully
	assert.NilError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 5*time.Minute, cfg.ClaimIdle)
}

// Validation Tests

func TestLoadConfig_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port string
	}{
		{"port too low", "0"},
		{"port too high", "65536"},
		{"negative port", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("PORT", tt.port)
			defer os.Clearenv()

			_, err := LoadConfig()
			assert.ErrorContains(t, err, "invalid server port")
		})
	}
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	os.Clearenv()
	os.Setenv("LOG_LEVEL", "VERBOSE")
	defer os.Clearenv()

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLoadConfig_NormalizesLogLevel(t *testing.T) {
	os.Clearenv()
	os.Setenv("LOG_LEVEL", "  debug ")
	defer os.Clearenv()

	cfg, err := LoadConfig()
	assert.NilError(t, err)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadConfig_InvalidShutdownTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
	}{
		{"negative timeout", "-5s"},
		{"excessive timeout", "10m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("SHUTDOWN_TIMEOUT", tt.timeout)
			defer os.Clearenv()

			_, err := LoadConfig()
			assert.ErrorContains(t, err, "invalid shutdown timeout")
		})
	}
}

func TestLoadConfig_EmptyVersion(t *testing.T) {
	os.Clearenv()
	os.Setenv("VERSION", "   ")
	defer os.Clearenv()

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "version cannot be empty")
}

func TestLoadConfig_QueueNamesMustDiffer(t *testing.T) {
	os.Clearenv()
	os.Setenv("TASK_QUEUE", "shared")
	os.Setenv("RESULT_QUEUE", "shared")
	defer os.Clearenv()

	_, err := LoadConfig()
	assert.Assert(t, err != nil)
	assert.Assert(t, strings.Contains(err.Error(), "must be distinct"))
}

func TestLoadConfig_InvalidWorkerCount(t *testing.T) {
	os.Clearenv()
	os.Setenv("WORKER_COUNT", "0")
	defer os.Clearenv()

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "worker count must be at least 1")
}

func TestLoadConfig_InvalidClaimIdle(t *testing.T) {
	os.Clearenv()
	os.Setenv("CLAIM_IDLE", "-10s")
	defer os.Clearenv()

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "invalid claim idle")
}
