//go:build integration

package broker

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisTestcontainer(t *testing.T) (*RedisQueue, func()) {
	ctx := context.Background()

	uniqueStream := fmt.Sprintf("test_stream_%s_%d", t.Name(), time.Now().UnixNano())

	redisContainer, err := redis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp").WithStartupTimeout(30*time.Second),
			wait.ForLog("Ready to accept connections").WithOccurrence(1).WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("Failed to start Redis testcontainer: %v", err)
	}

	redisURL, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		// Fallback to manual construction
		host, hostErr := redisContainer.Host(ctx)
		mappedPort, portErr := redisContainer.MappedPort(ctx, "6379/tcp")
		if hostErr != nil || portErr != nil {
			redisContainer.Terminate(ctx)
			t.Fatalf("Failed to get Redis connection details: %v / %v / %v", err, hostErr, portErr)
		}
		redisURL = fmt.Sprintf("redis://%s:%s", host, mappedPort.Port())
	}

	t.Logf("Redis container started at: %s (stream: %s)", redisURL, uniqueStream)

	queue, err := NewRedisQueue(redisURL, uniqueStream, "test_group", "test_consumer")
	if err != nil {
		redisContainer.Terminate(ctx)
		t.Fatalf("Failed to create Redis queue: %v", err)
	}

	cleanup := func() {
		ctx := context.Background()
		if queue != nil {
			queue.client.Del(ctx, uniqueStream)
			queue.Close()
		}
		if terminateErr := redisContainer.Terminate(ctx); terminateErr != nil {
			t.Logf("Failed to terminate container: %v", terminateErr)
		}
	}

	return queue, cleanup
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
