//go:build integration

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"task-dispatch/tasks"
)

func publishTestEnvelope(t *testing.T, q *RedisQueue, id string) {
	t.Helper()

	env := &tasks.TaskEnvelope{
		TaskID:     id,
		Definition: tasks.Definition{Command: "echo " + id},
		Priority:   1,
	}
	body, err := json.Marshal(env)
	assert.NilError(t, err)
	assert.NilError(t, q.Publish(context.Background(), body))
}

func TestRedisQueue_NewRedisQueue(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	assert.Assert(t, queue != nil)
	assert.Assert(t, len(queue.stream) > 0)
	assert.Assert(t, queue.client != nil)
}

func TestRedisQueue_ConnectionErrors(t *testing.T) {
	_, err := NewRedisQueue("invalid://url", "s", "g", "c")
	assert.ErrorContains(t, err, "invalid Redis URL")

	_, err = NewRedisQueue("redis://localhost:59999", "s", "g", "c")
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRedisQueue_DeclareIdempotent(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	// Declaring the same stream and group again must not fail.
	url := fmt.Sprintf("redis://%s", queue.client.Options().Addr)
	second, err := NewRedisQueue(url, queue.stream, queue.group, "other_consumer")
	assert.NilError(t, err)
	second.Close()
}

func TestRedisQueue_PublishConsumeAck(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	ctx := context.Background()
	publishTestEnvelope(t, queue, "task-1")

	depth, err := queue.Depth(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(1), depth)

	d, err := queue.Consume(ctx)
	assert.NilError(t, err)
	assert.Assert(t, d != nil)

	env, err := tasks.DecodeTaskEnvelope(d.Body)
	assert.NilError(t, err)
	assert.Equal(t, "task-1", env.TaskID)

	assert.NilError(t, queue.Ack(ctx, d))

	pending, err := queue.client.XPending(ctx, queue.stream, queue.group).Result()
	assert.NilError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	// The ack deletes the entry, so a fully drained queue reports depth 0.
	depth, err = queue.Depth(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestRedisQueue_FIFOOrdering(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		publishTestEnvelope(t, queue, fmt.Sprintf("task-%d", i))
	}

	for i := 0; i < 5; i++ {
		d, err := queue.Consume(ctx)
		assert.NilError(t, err)

		env, err := tasks.DecodeTaskEnvelope(d.Body)
		assert.NilError(t, err)
		assert.Equal(t, fmt.Sprintf("task-%d", i), env.TaskID)

		assert.NilError(t, queue.Ack(ctx, d))
	}
}

func TestRedisQueue_UnackedRedelivery(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	ctx := context.Background()
	publishTestEnvelope(t, queue, "task-crash")

	// First consumer reads but never acks, simulating a crash mid-task.
	d, err := queue.Consume(ctx)
	assert.NilError(t, err)
	assert.Assert(t, d != nil)

	// A second consumer with a short claim window picks the entry back up.
	url := fmt.Sprintf("redis://%s", queue.client.Options().Addr)
	second, err := NewRedisQueue(url, queue.stream, queue.group, "second_consumer")
	assert.NilError(t, err)
	defer second.Close()
	second.SetClaimIdle(50 * time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	redelivered, err := second.Consume(ctx)
	assert.NilError(t, err)
	assert.Equal(t, d.ID, redelivered.ID)

	env, err := tasks.DecodeTaskEnvelope(redelivered.Body)
	assert.NilError(t, err)
	assert.Equal(t, "task-crash", env.TaskID)

	assert.NilError(t, second.Ack(ctx, redelivered))
}

func TestRedisQueue_CompetingConsumers(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	ctx := context.Background()
	const numTasks = 20

	for i := 0; i < numTasks; i++ {
		publishTestEnvelope(t, queue, fmt.Sprintf("task-%d", i))
	}

	url := fmt.Sprintf("redis://%s", queue.client.Options().Addr)
	second, err := NewRedisQueue(url, queue.stream, queue.group, "second_consumer")
	assert.NilError(t, err)
	defer second.Close()

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	drain := func(q *RedisQueue, n int) {
		defer wg.Done()
		for i := 0; i < n; i++ {
			d, err := q.Consume(ctx)
			if err != nil {
				return
			}
			env, err := tasks.DecodeTaskEnvelope(d.Body)
			if err != nil {
				return
			}
			mu.Lock()
			seen[env.TaskID]++
			mu.Unlock()
			q.Ack(ctx, d)
		}
	}

	wg.Add(2)
	go drain(queue, numTasks/2)
	go drain(second, numTasks/2)
	wg.Wait()

	// Each message delivered to exactly one of the competing consumers.
	assert.Equal(t, numTasks, len(seen))
	for id, count := range seen {
		assert.Equal(t, 1, count, "task %s delivered %d times", id, count)
	}
}

func TestRedisQueue_ConsumeRespectsContext(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.Assert(t, err != nil)
}

func TestRedisQueue_Close(t *testing.T) {
	queue, cleanup := setupRedisTestcontainer(t)
	defer cleanup()

	assert.NilError(t, queue.Close())

	err := queue.Publish(context.Background(), []byte("{}"))
	assert.ErrorContains(t, err, "client is closed")
}
