package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// bodyField is the single stream entry field carrying the serialized envelope.
	bodyField = "body"

	// defaultClaimIdle is how long a delivery may sit unacknowledged before
	// another consumer is allowed to claim and re-process it. A worker holds
	// its delivery unacknowledged for the entire command run, so the window
	// must exceed the longest expected command duration or a healthy slow
	// worker loses its entry to a peer and the command runs twice.
	defaultClaimIdle = 5 * time.Minute
)

// RedisQueue implements Queue on a Redis stream with a consumer group.
//
// Streams give the delivery contract the system needs: appended entries are
// persisted, each group member reads with an explicit prefetch of one, and an
// entry stays on the group's pending list until XACK. A consumer that dies
// mid-task leaves its entry pending, and Consume reclaims entries idle longer
// than the claim window, which is the redelivery path after a crash.
type RedisQueue struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	claimIdle time.Duration
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue connects to the broker and declares the durable queue.
// Declaration is idempotent: declaring an already-existing group is safe.
// A connection failure here is fatal to the caller — there is no retry.
func NewRedisQueue(url, stream, group, consumer string) (*RedisQueue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	// Blocking reads must honor context deadlines so consume loops can
	// be shut down.
	opt.ContextTimeoutEnabled = true

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// MKSTREAM creates the stream alongside the group; BUSYGROUP means the
	// group already exists, which is the idempotent-declaration case.
	if err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to declare queue %s: %w", stream, err)
	}

	return &RedisQueue{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  consumer,
		claimIdle: defaultClaimIdle,
	}, nil
}

// SetClaimIdle configures how long a delivery may stay unacknowledged before
// it becomes claimable by other consumers. Keep it above the longest
// expected processing time; see defaultClaimIdle.
func (q *RedisQueue) SetClaimIdle(d time.Duration) {
	q.claimIdle = d
}

// Publish appends the body to the stream. Redis persists stream entries, so
// the message is retained across broker restarts.
func (q *RedisQueue) Publish(ctx context.Context, body []byte) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{bodyField: body},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", q.stream, err)
	}
	return nil
}

// Consume returns the next delivery for this consumer, blocking until one is
// available. Stale pending entries from crashed consumers are reclaimed
// before new entries are read.
func (q *RedisQueue) Consume(ctx context.Context) (*Delivery, error) {
	if d, err := q.claimStale(ctx); err != nil {
		return nil, err
	} else if d != nil {
		return d, nil
	}

	// Block indefinitely for a fresh entry; context cancellation unblocks.
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", q.stream, err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, fmt.Errorf("empty read from %s", q.stream)
	}

	return deliveryFromMessage(q.stream, streams[0].Messages[0])
}

// claimStale takes over at most one pending entry whose consumer has been
// silent longer than the claim window. Returns nil without error when there
// is nothing to claim.
func (q *RedisQueue) claimStale(ctx context.Context) (*Delivery, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending entries from %s: %w", q.stream, err)
	}

	if len(msgs) == 0 {
		return nil, nil
	}
	return deliveryFromMessage(q.stream, msgs[0])
}

// Ack removes the delivery from the group's pending list and deletes the
// entry from the stream, making the hand-off final. Never call this before
// downstream effects are durable.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.XAck(ctx, q.stream, q.group, d.ID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s on %s: %w", d.ID, q.stream, err)
	}

	// XACK only clears the pending entry. Without the delete the stream
	// retains every entry ever published and Depth never goes back down.
	if err := q.client.XDel(ctx, q.stream, d.ID).Err(); err != nil {
		return fmt.Errorf("failed to delete acked entry %s on %s: %w", d.ID, q.stream, err)
	}
	return nil
}

// Depth returns the number of entries still in the stream. Acked entries
// are deleted, so this counts undelivered plus in-flight messages.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.XLen(ctx, q.stream).Result()
}

// Close shuts down the underlying client connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func deliveryFromMessage(stream string, msg redis.XMessage) (*Delivery, error) {
	raw, ok := msg.Values[bodyField]
	if !ok {
		return nil, fmt.Errorf("message %s on %s has no %s field", msg.ID, stream, bodyField)
	}

	body, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("message %s on %s has non-string body", msg.ID, stream)
	}

	return &Delivery{ID: msg.ID, Body: []byte(body)}, nil
}
