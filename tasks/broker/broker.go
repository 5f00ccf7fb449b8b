package broker

import "context"

// Delivery is a single in-flight message handed to a consumer. It stays
// unacknowledged — and therefore redeliverable — until Ack is called with it.
type Delivery struct {
	// ID is the broker-assigned message identifier used for acknowledgement.
	ID string
	// Body is the opaque serialized envelope.
	Body []byte
}

// Queue is a durable named queue on the broker.
//
// The queue layer is envelope-agnostic: it moves opaque bodies and knows
// nothing about task identifiers or result formats. Identifier assignment and
// envelope semantics live one layer up, in the scheduler and worker.
type Queue interface {
	// Publish durably appends a message to the queue. The message survives
	// broker restarts once Publish returns.
	Publish(ctx context.Context, body []byte) error

	// Consume blocks until a message is available and returns it without
	// removing it from the pending set. A consumer holds at most one
	// unacknowledged delivery at a time (prefetch = 1).
	Consume(ctx context.Context) (*Delivery, error)

	// Ack marks the delivery as processed. An unacked delivery is
	// redelivered to some consumer after the claim-idle window.
	Ack(ctx context.Context, d *Delivery) error

	// Depth returns the number of messages currently in the queue.
	Depth(ctx context.Context) (int64, error)

	// Close cleanly shuts down the queue connection.
	Close() error
}
