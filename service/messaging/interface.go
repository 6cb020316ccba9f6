package messaging

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by a non-blocking publish when no slot is free.
var ErrQueueFull = errors.New("messaging: queue full")

// Queue represents a message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// ID returns the message id
	ID() string

	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack returns the message to the queue unless its retries are spent
	Nack(err error) error
}
