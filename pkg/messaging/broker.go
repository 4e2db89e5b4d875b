package messaging

import (
	"context"
)

// Broker defines the interface for message brokers. Delivery is at-most-once:
// subscribers that are not listening when a message is published miss it.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe returns a channel of raw JSON payloads that is closed when ctx ends.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
