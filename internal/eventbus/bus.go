// internal/eventbus/bus.go
package eventbus

import (
	"context"
	"fmt"
)

const (
	TopicPaymentCreated   = "payment.created"
	TopicPaymentProcessed = "payment.processed"
)

// Handler consumes a raw JSON payload delivered on a topic. A returned error
// is terminal for that delivery; there is no retry or dead-lettering.
type Handler func(ctx context.Context, payload []byte) error

// Publisher sends an event to a named topic. Implementations JSON-encode the
// event and fan it out to every subscriber of the topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
}

// Subscriber registers a handler for a topic. Subscriptions must be completed
// before messages start flowing.
type Subscriber interface {
	Subscribe(topic string, handler Handler)
}

// Bus is a transport that can do both ends.
type Bus interface {
	Publisher
	Subscriber
}

// PublishError wraps a failure to hand an event to the transport.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
