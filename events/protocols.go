// Package events provides the in-process message bus used to broadcast run
// progress to interested subscribers (session tracking, CLI progress output,
// telemetry).
package events

import "context"

// Message is the base interface for all bus messages.
type Message interface {
	// Category returns the routing category of the message.
	Category() string
}

// HandlerFunc processes a message and optionally returns a result.
type HandlerFunc func(ctx context.Context, message Message) (any, error)

// Middleware intercepts messages before and after handling.
type Middleware interface {
	// Before runs ahead of delivery. Returning a nil message aborts
	// delivery without error.
	Before(ctx context.Context, message Message) (Message, error)
	// After runs once delivery finishes, in reverse registration order.
	After(ctx context.Context, message Message, result any, err error) (any, error)
}

// Bus is the publish/subscribe surface the engine depends on.
type Bus interface {
	Publish(ctx context.Context, event Message) error
	Subscribe(eventType string, handler HandlerFunc) func()
}
