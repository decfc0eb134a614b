// Package broker implements the publish/subscribe transport workflow
// instances use to signal completion and to receive external events
// (Listen's event filters, Call's async callbacks). Two
// implementations are provided: an in-memory one for single-process
// deployments and tests, and a Redis Streams one for durable
// multi-process fan-out.
package broker

import "context"

// Event is an opaque published payload, routed by topic.
type Event struct {
	Topic string
	Key   string
	Value []byte
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, e Event) error

// Broker is the narrow publish/subscribe contract the engine depends
// on; internal/outbox's CompletionNotifier and internal/tasks'
// EventSink are both implementable in terms of a Broker without
// either depending on it directly.
type Broker interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
