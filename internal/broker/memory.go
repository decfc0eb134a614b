package broker

import (
	"context"
	"sync"

	"github.com/lyzr/workflowkernel/common/logger"
)

// MemoryBroker is an in-process Broker backed by one buffered channel
// per topic, adapted from common/queue's MemoryQueue for the engine's
// topic/key/value event shape.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]chan Event
	log    *logger.Logger
}

// NewMemoryBroker constructs an empty MemoryBroker.
func NewMemoryBroker(log *logger.Logger) *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]chan Event), log: log}
}

func (b *MemoryBroker) channel(topic string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.topics[topic]
	if !ok {
		ch = make(chan Event, 1000)
		b.topics[topic] = ch
	}
	return ch
}

func (b *MemoryBroker) Publish(ctx context.Context, topic, key string, value []byte) error {
	ch := b.channel(topic)
	select {
	case ch <- Event{Topic: topic, Key: key, Value: value}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.log.Warn("broker topic full, dropping event", "topic", topic)
		return nil
	}
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string, handler Handler) error {
	ch := b.channel(topic)
	b.log.Info("broker subscribing", "topic", topic)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-ch:
				if err := handler(ctx, e); err != nil {
					b.log.Error("broker handler failed", "topic", topic, "key", e.Key, "error", err)
				}
			}
		}
	}()
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, ch := range b.topics {
		close(ch)
		b.log.Info("broker topic closed", "topic", topic)
	}
	return nil
}
