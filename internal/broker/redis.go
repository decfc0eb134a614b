package broker

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/lyzr/workflowkernel/common/redis"
)

// RedisBroker implements Broker on Redis Streams consumer groups: each
// topic is a stream, each subscriber process joins group as a named
// consumer, and every delivered message is acked once its handler
// returns without error.
type RedisBroker struct {
	client   *redisclient.Client
	group    string
	consumer string
	block    time.Duration
}

// NewRedisBroker constructs a RedisBroker. group identifies the
// consumer group shared by every process subscribing to the same
// topic; consumer must be unique per process within that group.
func NewRedisBroker(client *redisclient.Client, group, consumer string) *RedisBroker {
	return &RedisBroker{client: client, group: group, consumer: consumer, block: 5 * time.Second}
}

func (b *RedisBroker) Publish(ctx context.Context, topic, key string, value []byte) error {
	_, err := b.client.AddToStream(ctx, topic, map[string]interface{}{
		"key":   key,
		"value": value,
	})
	return err
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if err := b.client.CreateStreamGroup(ctx, topic, b.group); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			streams, err := b.client.ReadFromStreamGroup(ctx, b.group, b.consumer, topic, 10, b.block)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			for _, stream := range streams {
				for _, msg := range stream.Messages {
					e := decodeStreamEvent(topic, msg)
					if err := handler(ctx, e); err == nil {
						_ = b.client.AckStreamMessage(ctx, topic, b.group, msg.ID)
					}
				}
			}
		}
	}()
	return nil
}

func decodeStreamEvent(topic string, msg goredis.XMessage) Event {
	e := Event{Topic: topic}
	if key, ok := msg.Values["key"].(string); ok {
		e.Key = key
	}
	switch v := msg.Values["value"].(type) {
	case string:
		e.Value = []byte(v)
	case []byte:
		e.Value = v
	}
	return e
}

func (b *RedisBroker) Close() error { return nil }
