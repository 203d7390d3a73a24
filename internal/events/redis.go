package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChannel broadcasts invalidations across server instances using Redis
// pub/sub.
type RedisChannel struct {
	client *redis.Client
	pubsub *redis.PubSub
	broker *Broker
	logger *slog.Logger
	done   chan struct{}
}

// NewRedisChannel creates a Redis pub/sub-backed channel.
func NewRedisChannel(client *redis.Client, logger *slog.Logger) *RedisChannel {
	if logger == nil {
		logger = slog.Default()
	}

	c := &RedisChannel{
		client: client,
		pubsub: client.Subscribe(context.Background(), InvalidationTopic),
		broker: NewBroker(logger),
		logger: logger,
		done:   make(chan struct{}),
	}

	go c.run()
	return c
}

func (c *RedisChannel) run() {
	msgs := c.pubsub.Channel()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event Invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				c.logger.Warn("malformed invalidation payload", "payload", msg.Payload, "error", err)
				continue
			}
			c.broker.Publish(context.Background(), event)
		}
	}
}

// Publish sends the event to the Redis topic. Errors are logged and swallowed.
func (c *RedisChannel) Publish(ctx context.Context, event Invalidation) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("marshaling invalidation", "error", err)
		return
	}
	if err := c.client.Publish(ctx, InvalidationTopic, payload).Err(); err != nil {
		c.logger.Warn("publishing invalidation", "hostname", event.Hostname, "error", err)
	}
}

// Subscribe registers a consumer for events received from Redis.
func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan Invalidation, func()) {
	return c.broker.Subscribe(ctx)
}

// Close stops the subscription and releases all subscribers.
func (c *RedisChannel) Close() error {
	close(c.done)
	err := c.pubsub.Close()
	c.broker.Close()
	return err
}
