package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber channel depth. Events beyond it are
// dropped for that subscriber; the short cache TTL bounds the resulting
// staleness.
const subscriberBuffer = 64

// Broker is the in-process Channel implementation. It is correct for a
// single server instance; multi-instance deployments use the Postgres or
// Redis transports behind the same interface.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]chan Invalidation
	closed      bool
	logger      *slog.Logger
}

// NewBroker creates a new in-process invalidation broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]chan Invalidation),
		logger:      logger,
	}
}

// Publish sends the event to all current subscribers without blocking.
func (b *Broker) Publish(ctx context.Context, event Invalidation) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; dropping is safe because the
			// cache entry expires on its own.
			b.logger.Warn("invalidation subscriber channel full, dropping event",
				"subscriber_id", id,
				"hostname", event.Hostname,
			)
		}
	}
}

// Subscribe registers a new subscriber.
func (b *Broker) Subscribe(ctx context.Context) (<-chan Invalidation, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Invalidation, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.New().String()
	b.subscribers[id] = ch
	b.logger.Debug("invalidation subscriber added", "subscriber_id", id)

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			close(sub)
			delete(b.subscribers, id)
		}
	}
}

// Close releases all subscribers. Publish becomes a no-op afterwards.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	return nil
}
