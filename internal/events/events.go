// Package events provides the cache-invalidation broadcast channel.
//
// Every mutating registry or verifier operation publishes the affected
// hostname; resolution caches subscribe and drop the stale entry. Delivery is
// fire-and-forget: publishers never wait for subscribers, and subscribers must
// treat duplicate or out-of-order events as no-ops.
package events

import (
	"context"
	"time"
)

// InvalidationTopic is the logical channel name shared by all transports.
const InvalidationTopic = "domain.cache.invalidate"

// Invalidation tells cache holders that a hostname's underlying data changed.
type Invalidation struct {
	Hostname   string    `json:"hostname"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Channel broadcasts invalidation events to all subscribers.
type Channel interface {
	// Publish broadcasts an invalidation. Implementations must not block on
	// slow subscribers; failures are logged, never returned to the write path.
	Publish(ctx context.Context, event Invalidation)

	// Subscribe registers a consumer and returns its receive channel together
	// with an unsubscribe function. The channel is closed on unsubscribe.
	Subscribe(ctx context.Context) (<-chan Invalidation, func())

	// Close tears the channel down, releasing all subscribers.
	Close() error
}
