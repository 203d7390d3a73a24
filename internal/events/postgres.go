package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Listener reconnect bounds for the Postgres transport.
const (
	listenMinReconnect = 2 * time.Second
	listenMaxReconnect = time.Minute
)

// PostgresChannel broadcasts invalidations across server instances using
// Postgres LISTEN/NOTIFY, so deployments that already run on Postgres get
// cross-instance invalidation without extra infrastructure.
type PostgresChannel struct {
	db       *sql.DB
	listener *pq.Listener
	broker   *Broker
	logger   *slog.Logger
	done     chan struct{}
}

// NewPostgresChannel creates a LISTEN/NOTIFY-backed channel. dsn must point at
// the same database the store uses. The returned channel fans incoming
// notifications out through an embedded in-process broker.
func NewPostgresChannel(db *sql.DB, dsn string, logger *slog.Logger) (*PostgresChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &PostgresChannel{
		db:     db,
		broker: NewBroker(logger),
		logger: logger,
		done:   make(chan struct{}),
	}

	c.listener = pq.NewListener(dsn, listenMinReconnect, listenMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("postgres listener event", "event", int(ev), "error", err)
			}
		})

	if err := c.listener.Listen(pgChannelName); err != nil {
		c.listener.Close()
		return nil, err
	}

	go c.run()
	return c, nil
}

// pgChannelName is InvalidationTopic with dots replaced, since NOTIFY channel
// identifiers follow SQL identifier rules.
const pgChannelName = "domain_cache_invalidate"

func (c *PostgresChannel) run() {
	for {
		select {
		case <-c.done:
			return
		case n, ok := <-c.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Reconnect marker from the driver.
				continue
			}
			var event Invalidation
			if err := json.Unmarshal([]byte(n.Extra), &event); err != nil {
				c.logger.Warn("malformed invalidation payload", "payload", n.Extra, "error", err)
				continue
			}
			c.broker.Publish(context.Background(), event)
		}
	}
}

// Publish sends the event through NOTIFY. Errors are logged and swallowed:
// invalidation is a best-effort side channel and must never fail the write
// that triggered it.
func (c *PostgresChannel) Publish(ctx context.Context, event Invalidation) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("marshaling invalidation", "error", err)
		return
	}
	if _, err := c.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", pgChannelName, string(payload)); err != nil {
		c.logger.Warn("publishing invalidation", "hostname", event.Hostname, "error", err)
	}
}

// Subscribe registers a consumer for notifications received from Postgres.
func (c *PostgresChannel) Subscribe(ctx context.Context) (<-chan Invalidation, func()) {
	return c.broker.Subscribe(ctx)
}

// Close stops the listener and releases all subscribers.
func (c *PostgresChannel) Close() error {
	close(c.done)
	err := c.listener.Close()
	c.broker.Close()
	return err
}
