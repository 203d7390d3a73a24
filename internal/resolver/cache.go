// Package resolver implements the read-through hostname resolution path: a
// short-TTL cache in front of the domain store, kept fresh by the
// invalidation channel.
package resolver

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vendix/platform/internal/models"
)

// DefaultTTL bounds staleness of resolved tenants. Kept short on purpose:
// the authoritative record can change at any time through the admin surface.
const DefaultTTL = 60 * time.Second

// Cache stores resolved tenants keyed by lowercased hostname. Implementations
// must be safe for concurrent use; Delete on an absent key is a no-op.
type Cache interface {
	Get(ctx context.Context, hostname string) (*models.ResolvedTenant, bool)
	Set(ctx context.Context, hostname string, tenant *models.ResolvedTenant)
	Delete(ctx context.Context, hostname string)
	Flush(ctx context.Context)
}

// MemoryCache is a process-local TTL cache. Suitable for a single instance;
// multi-instance deployments should use the Redis cache so invalidations and
// entries are shared.
type MemoryCache struct {
	ttl   time.Duration
	cache *gocache.Cache
}

// NewMemoryCache creates a TTL cache. A non-positive ttl falls back to
// DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:   ttl,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *MemoryCache) Get(ctx context.Context, hostname string) (*models.ResolvedTenant, bool) {
	v, ok := c.cache.Get(hostname)
	if !ok {
		return nil, false
	}
	return v.(*models.ResolvedTenant), true
}

func (c *MemoryCache) Set(ctx context.Context, hostname string, tenant *models.ResolvedTenant) {
	c.cache.Set(hostname, tenant, c.ttl)
}

func (c *MemoryCache) Delete(ctx context.Context, hostname string) {
	c.cache.Delete(hostname)
}

func (c *MemoryCache) Flush(ctx context.Context) {
	c.cache.Flush()
}
