package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/hostname"
	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
)

// CheckResult answers the public availability probe for a hostname.
// PlatformManaged reflects the classifier verdict and is filled for
// registered and unregistered hostnames alike.
type CheckResult struct {
	Hostname        string            `json:"hostname"`
	Available       bool              `json:"available"`
	Configured      bool              `json:"configured"`
	Active          bool              `json:"active"`
	PlatformManaged bool              `json:"platformManaged"`
	DomainType      models.DomainType `json:"domainType,omitempty"`
	OrganizationID  string            `json:"organizationId,omitempty"`
	StoreID         string            `json:"storeId,omitempty"`
}

// Service is the read-through resolution path. Resolve serves from the cache
// and falls back to the store, joining tenant display metadata on a miss.
type Service struct {
	store      store.Store
	cache      Cache
	classifier *hostname.Classifier
	channel    events.Channel
	logger     *slog.Logger

	stopOnce sync.Once
	stop     func()
	done     chan struct{}
}

// NewService creates a resolution service and starts consuming the
// invalidation channel. Close stops the subscription.
func NewService(st store.Store, cache Cache, classifier *hostname.Classifier, channel events.Channel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:      st,
		cache:      cache,
		classifier: classifier,
		channel:    channel,
		logger:     logger,
		done:       make(chan struct{}),
	}

	ch, cancel := channel.Subscribe(context.Background())
	s.stop = cancel
	go s.consume(ch)
	return s
}

// consume drops cache entries as invalidations arrive. Invalidating an absent
// key is a no-op, so duplicate or out-of-order events are harmless.
func (s *Service) consume(ch <-chan events.Invalidation) {
	defer close(s.done)
	for event := range ch {
		s.cache.Delete(context.Background(), models.NormalizeHostname(event.Hostname))
		s.logger.Debug("cache invalidated", "hostname", event.Hostname)
	}
}

// Resolve maps a hostname to its tenant. Cache hits skip the store entirely;
// misses read the domain record and join organization and store metadata.
func (s *Service) Resolve(ctx context.Context, host string) (*models.ResolvedTenant, error) {
	host = models.NormalizeHostname(host)

	if tenant, ok := s.cache.Get(ctx, host); ok {
		return tenant, nil
	}

	record, err := s.store.Domains().GetByHostname(ctx, host)
	if err != nil {
		return nil, err
	}

	org, err := s.store.Orgs().Get(ctx, record.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("joining organization %s: %w", record.OrganizationID, err)
	}

	tenant := &models.ResolvedTenant{
		Hostname:       record.Hostname,
		DomainType:     record.DomainType,
		Status:         record.Status,
		SSLStatus:      record.SSLStatus,
		IsPrimary:      record.IsPrimary,
		Config:         record.Config,
		OrganizationID: record.OrganizationID,
		Organization:   models.TenantRef{ID: org.ID, Name: org.Name, Slug: org.Slug},
		ResolvedAt:     time.Now().UTC(),
	}
	if record.StoreID != "" {
		sf, err := s.store.Storefronts().Get(ctx, record.StoreID)
		if err != nil {
			return nil, fmt.Errorf("joining store %s: %w", record.StoreID, err)
		}
		tenant.StoreID = sf.ID
		tenant.Store = &models.TenantRef{ID: sf.ID, Name: sf.Name, Slug: sf.Slug}
	}

	// Last writer wins under concurrent miss-fill; both values are fresh.
	s.cache.Set(ctx, host, tenant)
	return tenant, nil
}

// Check reports whether a hostname is free to register and, when taken, its
// current state. It bypasses the cache: availability must reflect the store.
func (s *Service) Check(ctx context.Context, host string) (*CheckResult, error) {
	host = models.NormalizeHostname(host)

	record, err := s.store.Domains().GetByHostname(ctx, host)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &CheckResult{
				Hostname:        host,
				Available:       true,
				PlatformManaged: s.classifier.Managed(host),
			}, nil
		}
		return nil, err
	}
	return &CheckResult{
		Hostname:        host,
		Available:       false,
		Configured:      true,
		Active:          record.Status == models.StatusActive,
		PlatformManaged: s.classifier.Managed(host),
		DomainType:      record.DomainType,
		OrganizationID:  record.OrganizationID,
		StoreID:         record.StoreID,
	}, nil
}

// Invalidate drops a single hostname from the cache.
func (s *Service) Invalidate(ctx context.Context, host string) {
	s.cache.Delete(ctx, models.NormalizeHostname(host))
}

// InvalidateAll flushes the whole cache.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.cache.Flush(ctx)
}

// Close stops the invalidation subscription.
func (s *Service) Close() error {
	s.stopOnce.Do(s.stop)
	<-s.done
	return nil
}
