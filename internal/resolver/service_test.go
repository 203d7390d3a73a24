package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/hostname"
	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
	"github.com/vendix/platform/internal/store/memory"
)

var testClassifier = hostname.NewClassifier("vendix.com")

// countingStore counts hostname lookups so tests can observe cache hits.
type countingStore struct {
	store.Store
	hostnameLookups atomic.Int64
}

func (c *countingStore) Domains() store.DomainStore {
	return &countingDomains{DomainStore: c.Store.Domains(), counter: &c.hostnameLookups}
}

type countingDomains struct {
	store.DomainStore
	counter *atomic.Int64
}

func (c *countingDomains) GetByHostname(ctx context.Context, hostname string) (*models.DomainRecord, error) {
	c.counter.Add(1)
	return c.DomainStore.GetByHostname(ctx, hostname)
}

func seedTenant(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	if err := st.Orgs().Create(ctx, &models.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}); err != nil {
		t.Fatalf("seeding organization: %v", err)
	}
	if err := st.Storefronts().Create(ctx, &models.Store{ID: "store-1", OrganizationID: "org-1", Name: "Acme Outlet", Slug: "acme-outlet"}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	record := &models.DomainRecord{
		Hostname:       "shop.example.com",
		OrganizationID: "org-1",
		StoreID:        "store-1",
		DomainType:     models.DomainTypeStoreCustom,
		Status:         models.StatusActive,
		SSLStatus:      models.SSLIssued,
		IsPrimary:      true,
		Config:         models.DomainConfig{Theme: map[string]any{"name": "dark"}},
	}
	if err := st.Domains().Create(ctx, record); err != nil {
		t.Fatalf("seeding domain: %v", err)
	}
}

func TestResolveJoinsTenantMetadata(t *testing.T) {
	st := memory.NewMemoryStore()
	seedTenant(t, st)
	svc := NewService(st, NewMemoryCache(DefaultTTL), testClassifier, events.NewBroker(nil), nil)
	defer svc.Close()

	tenant, err := svc.Resolve(context.Background(), "SHOP.example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if tenant.Hostname != "shop.example.com" {
		t.Errorf("hostname = %q", tenant.Hostname)
	}
	if tenant.Organization.Slug != "acme" {
		t.Errorf("organization = %+v", tenant.Organization)
	}
	if tenant.Store == nil || tenant.Store.Slug != "acme-outlet" {
		t.Errorf("store = %+v", tenant.Store)
	}
	if tenant.Status != models.StatusActive {
		t.Errorf("status = %q", tenant.Status)
	}
	if tenant.Config.Theme["name"] != "dark" {
		t.Errorf("config = %v", tenant.Config.Theme)
	}
}

func TestResolveServesSecondCallFromCache(t *testing.T) {
	counting := &countingStore{Store: memory.NewMemoryStore()}
	seedTenant(t, counting.Store)
	svc := NewService(counting, NewMemoryCache(DefaultTTL), testClassifier, events.NewBroker(nil), nil)
	defer svc.Close()

	for i := 0; i < 2; i++ {
		if _, err := svc.Resolve(context.Background(), "shop.example.com"); err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
	}

	if got := counting.hostnameLookups.Load(); got != 1 {
		t.Errorf("store lookups = %d, want 1", got)
	}
}

func TestResolveNotFound(t *testing.T) {
	svc := NewService(memory.NewMemoryStore(), NewMemoryCache(DefaultTTL), testClassifier, events.NewBroker(nil), nil)
	defer svc.Close()

	_, err := svc.Resolve(context.Background(), "missing.example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInvalidationDropsCacheEntry(t *testing.T) {
	st := memory.NewMemoryStore()
	seedTenant(t, st)
	broker := events.NewBroker(nil)
	svc := NewService(st, NewMemoryCache(DefaultTTL), testClassifier, broker, nil)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Resolve(ctx, "shop.example.com"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	record, err := st.Domains().GetByHostname(ctx, "shop.example.com")
	if err != nil {
		t.Fatalf("GetByHostname: %v", err)
	}
	record.Config = record.Config.Merge(models.DomainConfig{Theme: map[string]any{"name": "light"}})
	if err := st.Domains().Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}
	broker.Publish(ctx, events.Invalidation{Hostname: "shop.example.com"})

	// The subscription processes asynchronously; poll until the fresh value
	// shows up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		tenant, err := svc.Resolve(ctx, "shop.example.com")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if tenant.Config.Theme["name"] == "light" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale config %v after invalidation", tenant.Config.Theme)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCheckAvailableHostname(t *testing.T) {
	svc := NewService(memory.NewMemoryStore(), NewMemoryCache(DefaultTTL), testClassifier, events.NewBroker(nil), nil)
	defer svc.Close()

	result, err := svc.Check(context.Background(), "Free.Example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Available || result.Configured || result.Active {
		t.Errorf("result = %+v, want available and unconfigured", result)
	}
	if result.Hostname != "free.example.com" {
		t.Errorf("hostname = %q, want normalized", result.Hostname)
	}
	if result.PlatformManaged {
		t.Error("external hostname should not be platform-managed")
	}

	result, err = svc.Check(context.Background(), "acme.vendix.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Available || !result.PlatformManaged {
		t.Errorf("result = %+v, want available and platform-managed", result)
	}
}

func TestCheckConfiguredHostname(t *testing.T) {
	st := memory.NewMemoryStore()
	seedTenant(t, st)
	svc := NewService(st, NewMemoryCache(DefaultTTL), testClassifier, events.NewBroker(nil), nil)
	defer svc.Close()

	result, err := svc.Check(context.Background(), "shop.example.com")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Available || !result.Configured || !result.Active {
		t.Errorf("result = %+v, want configured and active", result)
	}
	if result.OrganizationID != "org-1" || result.StoreID != "store-1" {
		t.Errorf("tenant refs = (%q, %q)", result.OrganizationID, result.StoreID)
	}
	if result.DomainType != models.DomainTypeStoreCustom {
		t.Errorf("domain type = %q", result.DomainType)
	}
}

func TestInvalidateAllFlushes(t *testing.T) {
	counting := &countingStore{Store: memory.NewMemoryStore()}
	seedTenant(t, counting.Store)
	svc := NewService(counting, NewMemoryCache(DefaultTTL), testClassifier, events.NewBroker(nil), nil)
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Resolve(ctx, "shop.example.com"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	svc.InvalidateAll(ctx)
	if _, err := svc.Resolve(ctx, "shop.example.com"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got := counting.hostnameLookups.Load(); got != 2 {
		t.Errorf("store lookups = %d, want 2 after a flush", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(50 * time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "shop.example.com", &models.ResolvedTenant{Hostname: "shop.example.com"})
	if _, ok := cache.Get(ctx, "shop.example.com"); !ok {
		t.Fatal("entry should be present before the TTL elapses")
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := cache.Get(ctx, "shop.example.com"); ok {
		t.Error("entry should expire after the TTL")
	}
}
