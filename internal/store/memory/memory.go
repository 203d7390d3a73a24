// Package memory provides an in-memory implementation of the store interfaces
// for tests and single-process development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
)

// MemoryStore implements store.Store with mutex-guarded maps.
//
// WithTx serializes callers on a single mutex, which gives the same
// clear-then-set atomicity the Postgres implementation gets from row locks.
type MemoryStore struct {
	mu sync.Mutex

	domainsByHost map[string]*models.DomainRecord
	orgs          map[string]*models.Organization
	stores        map[string]*models.Store

	domains     *DomainStore
	orgStore    *OrgStore
	storefronts *StorefrontStore
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		domainsByHost: make(map[string]*models.DomainRecord),
		orgs:          make(map[string]*models.Organization),
		stores:        make(map[string]*models.Store),
	}
	s.domains = &DomainStore{root: s}
	s.orgStore = &OrgStore{root: s}
	s.storefronts = &StorefrontStore{root: s}
	return s
}

// Domains returns the DomainStore.
func (s *MemoryStore) Domains() store.DomainStore { return s.domains }

// Orgs returns the OrgStore.
func (s *MemoryStore) Orgs() store.OrgStore { return s.orgStore }

// Storefronts returns the StorefrontStore.
func (s *MemoryStore) Storefronts() store.StorefrontStore { return s.storefronts }

// WithTx runs fn while holding the store mutex.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txStore{root: s})
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// txStore exposes the same data without re-locking; the transaction already
// holds the store mutex.
type txStore struct {
	root *MemoryStore
}

func (t *txStore) Domains() store.DomainStore         { return &DomainStore{root: t.root, inTx: true} }
func (t *txStore) Orgs() store.OrgStore               { return &OrgStore{root: t.root, inTx: true} }
func (t *txStore) Storefronts() store.StorefrontStore { return &StorefrontStore{root: t.root, inTx: true} }
func (t *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(t)
}
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) Close() error                   { return nil }

// DomainStore implements store.DomainStore in memory.
type DomainStore struct {
	root *MemoryStore
	inTx bool
}

func (s *DomainStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.root.mu.Lock()
	return s.root.mu.Unlock
}

func (s *DomainStore) Create(ctx context.Context, record *models.DomainRecord) error {
	defer s.lock()()

	if _, exists := s.root.domainsByHost[record.Hostname]; exists {
		return store.ErrDuplicateHostname
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	clone := *record
	s.root.domainsByHost[record.Hostname] = &clone
	return nil
}

func (s *DomainStore) Get(ctx context.Context, id string) (*models.DomainRecord, error) {
	defer s.lock()()

	for _, record := range s.root.domainsByHost {
		if record.ID == id {
			clone := *record
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *DomainStore) GetByHostname(ctx context.Context, hostname string) (*models.DomainRecord, error) {
	defer s.lock()()

	record, ok := s.root.domainsByHost[hostname]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *DomainStore) List(ctx context.Context, filter store.DomainFilter) ([]*models.DomainRecord, int, error) {
	defer s.lock()()

	var matched []*models.DomainRecord
	for _, record := range s.root.domainsByHost {
		if filter.OrganizationID != "" && record.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.StoreID != "" && record.StoreID != filter.StoreID {
			continue
		}
		if filter.Search != "" && !strings.Contains(record.Hostname, filter.Search) {
			continue
		}
		clone := *record
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *DomainStore) Update(ctx context.Context, record *models.DomainRecord) error {
	defer s.lock()()

	if _, ok := s.root.domainsByHost[record.Hostname]; !ok {
		return store.ErrNotFound
	}
	record.UpdatedAt = time.Now().UTC()
	clone := *record
	s.root.domainsByHost[record.Hostname] = &clone
	return nil
}

func (s *DomainStore) Delete(ctx context.Context, hostname string) error {
	defer s.lock()()

	if _, ok := s.root.domainsByHost[hostname]; !ok {
		return store.ErrNotFound
	}
	delete(s.root.domainsByHost, hostname)
	return nil
}

func (s *DomainStore) GetPrimary(ctx context.Context, scope models.PrimaryScope) (*models.DomainRecord, error) {
	defer s.lock()()

	for _, record := range s.root.domainsByHost {
		if record.IsPrimary && record.Scope() == scope {
			clone := *record
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *DomainStore) ClearPrimary(ctx context.Context, scope models.PrimaryScope) error {
	defer s.lock()()

	now := time.Now().UTC()
	for _, record := range s.root.domainsByHost {
		if record.IsPrimary && record.Scope() == scope {
			record.IsPrimary = false
			record.UpdatedAt = now
		}
	}
	return nil
}

// OrgStore implements store.OrgStore in memory.
type OrgStore struct {
	root *MemoryStore
	inTx bool
}

func (s *OrgStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.root.mu.Lock()
	return s.root.mu.Unlock
}

func (s *OrgStore) Create(ctx context.Context, org *models.Organization) error {
	if err := org.Validate(); err != nil {
		return err
	}

	defer s.lock()()

	for _, existing := range s.root.orgs {
		if existing.Slug == org.Slug {
			return store.ErrDuplicateSlug
		}
	}
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = org.CreatedAt

	clone := *org
	s.root.orgs[org.ID] = &clone
	return nil
}

func (s *OrgStore) Get(ctx context.Context, id string) (*models.Organization, error) {
	defer s.lock()()

	org, ok := s.root.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *org
	return &clone, nil
}

func (s *OrgStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	defer s.lock()()

	for _, org := range s.root.orgs {
		if org.Slug == slug {
			clone := *org
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

// StorefrontStore implements store.StorefrontStore in memory.
type StorefrontStore struct {
	root *MemoryStore
	inTx bool
}

func (s *StorefrontStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.root.mu.Lock()
	return s.root.mu.Unlock
}

func (s *StorefrontStore) Create(ctx context.Context, sf *models.Store) error {
	if err := sf.Validate(); err != nil {
		return err
	}

	defer s.lock()()

	if sf.ID == "" {
		sf.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if sf.CreatedAt.IsZero() {
		sf.CreatedAt = now
	}
	sf.UpdatedAt = sf.CreatedAt

	clone := *sf
	s.root.stores[sf.ID] = &clone
	return nil
}

func (s *StorefrontStore) Get(ctx context.Context, id string) (*models.Store, error) {
	defer s.lock()()

	sf, ok := s.root.stores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *sf
	return &clone, nil
}
