// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vendix/platform/internal/models"
)

// Common store errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateHostname is returned when a hostname is already registered.
	ErrDuplicateHostname = errors.New("hostname already registered")

	// ErrDuplicateSlug is returned when an organization or store slug is taken.
	ErrDuplicateSlug = errors.New("duplicate slug")

	// ErrDuplicatePrimary is returned when a write would leave two primary
	// records in one scope. The Postgres backend raises it from the partial
	// unique index on (organization_id, store_id, domain_type) WHERE
	// is_primary, which closes the window two concurrent writers have between
	// checking a scope and inserting into it.
	ErrDuplicatePrimary = errors.New("scope already has a primary domain")
)

// DomainFilter narrows domain listings.
type DomainFilter struct {
	OrganizationID string
	StoreID        string
	// Search matches a substring of the hostname.
	Search string
	Limit  int
	Offset int
}

// DomainStore defines operations for domain record persistence.
type DomainStore interface {
	// Create inserts a new record. Returns ErrDuplicateHostname when the
	// hostname is already registered.
	Create(ctx context.Context, record *models.DomainRecord) error
	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*models.DomainRecord, error)
	// GetByHostname retrieves a record by its normalized hostname.
	GetByHostname(ctx context.Context, hostname string) (*models.DomainRecord, error)
	// List retrieves records matching the filter plus the unbounded total.
	List(ctx context.Context, filter DomainFilter) ([]*models.DomainRecord, int, error)
	// Update persists all mutable fields of the record.
	Update(ctx context.Context, record *models.DomainRecord) error
	// Delete removes a record by hostname.
	Delete(ctx context.Context, hostname string) error
	// GetPrimary returns the primary record of a scope, or ErrNotFound.
	GetPrimary(ctx context.Context, scope models.PrimaryScope) (*models.DomainRecord, error)
	// ClearPrimary unsets the primary flag on every record in the scope.
	ClearPrimary(ctx context.Context, scope models.PrimaryScope) error
}

// OrgStore defines operations for organization lookup and management.
type OrgStore interface {
	// Create creates a new organization.
	Create(ctx context.Context, org *models.Organization) error
	// Get retrieves an organization by ID.
	Get(ctx context.Context, id string) (*models.Organization, error)
	// GetBySlug retrieves an organization by slug.
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// StorefrontStore defines operations for store lookup and management.
type StorefrontStore interface {
	// Create creates a new store.
	Create(ctx context.Context, s *models.Store) error
	// Get retrieves a store by ID.
	Get(ctx context.Context, id string) (*models.Store, error)
}

// Store is the main interface for database operations.
type Store interface {
	// Domains returns the DomainStore for domain record operations.
	Domains() DomainStore
	// Orgs returns the OrgStore for organization operations.
	Orgs() OrgStore
	// Storefronts returns the StorefrontStore for store operations.
	Storefronts() StorefrontStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed. Row locks taken inside the
	// function are held until it returns.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store.
	Close() error
}
