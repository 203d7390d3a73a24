package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
)

// StorefrontStore implements store.StorefrontStore using PostgreSQL.
type StorefrontStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *StorefrontStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create creates a new store.
func (s *StorefrontStore) Create(ctx context.Context, sf *models.Store) error {
	if err := sf.Validate(); err != nil {
		return fmt.Errorf("validating store: %w", err)
	}
	if sf.ID == "" {
		sf.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if sf.CreatedAt.IsZero() {
		sf.CreatedAt = now
	}
	sf.UpdatedAt = sf.CreatedAt

	query := `
		INSERT INTO stores (id, organization_id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.conn().ExecContext(ctx, query,
		sf.ID, sf.OrganizationID, sf.Name, sf.Slug, sf.CreatedAt, sf.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateSlug
		}
		return fmt.Errorf("inserting store: %w", err)
	}
	return nil
}

// Get retrieves a store by ID.
func (s *StorefrontStore) Get(ctx context.Context, id string) (*models.Store, error) {
	query := `
		SELECT id, organization_id, name, slug, created_at, updated_at
		FROM stores
		WHERE id = $1`

	sf := &models.Store{}
	err := s.conn().QueryRowContext(ctx, query, id).Scan(
		&sf.ID, &sf.OrganizationID, &sf.Name, &sf.Slug, &sf.CreatedAt, &sf.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying store: %w", err)
	}
	return sf, nil
}
