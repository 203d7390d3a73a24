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

// DomainStore implements store.DomainStore using PostgreSQL.
type DomainStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *DomainStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const domainColumns = `
	id, hostname, organization_id, COALESCE(store_id, ''), domain_type,
	status, ssl_status, is_primary, COALESCE(verification_token, ''),
	config, last_verified_at, COALESCE(last_error, ''), created_at, updated_at
	`

// Create inserts a new domain record.
func (s *DomainStore) Create(ctx context.Context, record *models.DomainRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	query := `
		INSERT INTO domain_settings (
			id, hostname, organization_id, store_id, domain_type, status,
			ssl_status, is_primary, verification_token, config,
			last_verified_at, last_error, created_at, updated_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), $10, $11, NULLIF($12, ''), $13, $14)`

	_, err := s.conn().ExecContext(ctx, query,
		record.ID,
		record.Hostname,
		record.OrganizationID,
		record.StoreID,
		record.DomainType,
		record.Status,
		record.SSLStatus,
		record.IsPrimary,
		record.VerificationToken,
		record.Config,
		record.LastVerifiedAt,
		record.LastError,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if isPrimaryScopeViolation(err) {
			return store.ErrDuplicatePrimary
		}
		if isUniqueViolation(err) {
			return store.ErrDuplicateHostname
		}
		return fmt.Errorf("inserting domain record: %w", err)
	}
	return nil
}

// Get retrieves a domain record by ID.
func (s *DomainStore) Get(ctx context.Context, id string) (*models.DomainRecord, error) {
	query := `SELECT` + domainColumns + `FROM domain_settings WHERE id = $1`
	return s.scanOne(s.conn().QueryRowContext(ctx, query, id))
}

// GetByHostname retrieves a domain record by its normalized hostname.
func (s *DomainStore) GetByHostname(ctx context.Context, hostname string) (*models.DomainRecord, error) {
	query := `SELECT` + domainColumns + `FROM domain_settings WHERE hostname = $1`
	return s.scanOne(s.conn().QueryRowContext(ctx, query, hostname))
}

// List retrieves domain records matching the filter plus the unbounded total.
func (s *DomainStore) List(ctx context.Context, filter store.DomainFilter) ([]*models.DomainRecord, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		where += fmt.Sprintf(" AND organization_id = $%d", len(args))
	}
	if filter.StoreID != "" {
		args = append(args, filter.StoreID)
		where += fmt.Sprintf(" AND store_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND hostname LIKE $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM domain_settings" + where
	if err := s.conn().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting domain records: %w", err)
	}

	query := `SELECT` + domainColumns + `FROM domain_settings` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying domain records: %w", err)
	}
	defer rows.Close()

	var records []*models.DomainRecord
	for rows.Next() {
		record, err := s.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating domain records: %w", err)
	}

	return records, total, nil
}

// Update persists all mutable fields of the record.
func (s *DomainStore) Update(ctx context.Context, record *models.DomainRecord) error {
	record.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE domain_settings
		SET domain_type = $2, status = $3, ssl_status = $4, is_primary = $5,
		    verification_token = NULLIF($6, ''), config = $7,
		    last_verified_at = $8, last_error = NULLIF($9, ''), updated_at = $10
		WHERE hostname = $1`

	result, err := s.conn().ExecContext(ctx, query,
		record.Hostname,
		record.DomainType,
		record.Status,
		record.SSLStatus,
		record.IsPrimary,
		record.VerificationToken,
		record.Config,
		record.LastVerifiedAt,
		record.LastError,
		record.UpdatedAt,
	)
	if err != nil {
		if isPrimaryScopeViolation(err) {
			return store.ErrDuplicatePrimary
		}
		return fmt.Errorf("updating domain record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes a domain record by hostname.
func (s *DomainStore) Delete(ctx context.Context, hostname string) error {
	result, err := s.conn().ExecContext(ctx, `DELETE FROM domain_settings WHERE hostname = $1`, hostname)
	if err != nil {
		return fmt.Errorf("deleting domain record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetPrimary returns the primary record of a scope. Inside a transaction the
// row is locked so a concurrent primary flip waits for the caller.
func (s *DomainStore) GetPrimary(ctx context.Context, scope models.PrimaryScope) (*models.DomainRecord, error) {
	query := `SELECT` + domainColumns + `
		FROM domain_settings
		WHERE organization_id = $1 AND COALESCE(store_id, '') = $2
		  AND domain_type = $3 AND is_primary`
	if s.tx != nil {
		query += " FOR UPDATE"
	}
	return s.scanOne(s.conn().QueryRowContext(ctx, query, scope.OrganizationID, scope.StoreID, scope.DomainType))
}

// ClearPrimary unsets the primary flag on every record in the scope.
func (s *DomainStore) ClearPrimary(ctx context.Context, scope models.PrimaryScope) error {
	query := `
		UPDATE domain_settings
		SET is_primary = FALSE, updated_at = $4
		WHERE organization_id = $1 AND COALESCE(store_id, '') = $2
		  AND domain_type = $3 AND is_primary`

	_, err := s.conn().ExecContext(ctx, query,
		scope.OrganizationID, scope.StoreID, scope.DomainType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clearing primary domain: %w", err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *DomainStore) scanOne(row *sql.Row) (*models.DomainRecord, error) {
	record, err := s.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *DomainStore) scanRow(row rowScanner) (*models.DomainRecord, error) {
	record := &models.DomainRecord{}
	var lastVerifiedAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.Hostname,
		&record.OrganizationID,
		&record.StoreID,
		&record.DomainType,
		&record.Status,
		&record.SSLStatus,
		&record.IsPrimary,
		&record.VerificationToken,
		&record.Config,
		&lastVerifiedAt,
		&record.LastError,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning domain record: %w", err)
	}

	if lastVerifiedAt.Valid {
		t := lastVerifiedAt.Time
		record.LastVerifiedAt = &t
	}
	return record, nil
}
