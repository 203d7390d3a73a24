// Package registry implements the administrative domain-record service:
// creation with classification and token issuance, config updates, deletion,
// duplication, and the scoped primary-domain invariant.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/hostname"
	"github.com/vendix/platform/internal/models"
	"github.com/vendix/platform/internal/store"
)

// Service errors beyond the store sentinels.
var (
	// ErrOrganizationNotFound is returned when the referenced organization
	// does not exist.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrStoreNotFound is returned when the referenced store does not exist
	// or belongs to a different organization.
	ErrStoreNotFound = errors.New("store not found")

	// ErrInvalidDomainType is returned for an unknown explicit domain type.
	ErrInvalidDomainType = errors.New("invalid domain type")

	// ErrInvalidStatus is returned for an unknown domain status.
	ErrInvalidStatus = errors.New("invalid domain status")

	// ErrInvalidSSLStatus is returned for an unknown SSL status.
	ErrInvalidSSLStatus = errors.New("invalid ssl status")
)

// CreateInput carries the fields of a domain creation request.
type CreateInput struct {
	Hostname       string
	OrganizationID string
	StoreID        string
	Config         models.DomainConfig

	// DomainType overrides the classifier when set.
	DomainType models.DomainType
	// IsPrimary requests (or refuses) the primary flag. Nil leaves the
	// decision to the first-domain-in-scope default.
	IsPrimary *bool
}

// UpdateInput carries the mutable fields of an update request. Nil fields are
// left untouched; Config is deep-merged into the existing config.
type UpdateInput struct {
	Config     *models.DomainConfig
	DomainType *models.DomainType
	Status     *models.DomainStatus
	SSLStatus  *models.SSLStatus
	IsPrimary  *bool
}

// HostnameCheck is the outcome of a standalone hostname validation.
type HostnameCheck struct {
	Hostname string `json:"hostname"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

// Service owns the durable domain records.
type Service struct {
	store      store.Store
	classifier *hostname.Classifier
	channel    events.Channel
	logger     *slog.Logger
}

// NewService creates a registry service.
func NewService(st store.Store, classifier *hostname.Classifier, channel events.Channel, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		classifier: classifier,
		channel:    channel,
		logger:     logger,
	}
}

// Create registers a new domain record. The hostname is normalized and
// validated, the tenant references are checked, the type is classified unless
// explicitly provided, and the primary flag is resolved atomically within the
// record's scope.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.DomainRecord, error) {
	host := models.NormalizeHostname(input.Hostname)
	if err := models.ValidateHostname(host); err != nil {
		return nil, err
	}

	if _, err := s.store.Orgs().Get(ctx, input.OrganizationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, input.OrganizationID)
		}
		return nil, fmt.Errorf("looking up organization: %w", err)
	}
	if input.StoreID != "" {
		sf, err := s.store.Storefronts().Get(ctx, input.StoreID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, input.StoreID)
			}
			return nil, fmt.Errorf("looking up store: %w", err)
		}
		if sf.OrganizationID != input.OrganizationID {
			return nil, fmt.Errorf("%w: %s does not belong to organization %s", ErrStoreNotFound, input.StoreID, input.OrganizationID)
		}
	}

	domainType := input.DomainType
	if domainType == "" {
		domainType = s.classifier.Classify(host, input.StoreID != "")
	} else if !domainType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomainType, domainType)
	}

	record := &models.DomainRecord{
		Hostname:       host,
		OrganizationID: input.OrganizationID,
		StoreID:        input.StoreID,
		DomainType:     domainType,
		Status:         models.StatusActive,
		SSLStatus:      models.SSLNone,
		Config:         input.Config,
	}
	// Only externally-routed custom store domains start unverified; platform
	// subdomains and org roots serve immediately.
	if domainType == models.DomainTypeStoreCustom {
		record.Status = models.StatusPendingDNS
	}
	if domainType.External() {
		token, err := generateVerificationToken()
		if err != nil {
			return nil, fmt.Errorf("issuing verification token: %w", err)
		}
		record.VerificationToken = token
	}

	// The clear-then-set primary sequence must be atomic with the insert, so
	// the whole decision runs inside one transaction.
	insert := func() error {
		return s.store.WithTx(ctx, func(tx store.Store) error {
			record.IsPrimary = false
			switch {
			case input.IsPrimary != nil && *input.IsPrimary:
				if err := tx.Domains().ClearPrimary(ctx, record.Scope()); err != nil {
					return err
				}
				record.IsPrimary = true
			case input.IsPrimary != nil:
			default:
				_, err := tx.Domains().GetPrimary(ctx, record.Scope())
				if errors.Is(err, store.ErrNotFound) {
					record.IsPrimary = true
				} else if err != nil {
					return err
				}
			}
			return tx.Domains().Create(ctx, record)
		})
	}
	err := insert()
	if errors.Is(err, store.ErrDuplicatePrimary) {
		// A concurrent writer claimed the scope's primary between our scope
		// check and the insert. Its row is committed and visible now, so one
		// re-run resolves the decision against it.
		err = insert()
	}
	if err != nil {
		return nil, err
	}

	s.channel.Publish(ctx, events.Invalidation{Hostname: host})
	s.logger.Info("domain record created",
		"hostname", host,
		"organization_id", record.OrganizationID,
		"store_id", record.StoreID,
		"domain_type", record.DomainType,
		"is_primary", record.IsPrimary,
	)
	return record, nil
}

// Get retrieves a record by normalized hostname.
func (s *Service) Get(ctx context.Context, host string) (*models.DomainRecord, error) {
	return s.store.Domains().GetByHostname(ctx, models.NormalizeHostname(host))
}

// GetByID retrieves a record by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*models.DomainRecord, error) {
	return s.store.Domains().Get(ctx, id)
}

// List retrieves records matching the filter plus the unbounded total.
func (s *Service) List(ctx context.Context, filter store.DomainFilter) ([]*models.DomainRecord, int, error) {
	return s.store.Domains().List(ctx, filter)
}

// GetOrganizationBySlug resolves an organization from its slug, for callers
// that filter listings by slug instead of ID.
func (s *Service) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.store.Orgs().GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, slug)
		}
		return nil, err
	}
	return org, nil
}

// Update applies a partial update. Config patches deep-merge into the stored
// config; flipping IsPrimary to true re-runs the clear-then-set sequence. An
// empty input still bumps updatedAt.
func (s *Service) Update(ctx context.Context, host string, input UpdateInput) (*models.DomainRecord, error) {
	host = models.NormalizeHostname(host)

	if input.DomainType != nil && !input.DomainType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomainType, *input.DomainType)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *input.Status)
	}
	if input.SSLStatus != nil && !input.SSLStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSSLStatus, *input.SSLStatus)
	}

	var record *models.DomainRecord
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		record, err = tx.Domains().GetByHostname(ctx, host)
		if err != nil {
			return err
		}

		if input.Config != nil {
			record.Config = record.Config.Merge(*input.Config)
		}
		if input.DomainType != nil && *input.DomainType != record.DomainType {
			wasExternal := record.DomainType.External()
			record.DomainType = *input.DomainType

			// The verification token exists iff the type requires external
			// DNS ownership proof; a type flip reconciles it. A record newly
			// typed as a custom store domain restarts the DNS lifecycle, the
			// same entry point create gives it.
			switch {
			case record.DomainType.External() && !wasExternal:
				token, err := generateVerificationToken()
				if err != nil {
					return fmt.Errorf("issuing verification token: %w", err)
				}
				record.VerificationToken = token
				if record.DomainType == models.DomainTypeStoreCustom {
					record.Status = models.StatusPendingDNS
				}
			case !record.DomainType.External() && wasExternal:
				record.VerificationToken = ""
			}
		}
		if input.Status != nil {
			record.Status = *input.Status
		}
		if input.SSLStatus != nil {
			record.SSLStatus = *input.SSLStatus
		}
		if input.IsPrimary != nil {
			if *input.IsPrimary && !record.IsPrimary {
				if err := tx.Domains().ClearPrimary(ctx, record.Scope()); err != nil {
					return err
				}
			}
			record.IsPrimary = *input.IsPrimary
		}
		return tx.Domains().Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.channel.Publish(ctx, events.Invalidation{Hostname: host})
	return record, nil
}

// Delete removes a record by hostname.
func (s *Service) Delete(ctx context.Context, host string) error {
	host = models.NormalizeHostname(host)
	if err := s.store.Domains().Delete(ctx, host); err != nil {
		return err
	}
	s.channel.Publish(ctx, events.Invalidation{Hostname: host})
	s.logger.Info("domain record deleted", "hostname", host)
	return nil
}

// Duplicate registers targetHost as a copy of sourceHost's tenant references
// and config. The copy never inherits the source's primary flag; it becomes
// primary only when its scope has no primary yet.
func (s *Service) Duplicate(ctx context.Context, sourceHost, targetHost string) (*models.DomainRecord, error) {
	source, err := s.store.Domains().GetByHostname(ctx, models.NormalizeHostname(sourceHost))
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateInput{
		Hostname:       targetHost,
		OrganizationID: source.OrganizationID,
		StoreID:        source.StoreID,
		Config:         source.Config,
	})
}

// ValidateHostname reports whether the hostname is acceptable without
// touching the store.
func (s *Service) ValidateHostname(host string) HostnameCheck {
	normalized := models.NormalizeHostname(host)
	if err := models.ValidateHostname(normalized); err != nil {
		return HostnameCheck{Hostname: normalized, Valid: false, Reason: err.Error()}
	}
	return HostnameCheck{Hostname: normalized, Valid: true}
}

// generateVerificationToken produces the opaque secret a domain owner must
// publish via a TXT record.
func generateVerificationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "vendix-verify-" + hex.EncodeToString(buf), nil
}
