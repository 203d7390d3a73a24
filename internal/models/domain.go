package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// DomainType classifies a hostname's relationship to the platform.
type DomainType string

const (
	// DomainTypeCore is the platform base domain itself.
	DomainTypeCore DomainType = "vendix_core"
	// DomainTypeOrgSubdomain is an organization subdomain under the base domain.
	DomainTypeOrgSubdomain DomainType = "organization_subdomain"
	// DomainTypeStoreSubdomain is a store subdomain under the base domain.
	DomainTypeStoreSubdomain DomainType = "store_subdomain"
	// DomainTypeOrgRoot is an external domain owned by an organization.
	DomainTypeOrgRoot DomainType = "organization_root"
	// DomainTypeStoreCustom is an external domain serving a store.
	DomainTypeStoreCustom DomainType = "store_custom"
)

// Valid reports whether t is a known domain type.
func (t DomainType) Valid() bool {
	switch t {
	case DomainTypeCore, DomainTypeOrgSubdomain, DomainTypeStoreSubdomain,
		DomainTypeOrgRoot, DomainTypeStoreCustom:
		return true
	}
	return false
}

// External reports whether the hostname is controlled by a party outside the
// platform and therefore subject to DNS ownership verification.
func (t DomainType) External() bool {
	return t == DomainTypeStoreCustom || t == DomainTypeOrgRoot
}

// DomainStatus is the verification lifecycle state of a domain record.
type DomainStatus string

const (
	// StatusPendingDNS means ownership has not been proven yet.
	StatusPendingDNS DomainStatus = "pending_dns"
	// StatusFailedDNS means the last verification attempt failed.
	StatusFailedDNS DomainStatus = "failed_dns"
	// StatusPendingSSL means DNS checks passed and certificate issuance is due.
	StatusPendingSSL DomainStatus = "pending_ssl"
	// StatusActive means the domain serves traffic.
	StatusActive DomainStatus = "active"
)

// Valid reports whether s is a known domain status.
func (s DomainStatus) Valid() bool {
	switch s {
	case StatusPendingDNS, StatusFailedDNS, StatusPendingSSL, StatusActive:
		return true
	}
	return false
}

// SSLStatus tracks certificate issuance for a domain record.
type SSLStatus string

const (
	SSLNone    SSLStatus = "none"
	SSLPending SSLStatus = "pending"
	SSLIssued  SSLStatus = "issued"
)

// Valid reports whether s is a known SSL status.
func (s SSLStatus) Valid() bool {
	switch s {
	case SSLNone, SSLPending, SSLIssued:
		return true
	}
	return false
}

// DomainRecord is the durable mapping from a hostname to an organization and
// optionally a store.
//
// Invariants:
//   - Hostname is globally unique, stored lowercase, at most 253 characters.
//   - At most one record per (organization, store, type) scope has IsPrimary set.
//   - VerificationToken is present only for externally controlled types.
type DomainRecord struct {
	ID                string        `json:"id"`
	Hostname          string        `json:"hostname"`
	OrganizationID    string        `json:"organizationId"`
	StoreID           string        `json:"storeId,omitempty"`
	DomainType        DomainType    `json:"domainType"`
	Status            DomainStatus  `json:"status"`
	SSLStatus         SSLStatus     `json:"sslStatus"`
	IsPrimary         bool          `json:"isPrimary"`
	VerificationToken string        `json:"verificationToken,omitempty"`
	Config            DomainConfig  `json:"config"`
	LastVerifiedAt    *time.Time    `json:"lastVerifiedAt,omitempty"`
	LastError         string        `json:"lastError,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// PrimaryScope identifies the uniqueness scope of the primary-domain flag.
type PrimaryScope struct {
	OrganizationID string
	StoreID        string // empty for org-level domains
	DomainType     DomainType
}

// Scope returns the record's primary-domain scope.
func (r *DomainRecord) Scope() PrimaryScope {
	return PrimaryScope{
		OrganizationID: r.OrganizationID,
		StoreID:        r.StoreID,
		DomainType:     r.DomainType,
	}
}

// Verifiable reports whether the record's type is subject to DNS verification.
func (r *DomainRecord) Verifiable() bool {
	return r.DomainType.External()
}

// Hostname validation errors.
var (
	ErrHostnameRequired = errors.New("hostname is required")
	ErrHostnameTooLong  = errors.New("hostname must be 253 characters or less")
	ErrHostnameInvalid  = errors.New("hostname contains invalid labels")
)

// labelPattern matches a single RFC 1123 hostname label.
var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// NormalizeHostname lowercases and trims a hostname, dropping a single
// trailing dot if present.
func NormalizeHostname(hostname string) string {
	h := strings.ToLower(strings.TrimSpace(hostname))
	return strings.TrimSuffix(h, ".")
}

// ValidateHostname checks RFC 1123 label syntax and overall length.
// The hostname is expected to be normalized already.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return ErrHostnameRequired
	}
	if len(hostname) > 253 {
		return ErrHostnameTooLong
	}
	labels := strings.Split(hostname, ".")
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return ErrHostnameInvalid
		}
		if !labelPattern.MatchString(label) {
			return ErrHostnameInvalid
		}
	}
	return nil
}
