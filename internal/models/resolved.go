package models

import "time"

// ResolvedTenant is the denormalized read view served on the resolution hot
// path: the domain record joined with organization and store display
// metadata. It is derived state, rebuilt on every cache miss.
type ResolvedTenant struct {
	Hostname       string       `json:"hostname"`
	DomainType     DomainType   `json:"domainType"`
	Status         DomainStatus `json:"status"`
	SSLStatus      SSLStatus    `json:"sslStatus"`
	IsPrimary      bool         `json:"isPrimary"`
	Config         DomainConfig `json:"config"`
	OrganizationID string       `json:"organizationId"`
	Organization   TenantRef    `json:"organization"`
	StoreID        string       `json:"storeId,omitempty"`
	Store          *TenantRef   `json:"store,omitempty"`
	ResolvedAt     time.Time    `json:"resolvedAt"`
}

// TenantRef carries the display metadata joined into a resolution result.
type TenantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
