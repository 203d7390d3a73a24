// Package models provides data structures for the Vendix platform.
package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Organization represents a top-level tenant grouping all stores and domains.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"` // URL-friendly identifier
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store represents a single storefront belonging to an organization.
type Store struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validation errors for organizations and stores.
var (
	ErrOrgNameRequired = errors.New("organization name is required")
	ErrOrgNameTooLong  = errors.New("organization name must be 63 characters or less")
	ErrSlugRequired    = errors.New("slug is required")
	ErrSlugTooLong     = errors.New("slug must be 63 characters or less")
	ErrSlugInvalid     = errors.New("slug must contain only lowercase letters, numbers, and hyphens")
)

// slugPattern matches valid slug characters: lowercase letters, numbers, and hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// Validate validates the organization fields.
func (o *Organization) Validate() error {
	name := strings.TrimSpace(o.Name)
	if name == "" {
		return ErrOrgNameRequired
	}
	if len(name) > 63 {
		return ErrOrgNameTooLong
	}
	return validateSlug(o.Slug)
}

// Validate validates the store fields.
func (s *Store) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ErrOrgNameRequired
	}
	if len(name) > 63 {
		return ErrOrgNameTooLong
	}
	return validateSlug(s.Slug)
}

func validateSlug(slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ErrSlugRequired
	}
	if len(slug) > 63 {
		return ErrSlugTooLong
	}
	if !slugPattern.MatchString(slug) {
		return ErrSlugInvalid
	}
	return nil
}
