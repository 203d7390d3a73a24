// Package hostname classifies hostnames against the platform base domain.
package hostname

import (
	"strings"

	"github.com/vendix/platform/internal/models"
)

// Classifier derives the domain type of a hostname. It is a pure function
// over the hostname, the platform base domain, and whether the record is
// store-scoped; it performs no I/O.
type Classifier struct {
	baseDomain string
	baseLabels int
}

// NewClassifier creates a classifier for the given platform base domain,
// e.g. "vendix.com".
func NewClassifier(baseDomain string) *Classifier {
	base := models.NormalizeHostname(baseDomain)
	return &Classifier{
		baseDomain: base,
		baseLabels: strings.Count(base, ".") + 1,
	}
}

// BaseDomain returns the configured platform base domain.
func (c *Classifier) BaseDomain() string {
	return c.baseDomain
}

// Managed reports whether a hostname falls under the platform base domain.
func (c *Classifier) Managed(hostname string) bool {
	hostname = models.NormalizeHostname(hostname)
	return hostname == c.baseDomain || strings.HasSuffix(hostname, "."+c.baseDomain)
}

// Classify returns the domain type for a normalized hostname. hasStore
// indicates whether the record is scoped to a store.
//
// Hostnames under the base domain are platform-managed: the base domain
// itself is the core type, one extra label is an organization or store
// subdomain depending on scope, and two or more extra labels are always
// store subdomains. Anything outside the base domain is external.
func (c *Classifier) Classify(hostname string, hasStore bool) models.DomainType {
	hostname = models.NormalizeHostname(hostname)

	if c.Managed(hostname) {
		labels := strings.Count(hostname, ".") + 1
		switch labels - c.baseLabels {
		case 0:
			return models.DomainTypeCore
		case 1:
			if hasStore {
				return models.DomainTypeStoreSubdomain
			}
			return models.DomainTypeOrgSubdomain
		default:
			return models.DomainTypeStoreSubdomain
		}
	}

	if hasStore {
		return models.DomainTypeStoreCustom
	}
	return models.DomainTypeOrgRoot
}
