package postgres

import "strings"

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL error code 23505 is unique_violation
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "duplicate key")
}

// isPrimaryScopeViolation distinguishes the partial primary-scope index from
// the hostname key, so callers can tell a lost primary race from a duplicate
// hostname.
func isPrimaryScopeViolation(err error) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), "idx_domain_settings_primary")
}
