// Package repositories defines the data-access interfaces the authorization
// core consumes. Implementations live in subpackages; the gate and handlers
// depend only on these interfaces.
package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/opsdesk/opsdesk/models"
)

// ProfileRepository loads a subject's stored profile: role, tenant, and
// user-level permission overrides.
type ProfileRepository interface {
	// GetBySubject returns the profile for a verified subject ID, or
	// ErrNotFound when the subject has no profile row.
	GetBySubject(ctx context.Context, subjectID uuid.UUID) (*models.Profile, error)
}

// PolicyRepository loads a tenant's permission policy. Policies are loaded
// fresh per request; there is no caching guarantee.
type PolicyRepository interface {
	// GetCompanyPolicy returns the tenant's role policy document, or a nil
	// policy (with nil error) when the tenant has none.
	GetCompanyPolicy(ctx context.Context, companyID uuid.UUID) (models.CompanyPolicy, error)
}
