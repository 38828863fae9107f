// Package permissions resolves the effective permission set for a subject
// from three layered sources: user-level overrides, the tenant's company
// policy, and the built-in role defaults. Highest layer wins per key.
package permissions

import (
	"github.com/opsdesk/opsdesk/models"
)

// Effective is the resolved permission map for one subject in one request.
// It always contains every key in models.AllPermissions, so downstream checks
// can do direct lookups without existence checks. It is derived, never stored.
type Effective map[string]bool

// Has reports whether the key resolved to granted.
func (e Effective) Has(key string) bool {
	return e[key]
}

// HasAny reports whether at least one of the keys resolved to granted.
func (e Effective) HasAny(keys ...string) bool {
	for _, k := range keys {
		if e[k] {
			return true
		}
	}
	return false
}

// roleDefaults are the built-in grant sets shipped with the platform. A
// tenant without a policy document gets exactly these.
var roleDefaults = map[models.Role][]string{
	models.RoleAdmin: models.AllPermissions,
	models.RoleManager: {
		models.PermDispatchAssign,
		models.PermJobsView,
		models.PermJobsEdit,
		models.PermCustomersView,
		models.PermCustomersEdit,
		models.PermInvoicesView,
		models.PermInvoicesEdit,
		models.PermReportsView,
	},
	models.RoleSales: {
		models.PermCustomersView,
		models.PermCustomersEdit,
		models.PermInvoicesView,
		models.PermInvoicesEdit,
		models.PermReportsView,
	},
	models.RoleTechnician: {
		models.PermJobsView,
	},
	models.RoleDispatch: {
		models.PermDispatchAssign,
		models.PermJobsView,
		models.PermJobsEdit,
		models.PermCustomersView,
	},
}

// Resolve merges the three permission layers into one effective map.
//
// Precedence, highest first: user override, company role policy, built-in
// role default. A key absent from all three layers is denied. The company
// layer is merged key-wise, not set-wise: a company entry grants its listed
// keys on top of the role defaults and says nothing about unlisted keys, so
// it can only widen a role, never silently revoke a default. Narrowing a
// single user is what overrides are for.
//
// Resolve is pure and total: nil layers are absent, unknown permission keys
// in either optional layer are ignored, and an unknown role resolves to a
// fully denied map. Same inputs always produce the same output.
func Resolve(role models.Role, companyPolicy models.CompanyPolicy, userOverrides map[string]bool) Effective {
	effective := make(Effective, len(models.AllPermissions))
	for _, key := range models.AllPermissions {
		effective[key] = false
	}

	// Base layer: the built-in defaults for the role.
	for _, key := range roleDefaults[role] {
		effective[key] = true
	}

	// Company layer: grants the listed keys; unlisted keys keep their
	// default resolution.
	for _, key := range companyPolicy[role] {
		if models.KnownPermission(key) {
			effective[key] = true
		}
	}

	// Top layer: user overrides win in both directions.
	for key, allowed := range userOverrides {
		if models.KnownPermission(key) {
			effective[key] = allowed
		}
	}

	return effective
}
