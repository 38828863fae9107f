package models

import (
	"github.com/google/uuid"
)

// Role is the built-in role assigned to every platform user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSales      Role = "sales"
	RoleTechnician Role = "technician"
	RoleDispatch   Role = "dispatch"
)

// AllRoles lists every role the platform knows about.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleSales, RoleTechnician, RoleDispatch}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleTechnician, RoleDispatch:
		return true
	}
	return false
}

// Subject is the authenticated caller resolved for a single request.
// It is assembled by the gate from the verified token and the stored profile
// and lives only for the lifetime of that request; it is never persisted.
type Subject struct {
	UserID    uuid.UUID       `json:"user_id"`
	CompanyID uuid.UUID       `json:"company_id"`
	Role      Role            `json:"role"`
	Overrides map[string]bool `json:"-"`
}

// Profile is the stored per-user record loaded from the data store:
// the subject's role, tenant, and optional user-level permission overrides.
type Profile struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      Role
	Overrides map[string]bool
}
