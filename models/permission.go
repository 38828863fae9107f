package models

// Permission keys understood by the platform. Downstream checks do direct
// lookups against the resolved permission map, so this list is the complete
// key space: a key not present here is never granted.
const (
	PermDispatchAssign = "dispatch.assign"
	PermJobsView       = "jobs.view"
	PermJobsEdit       = "jobs.edit"
	PermCustomersView  = "customers.view"
	PermCustomersEdit  = "customers.edit"
	PermInvoicesView   = "invoices.view"
	PermInvoicesEdit   = "invoices.edit"
	PermReportsView    = "reports.view"
	PermSettingsManage = "settings.manage"
)

// AllPermissions is the exhaustive permission-key space.
var AllPermissions = []string{
	PermDispatchAssign,
	PermJobsView,
	PermJobsEdit,
	PermCustomersView,
	PermCustomersEdit,
	PermInvoicesView,
	PermInvoicesEdit,
	PermReportsView,
	PermSettingsManage,
}

// KnownPermission reports whether key belongs to the permission-key space.
func KnownPermission(key string) bool {
	for _, k := range AllPermissions {
		if k == key {
			return true
		}
	}
	return false
}

// CompanyPolicy maps a role to permission keys the tenant grants it beyond
// the built-in defaults. Entries merge key-wise: listed keys are granted,
// unlisted keys keep their default resolution. A nil policy means the tenant
// has no policy document at all.
type CompanyPolicy map[Role][]string
