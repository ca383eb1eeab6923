package policy

import (
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
)

// Tenant fields that may appear in an update.
const (
	TenantFieldName             = "name"
	TenantFieldStatus           = "status"
	TenantFieldSubscriptionPlan = "subscription_plan"
	TenantFieldMaxUsers         = "max_users"
	TenantFieldMaxProjects      = "max_projects"
)

// User fields that may appear in an update.
const (
	UserFieldFullName = "full_name"
	UserFieldRole     = "role"
	UserFieldIsActive = "is_active"
)

// TenantUpdatableFields lists the tenant columns the actor may change.
func TenantUpdatableFields(actor Actor) map[string]bool {
	switch actor.Role {
	case platformauth.RoleSuperAdmin:
		return map[string]bool{
			TenantFieldName:             true,
			TenantFieldStatus:           true,
			TenantFieldSubscriptionPlan: true,
			TenantFieldMaxUsers:         true,
			TenantFieldMaxProjects:      true,
		}
	case platformauth.RoleTenantAdmin:
		return map[string]bool{TenantFieldName: true}
	default:
		return map[string]bool{}
	}
}

// CheckUserUpdate validates which fields the actor may change on the target user.
// Role and active status are reserved for tenant admins, including on their own account.
func CheckUserUpdate(actor Actor, fields []string) error {
	if actor.IsTenantAdmin() {
		return nil
	}
	for _, f := range fields {
		if f == UserFieldRole || f == UserFieldIsActive {
			return ErrRoleChange
		}
	}
	return nil
}

// CanAssignRole reports whether actor may grant role to a user in its tenant.
func CanAssignRole(actor Actor, role platformauth.Role) error {
	switch role {
	case platformauth.RoleUser:
		if actor.IsTenantAdmin() {
			return nil
		}
	case platformauth.RoleTenantAdmin:
		if actor.IsTenantAdmin() {
			return nil
		}
	}
	return ErrRoleNotAssignable
}
