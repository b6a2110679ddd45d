// Package bastion provides tenant-aware authorization for multi-tenant
// admin consoles.
//
// The Engine decides whether a principal may perform an action. A
// principal holding the reserved "root" role bypasses every permission
// check, and only root may create, rename into, update or delete a role
// named root. Permissions are always read fresh from the store.
//
//	eng, err := bastion.NewEngine(
//	    bastion.WithStore(memStore),
//	)
//	ok, err := eng.Can(ctx, principal, "settings.manage")
package bastion

import (
	"strings"

	"github.com/xraph/bastion/id"
)

// Reserved role names. Comparisons are case-insensitive.
const (
	RoleRoot  = "root"
	RoleAdmin = "admin"
)

// Canonical permission names.
const (
	PermUsersView         = "users.view"
	PermUsersManage       = "users.manage"
	PermRolesView         = "roles.view"
	PermRolesManage       = "roles.manage"
	PermRolesManageRoot   = "roles.manage_root"
	PermSettingsView      = "settings.view"
	PermSettingsManage    = "settings.manage"
	PermAuditView         = "audit.view"
	PermNotificationsView = "notifications.view"
)

// Permissions lists every canonical permission in display order.
var Permissions = []string{
	PermUsersView,
	PermUsersManage,
	PermRolesView,
	PermRolesManage,
	PermRolesManageRoot,
	PermSettingsView,
	PermSettingsManage,
	PermAuditView,
	PermNotificationsView,
}

// IsReservedRoot reports whether name refers to the root role. It is the
// only place the reserved name is compared.
func IsReservedRoot(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), RoleRoot)
}

// Principal is an authenticated actor evaluated for permissions.
type Principal struct {
	ID id.UserID `json:"id"`

	// TenantID is Nil for global accounts.
	TenantID id.TenantID `json:"tenant_id,omitempty"`

	// Roles holds role names as assigned. Lookups ignore case.
	Roles []string `json:"roles"`

	// Locale is the user's preferred language tag, empty when unset.
	Locale string `json:"locale,omitempty"`
}

// HasRole reports whether the principal holds the named role.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

// IsRoot reports whether the principal holds the root role.
func (p *Principal) IsRoot() bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if IsReservedRoot(r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds admin or root.
func (p *Principal) IsAdmin() bool {
	return p.IsRoot() || p.HasRole(RoleAdmin)
}

// RoleAction is an intended operation on a role.
type RoleAction string

const (
	RoleView   RoleAction = "view"
	RoleCreate RoleAction = "create"
	RoleUpdate RoleAction = "update"
	RoleRename RoleAction = "rename"
	RoleDelete RoleAction = "delete"
)

// UserAction is an intended operation on a user account.
type UserAction string

const (
	UserView   UserAction = "view"
	UserCreate UserAction = "create"
	UserUpdate UserAction = "update"
	UserDelete UserAction = "delete"
)

// Result is the outcome of an authorization decision.
type Result struct {
	Allowed    bool     `json:"allowed"`
	Decision   Decision `json:"decision"`
	Permission string   `json:"permission"`
	Reason     string   `json:"reason,omitempty"`
	MatchedBy  string   `json:"matched_by,omitempty"`
	EvalTimeNs int64    `json:"eval_time_ns"`
}

// Decision is the authorization outcome.
type Decision string

const (
	// DecisionAllow means a role grants the permission.
	DecisionAllow Decision = "allow"

	// DecisionAllowRoot means the principal is root and bypassed the check.
	DecisionAllowRoot Decision = "allow_root"

	// DecisionDenyNoPrincipal means no authenticated principal was supplied.
	DecisionDenyNoPrincipal Decision = "deny_no_principal"

	// DecisionDenyNoRoles means the principal has no roles.
	DecisionDenyNoRoles Decision = "deny_no_roles"

	// DecisionDenyNoPerms means no role grants the required permission.
	DecisionDenyNoPerms Decision = "deny_no_perms"

	// DecisionDenyRootProtected means the target is root and the principal is not.
	DecisionDenyRootProtected Decision = "deny_root_protected"

	// DecisionDenyTenantScope means the principal belongs to a tenant other
	// than the one resolved for the request.
	DecisionDenyTenantScope Decision = "deny_tenant_scope"
)
