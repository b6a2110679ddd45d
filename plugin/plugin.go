// Package plugin defines the plugin system for Bastion.
// Plugins are notified of lifecycle events (authorization decided, tenant
// resolved, setting changed, audit entry recorded, etc.) and can react with
// logging, metrics, tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/tenant"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Authorization hooks
// ──────────────────────────────────────────────────

// AfterAuthorize is called after every authorization decision.
// The principal parameter is *bastion.Principal; result is *bastion.Result
// (passed as any to avoid an import cycle).
type AfterAuthorize interface {
	OnAfterAuthorize(ctx context.Context, principal, result any) error
}

// ──────────────────────────────────────────────────
// Tenancy hooks
// ──────────────────────────────────────────────────

// TenantResolved is called when a request resolves to a tenant.
// Source names the resolution step that matched (header, domain,
// subdomain, principal, default).
type TenantResolved interface {
	OnTenantResolved(ctx context.Context, t *tenant.Tenant, source string) error
}

// TenantUnresolved is called when resolution runs but finds no tenant.
type TenantUnresolved interface {
	OnTenantUnresolved(ctx context.Context, host, path string) error
}

// ──────────────────────────────────────────────────
// Settings hooks
// ──────────────────────────────────────────────────

// SettingChanged is called after a setting is written or deleted.
// Deleted rows carry a nil Value.
type SettingChanged interface {
	OnSettingChanged(ctx context.Context, s *setting.Setting) error
}

// SettingsCacheAccess is called on every settings cache lookup.
type SettingsCacheAccess interface {
	OnSettingsCacheAccess(ctx context.Context, key string, hit bool) error
}

// ──────────────────────────────────────────────────
// Audit hooks
// ──────────────────────────────────────────────────

// AuditRecorded is called after an audit entry has been persisted.
type AuditRecorded interface {
	OnAuditRecorded(ctx context.Context, e *auditlog.Entry) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// RoleAssigned is called after a role is assigned to a user.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
