package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/tenant"
)

// Named entry types pair a hook with the plugin name for logging.

type afterAuthorizeEntry struct {
	name string
	hook AfterAuthorize
}
type tenantResolvedEntry struct {
	name string
	hook TenantResolved
}
type tenantUnresolvedEntry struct {
	name string
	hook TenantUnresolved
}
type settingChangedEntry struct {
	name string
	hook SettingChanged
}
type settingsCacheAccessEntry struct {
	name string
	hook SettingsCacheAccess
}
type auditRecordedEntry struct {
	name string
	hook AuditRecorded
}
type roleCreatedEntry struct {
	name string
	hook RoleCreated
}
type roleUpdatedEntry struct {
	name string
	hook RoleUpdated
}
type roleDeletedEntry struct {
	name string
	hook RoleDeleted
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
//
// A nil *Registry is valid and dispatches nothing.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	afterAuthorize      []afterAuthorizeEntry
	tenantResolved      []tenantResolvedEntry
	tenantUnresolved    []tenantUnresolvedEntry
	settingChanged      []settingChangedEntry
	settingsCacheAccess []settingsCacheAccessEntry
	auditRecorded       []auditRecordedEntry
	roleCreated         []roleCreatedEntry
	roleUpdated         []roleUpdatedEntry
	roleDeleted         []roleDeletedEntry
	roleAssigned        []roleAssignedEntry
	shutdown            []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(AfterAuthorize); ok {
		r.afterAuthorize = append(r.afterAuthorize, afterAuthorizeEntry{name, h})
	}
	if h, ok := p.(TenantResolved); ok {
		r.tenantResolved = append(r.tenantResolved, tenantResolvedEntry{name, h})
	}
	if h, ok := p.(TenantUnresolved); ok {
		r.tenantUnresolved = append(r.tenantUnresolved, tenantUnresolvedEntry{name, h})
	}
	if h, ok := p.(SettingChanged); ok {
		r.settingChanged = append(r.settingChanged, settingChangedEntry{name, h})
	}
	if h, ok := p.(SettingsCacheAccess); ok {
		r.settingsCacheAccess = append(r.settingsCacheAccess, settingsCacheAccessEntry{name, h})
	}
	if h, ok := p.(AuditRecorded); ok {
		r.auditRecorded = append(r.auditRecorded, auditRecordedEntry{name, h})
	}
	if h, ok := p.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, roleCreatedEntry{name, h})
	}
	if h, ok := p.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, roleUpdatedEntry{name, h})
	}
	if h, ok := p.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, roleDeletedEntry{name, h})
	}
	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin {
	if r == nil {
		return nil
	}
	return r.plugins
}

// ──────────────────────────────────────────────────
// Authorization event emitters
// ──────────────────────────────────────────────────

// EmitAfterAuthorize notifies all plugins that implement AfterAuthorize.
func (r *Registry) EmitAfterAuthorize(ctx context.Context, principal, result any) {
	if r == nil {
		return
	}
	for _, e := range r.afterAuthorize {
		if err := e.hook.OnAfterAuthorize(ctx, principal, result); err != nil {
			r.logHookError("OnAfterAuthorize", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Tenancy event emitters
// ──────────────────────────────────────────────────

// EmitTenantResolved notifies all plugins that implement TenantResolved.
func (r *Registry) EmitTenantResolved(ctx context.Context, t *tenant.Tenant, source string) {
	if r == nil {
		return
	}
	for _, e := range r.tenantResolved {
		if err := e.hook.OnTenantResolved(ctx, t, source); err != nil {
			r.logHookError("OnTenantResolved", e.name, err)
		}
	}
}

// EmitTenantUnresolved notifies all plugins that implement TenantUnresolved.
func (r *Registry) EmitTenantUnresolved(ctx context.Context, host, path string) {
	if r == nil {
		return
	}
	for _, e := range r.tenantUnresolved {
		if err := e.hook.OnTenantUnresolved(ctx, host, path); err != nil {
			r.logHookError("OnTenantUnresolved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Settings event emitters
// ──────────────────────────────────────────────────

// EmitSettingChanged notifies all plugins that implement SettingChanged.
func (r *Registry) EmitSettingChanged(ctx context.Context, s *setting.Setting) {
	if r == nil {
		return
	}
	for _, e := range r.settingChanged {
		if err := e.hook.OnSettingChanged(ctx, s); err != nil {
			r.logHookError("OnSettingChanged", e.name, err)
		}
	}
}

// EmitSettingsCacheAccess notifies all plugins that implement SettingsCacheAccess.
func (r *Registry) EmitSettingsCacheAccess(ctx context.Context, key string, hit bool) {
	if r == nil {
		return
	}
	for _, e := range r.settingsCacheAccess {
		if err := e.hook.OnSettingsCacheAccess(ctx, key, hit); err != nil {
			r.logHookError("OnSettingsCacheAccess", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Audit event emitters
// ──────────────────────────────────────────────────

// EmitAuditRecorded notifies all plugins that implement AuditRecorded.
func (r *Registry) EmitAuditRecorded(ctx context.Context, entry *auditlog.Entry) {
	if r == nil {
		return
	}
	for _, e := range r.auditRecorded {
		if err := e.hook.OnAuditRecorded(ctx, entry); err != nil {
			r.logHookError("OnAuditRecorded", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	if r == nil {
		return
	}
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	if r == nil {
		return
	}
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	if r == nil {
		return
	}
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	if r == nil {
		return
	}
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, a); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	if r == nil {
		return
	}
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
