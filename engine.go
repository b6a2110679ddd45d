package bastion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// Engine is the central authorization engine. It evaluates role and
// permission grants, applies the root bypass and root protection rules,
// and fires plugin hooks. It holds no per-request state and caches no
// decisions.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	config  Config
}

// NewEngine creates a new Bastion engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("bastion: store is required")
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Guard returns the guard scope the engine evaluates roles in.
func (e *Engine) Guard() string { return e.config.guard() }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	return nil
}

// LoadPrincipal builds a Principal from a stored user and its role
// assignments.
func (e *Engine) LoadPrincipal(ctx context.Context, userID id.UserID) (*Principal, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("bastion: load principal: %w", err)
	}
	roleIDs, err := e.store.ListRolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("bastion: load principal roles: %w", err)
	}
	p := &Principal{ID: u.ID, TenantID: u.TenantID, Locale: u.Locale, Roles: make([]string, 0, len(roleIDs))}
	for _, rid := range roleIDs {
		r, err := e.store.GetRole(ctx, rid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("bastion: load principal roles: %w", err)
		}
		p.Roles = append(p.Roles, r.Name)
	}
	slices.Sort(p.Roles)
	return p, nil
}

// ──────────────────────────────────────────────────
// Permission checks
// ──────────────────────────────────────────────────

// Authorize decides whether p holds permission. This is the hot path.
func (e *Engine) Authorize(ctx context.Context, p *Principal, permission string) (*Result, error) {
	start := time.Now()
	result, err := e.evaluate(ctx, p, permission)
	if err != nil {
		return nil, fmt.Errorf("bastion authorize: %w", err)
	}
	result.Permission = permission
	return e.finish(ctx, p, result, start), nil
}

// Can is a shorthand for Authorize returning only the outcome.
func (e *Engine) Can(ctx context.Context, p *Principal, permission string) (bool, error) {
	result, err := e.Authorize(ctx, p, permission)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// Enforce returns ErrAccessDenied if p does not hold permission.
func (e *Engine) Enforce(ctx context.Context, p *Principal, permission string) error {
	result, err := e.Authorize(ctx, p, permission)
	if err != nil {
		return err
	}
	return resultError(result)
}

// Permissions returns the permission names p effectively holds, sorted.
// Root holds every canonical permission.
func (e *Engine) Permissions(ctx context.Context, p *Principal) ([]string, error) {
	if p == nil {
		return nil, nil
	}
	if p.IsRoot() {
		return slices.Clone(Permissions), nil
	}
	seen := make(map[string]struct{})
	for _, name := range p.Roles {
		r, err := e.store.GetRoleByName(ctx, e.config.guard(), name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("bastion: permissions: %w", err)
		}
		perms, err := e.store.ListPermissionsByRole(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("bastion: permissions: %w", err)
		}
		for _, pm := range perms {
			seen[pm.Name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

func (e *Engine) evaluate(ctx context.Context, p *Principal, permission string) (*Result, error) {
	if p == nil {
		return &Result{Decision: DecisionDenyNoPrincipal, Reason: "no authenticated principal"}, nil
	}

	// Root short-circuits before any lookup, so permissions that were
	// never registered are granted too.
	if p.IsRoot() {
		return &Result{Allowed: true, Decision: DecisionAllowRoot, MatchedBy: "role:" + RoleRoot}, nil
	}

	if outOfScope(ctx, p) {
		return tenantScopeDenial(), nil
	}

	if len(p.Roles) == 0 {
		return &Result{Decision: DecisionDenyNoRoles, Reason: "principal has no roles"}, nil
	}

	guard := e.config.guard()
	for _, name := range p.Roles {
		r, err := e.store.GetRoleByName(ctx, guard, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		perms, err := e.store.ListPermissionsByRole(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, pm := range perms {
			if matchPermission(pm.Name, permission) {
				return &Result{
					Allowed:   true,
					Decision:  DecisionAllow,
					MatchedBy: "role:" + r.Name,
					Reason:    "role grants " + pm.Name,
				}, nil
			}
		}
	}

	return &Result{Decision: DecisionDenyNoPerms, Reason: "no role grants required permission"}, nil
}

// ──────────────────────────────────────────────────
// Role management checks
// ──────────────────────────────────────────────────

// AuthorizeRole decides whether p may perform action on a role named
// target. For a rename, target is the new name. When target is the
// reserved root name the decision collapses to "is p root", whatever
// other permissions p holds.
func (e *Engine) AuthorizeRole(ctx context.Context, p *Principal, target string, action RoleAction) (*Result, error) {
	start := time.Now()
	switch {
	case p == nil:
		return e.finish(ctx, p, &Result{
			Decision: DecisionDenyNoPrincipal,
			Reason:   "no authenticated principal",
		}, start), nil
	case p.IsRoot():
		return e.finish(ctx, p, &Result{
			Allowed:    true,
			Decision:   DecisionAllowRoot,
			Permission: PermRolesManage,
			MatchedBy:  "role:" + RoleRoot,
		}, start), nil
	case action == RoleView:
		return e.Authorize(ctx, p, PermRolesView)
	case IsReservedRoot(target):
		return e.finish(ctx, p, &Result{
			Decision:   DecisionDenyRootProtected,
			Permission: PermRolesManageRoot,
			Reason:     fmt.Sprintf("only root may %s the root role", action),
		}, start), nil
	default:
		return e.Authorize(ctx, p, PermRolesManage)
	}
}

// CanActOnRole is a shorthand for AuthorizeRole returning only the outcome.
func (e *Engine) CanActOnRole(ctx context.Context, p *Principal, target string, action RoleAction) (bool, error) {
	result, err := e.AuthorizeRole(ctx, p, target, action)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// EnforceRole returns ErrRootProtected or ErrAccessDenied when
// AuthorizeRole denies.
func (e *Engine) EnforceRole(ctx context.Context, p *Principal, target string, action RoleAction) error {
	result, err := e.AuthorizeRole(ctx, p, target, action)
	if err != nil {
		return err
	}
	return resultError(result)
}

// ──────────────────────────────────────────────────
// User management checks
// ──────────────────────────────────────────────────

// AuthorizeUser decides whether actor may perform action on target. A
// root target can only be handled by a root actor. Viewing oneself is
// always allowed. Target may be nil for UserCreate.
func (e *Engine) AuthorizeUser(ctx context.Context, actor, target *Principal, action UserAction) (*Result, error) {
	start := time.Now()
	switch {
	case actor == nil:
		return e.finish(ctx, actor, &Result{
			Decision: DecisionDenyNoPrincipal,
			Reason:   "no authenticated principal",
		}, start), nil
	case actor.IsRoot():
		return e.finish(ctx, actor, &Result{
			Allowed:   true,
			Decision:  DecisionAllowRoot,
			MatchedBy: "role:" + RoleRoot,
		}, start), nil
	case outOfScope(ctx, actor):
		return e.finish(ctx, actor, tenantScopeDenial(), start), nil
	case target != nil && target.IsRoot():
		return e.finish(ctx, actor, &Result{
			Decision: DecisionDenyRootProtected,
			Reason:   fmt.Sprintf("only root may %s a root user", action),
		}, start), nil
	case action == UserView && target != nil && target.ID == actor.ID:
		return e.finish(ctx, actor, &Result{
			Allowed:    true,
			Decision:   DecisionAllow,
			Permission: PermUsersView,
			MatchedBy:  "self",
		}, start), nil
	case e.config.adminBypass() && actor.HasRole(RoleAdmin):
		return e.finish(ctx, actor, &Result{
			Allowed:   true,
			Decision:  DecisionAllow,
			MatchedBy: "role:" + RoleAdmin,
		}, start), nil
	}
	if action == UserView {
		return e.Authorize(ctx, actor, PermUsersView)
	}
	return e.Authorize(ctx, actor, PermUsersManage)
}

// CanManageUser is a shorthand for AuthorizeUser returning only the outcome.
func (e *Engine) CanManageUser(ctx context.Context, actor, target *Principal, action UserAction) (bool, error) {
	result, err := e.AuthorizeUser(ctx, actor, target, action)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// EnforceUser returns ErrRootProtected or ErrAccessDenied when
// AuthorizeUser denies.
func (e *Engine) EnforceUser(ctx context.Context, actor, target *Principal, action UserAction) error {
	result, err := e.AuthorizeUser(ctx, actor, target, action)
	if err != nil {
		return err
	}
	return resultError(result)
}

// AuthorizeAssignRoles decides whether actor may assign roleNames to a
// user. Handing out root requires being root.
func (e *Engine) AuthorizeAssignRoles(ctx context.Context, actor *Principal, roleNames []string) (*Result, error) {
	start := time.Now()
	if actor == nil {
		return e.finish(ctx, actor, &Result{
			Decision: DecisionDenyNoPrincipal,
			Reason:   "no authenticated principal",
		}, start), nil
	}
	if actor.IsRoot() {
		return e.finish(ctx, actor, &Result{
			Allowed:   true,
			Decision:  DecisionAllowRoot,
			MatchedBy: "role:" + RoleRoot,
		}, start), nil
	}
	if outOfScope(ctx, actor) {
		return e.finish(ctx, actor, tenantScopeDenial(), start), nil
	}
	if slices.ContainsFunc(roleNames, IsReservedRoot) {
		return e.finish(ctx, actor, &Result{
			Decision: DecisionDenyRootProtected,
			Reason:   "only root may assign the root role",
		}, start), nil
	}
	if e.config.adminBypass() && actor.HasRole(RoleAdmin) {
		return e.finish(ctx, actor, &Result{
			Allowed:   true,
			Decision:  DecisionAllow,
			MatchedBy: "role:" + RoleAdmin,
		}, start), nil
	}
	return e.Authorize(ctx, actor, PermUsersManage)
}

// CanAssignRoles is a shorthand for AuthorizeAssignRoles returning only
// the outcome.
func (e *Engine) CanAssignRoles(ctx context.Context, actor *Principal, roleNames []string) (bool, error) {
	result, err := e.AuthorizeAssignRoles(ctx, actor, roleNames)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// EnforceAssignRoles returns ErrRootProtected or ErrAccessDenied when
// AuthorizeAssignRoles denies.
func (e *Engine) EnforceAssignRoles(ctx context.Context, actor *Principal, roleNames []string) error {
	result, err := e.AuthorizeAssignRoles(ctx, actor, roleNames)
	if err != nil {
		return err
	}
	return resultError(result)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// outOfScope reports whether a non-root principal bound to a tenant acts
// under a different resolved tenant. Global principals and requests
// without a tenant are in scope.
func outOfScope(ctx context.Context, p *Principal) bool {
	if p == nil || p.IsRoot() || p.TenantID.IsNil() {
		return false
	}
	current := TenantIDFromContext(ctx)
	return !current.IsNil() && current != p.TenantID
}

func tenantScopeDenial() *Result {
	return &Result{
		Decision: DecisionDenyTenantScope,
		Reason:   "principal belongs to another tenant",
	}
}

func (e *Engine) finish(ctx context.Context, p *Principal, result *Result, start time.Time) *Result {
	result.EvalTimeNs = time.Since(start).Nanoseconds()
	if !result.Allowed {
		principalID := ""
		if p != nil {
			principalID = p.ID.String()
		}
		e.logger.Debug("authorization denied",
			slog.String("principal", principalID),
			slog.String("permission", result.Permission),
			slog.String("decision", string(result.Decision)),
		)
	}
	e.plugins.EmitAfterAuthorize(ctx, p, result)
	return result
}

func resultError(result *Result) error {
	if result.Allowed {
		return nil
	}
	if result.Decision == DecisionDenyRootProtected {
		return fmt.Errorf("%w: %s", ErrRootProtected, result.Reason)
	}
	return fmt.Errorf("%w: %s (%s)", ErrAccessDenied, result.Decision, result.Reason)
}
