// Package seed provisions the baseline data of a fresh installation:
// canonical permissions, the built-in roles, a default tenant, initial
// settings and the first administrative user. Every function is
// idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auth"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

// Built-in role names besides root and admin.
const (
	RoleEditor = "editor"
	RoleUser   = "user"
)

// RoleGrants maps each built-in role to the permissions it is granted.
// Root holds every permission through the engine bypass; the grants are
// recorded so permission listings stay meaningful.
func RoleGrants() map[string][]string {
	admin := slices.DeleteFunc(slices.Clone(bastion.Permissions), func(p string) bool {
		return p == bastion.PermRolesManageRoot
	})
	return map[string][]string{
		bastion.RoleRoot:  slices.Clone(bastion.Permissions),
		bastion.RoleAdmin: admin,
		RoleEditor: {
			bastion.PermSettingsView,
			bastion.PermSettingsManage,
			bastion.PermNotificationsView,
		},
		RoleUser: {bastion.PermNotificationsView},
	}
}

// Permissions ensures every canonical permission exists in guard.
func Permissions(ctx context.Context, st store.Store, guard string) (map[string]id.PermissionID, error) {
	ids := make(map[string]id.PermissionID, len(bastion.Permissions))
	for _, name := range bastion.Permissions {
		p, err := st.GetPermissionByName(ctx, guard, name)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			p = &permission.Permission{
				ID:        id.NewPermissionID(),
				Name:      name,
				Guard:     guard,
				CreatedAt: time.Now().UTC(),
			}
			if err := st.CreatePermission(ctx, p); err != nil {
				return nil, fmt.Errorf("seed: create permission %q: %w", name, err)
			}
		default:
			return nil, fmt.Errorf("seed: load permission %q: %w", name, err)
		}
		ids[name] = p.ID
	}
	return ids, nil
}

// Roles ensures the built-in roles exist in guard and hold exactly their
// built-in grants.
func Roles(ctx context.Context, st store.Store, guard string) (map[string]*role.Role, error) {
	permIDs, err := Permissions(ctx, st, guard)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]*role.Role)
	for name, grants := range RoleGrants() {
		r, err := ensureRole(ctx, st, guard, name)
		if err != nil {
			return nil, err
		}
		ids := make([]id.PermissionID, 0, len(grants))
		for _, g := range grants {
			ids = append(ids, permIDs[g])
		}
		if err := st.SetRolePermissions(ctx, r.ID, ids); err != nil {
			return nil, fmt.Errorf("seed: grant role %q: %w", name, err)
		}
		roles[name] = r
	}
	return roles, nil
}

func ensureRole(ctx context.Context, st store.Store, guard, name string) (*role.Role, error) {
	r, err := st.GetRoleByName(ctx, guard, name)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("seed: load role %q: %w", name, err)
	}
	now := time.Now().UTC()
	r = &role.Role{ID: id.NewRoleID(), Name: name, Guard: guard, CreatedAt: now, UpdatedAt: now}
	if err := st.CreateRole(ctx, r); err != nil {
		return nil, fmt.Errorf("seed: create role %q: %w", name, err)
	}
	return r, nil
}

// DefaultTenant returns the default tenant, creating one named name with
// the given slug when none exists.
func DefaultTenant(ctx context.Context, st tenant.Store, name, slug string) (*tenant.Tenant, error) {
	t, err := st.GetDefaultTenant(ctx)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("seed: load default tenant: %w", err)
	}
	now := time.Now().UTC()
	t = &tenant.Tenant{
		ID:        id.NewTenantID(),
		Name:      name,
		Slug:      slug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateTenant(ctx, t); err != nil {
		return nil, fmt.Errorf("seed: create default tenant: %w", err)
	}
	return t, nil
}

// DefaultSettings returns the initial settings for an application called
// appName.
func DefaultSettings(appName string) map[string]any {
	return map[string]any{
		"site.name":       appName,
		"site.appearance": map[string]any{"theme": "system"},
		"site.brand": map[string]any{
			"logo_url":    nil,
			"favicon_url": nil,
		},
		"notifications.enabled": true,
		"mail.from": map[string]any{
			"address": "no-reply@example.com",
			"name":    appName,
		},
		"security.password_min_length": 8,
	}
}

// Settings writes DefaultSettings under the default tenant, or globally
// when there is none.
func Settings(ctx context.Context, svc *settings.Service, tenants tenant.Store, appName string) error {
	t, err := tenants.GetDefaultTenant(ctx)
	switch {
	case err == nil:
		ctx = bastion.WithTenant(ctx, t)
	case errors.Is(err, store.ErrNotFound):
	default:
		return fmt.Errorf("seed: load default tenant: %w", err)
	}
	if _, err := svc.Import(ctx, DefaultSettings(appName), "", false); err != nil {
		return fmt.Errorf("seed: settings: %w", err)
	}
	return nil
}

// ProvisionInput describes the user created by ProvisionUser.
type ProvisionInput struct {
	Email    string
	Name     string
	Password string
	Role     string
	TenantID id.TenantID
	Guard    string
}

// ProvisionUser creates or updates the user with in.Email, resets the
// password and replaces the user's roles with in.Role, which must be
// admin or root. It reports whether the user was created.
func ProvisionUser(ctx context.Context, st store.Store, in ProvisionInput) (*user.User, bool, error) {
	roleName := strings.ToLower(strings.TrimSpace(in.Role))
	if roleName == "" {
		roleName = bastion.RoleAdmin
	}
	if roleName != bastion.RoleAdmin && !bastion.IsReservedRoot(roleName) {
		return nil, false, fmt.Errorf("%w: role must be %q or %q", bastion.ErrValidation, bastion.RoleAdmin, bastion.RoleRoot)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.Name) == "" || in.Password == "" {
		return nil, false, fmt.Errorf("%w: email, name and password are required", bastion.ErrValidation)
	}
	guard := in.Guard
	if guard == "" {
		guard = role.DefaultGuard
	}

	roles, err := Roles(ctx, st, guard)
	if err != nil {
		return nil, false, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	u, err := st.GetUserByEmail(ctx, email)
	created := false
	switch {
	case err == nil:
		u.Name = strings.TrimSpace(in.Name)
		u.PasswordHash = hash
		u.UpdatedAt = now
		if !in.TenantID.IsNil() {
			u.TenantID = in.TenantID
		}
		if err := st.UpdateUser(ctx, u); err != nil {
			return nil, false, fmt.Errorf("seed: update user %q: %w", email, err)
		}
	case errors.Is(err, store.ErrNotFound):
		u = &user.User{
			ID:           id.NewUserID(),
			TenantID:     in.TenantID,
			Name:         strings.TrimSpace(in.Name),
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := st.CreateUser(ctx, u); err != nil {
			return nil, false, fmt.Errorf("seed: create user %q: %w", email, err)
		}
		created = true
	default:
		return nil, false, fmt.Errorf("seed: load user %q: %w", email, err)
	}

	if err := st.DeleteAssignmentsByUser(ctx, u.ID); err != nil {
		return nil, false, fmt.Errorf("seed: clear roles of %q: %w", email, err)
	}
	a := &assignment.Assignment{
		ID:        id.NewAssignmentID(),
		UserID:    u.ID,
		RoleID:    roles[roleName].ID,
		CreatedAt: now,
	}
	if err := st.CreateAssignment(ctx, a); err != nil {
		return nil, false, fmt.Errorf("seed: assign %q to %q: %w", roleName, email, err)
	}
	return u, created, nil
}
