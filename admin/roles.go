package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/store"
)

// Role name length bounds, in characters.
const (
	MinRoleNameLength = 3
	MaxRoleNameLength = 64
)

// ListRoles returns the roles of the engine's guard ordered by name.
func (s *Service) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	if err := s.engine.EnforceRole(ctx, actor(ctx), "", bastion.RoleView); err != nil {
		return nil, err
	}
	f := role.ListFilter{}
	if filter != nil {
		f = *filter
	}
	f.Guard = s.engine.Guard()
	roles, err := s.store.ListRoles(ctx, &f)
	if err != nil {
		return nil, fmt.Errorf("admin: list roles: %w", err)
	}
	return roles, nil
}

// GetRole returns a role and the names of its permissions.
func (s *Service) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, []string, error) {
	if err := s.engine.EnforceRole(ctx, actor(ctx), "", bastion.RoleView); err != nil {
		return nil, nil, err
	}
	r, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, nil, notFound("role", roleID, err)
	}
	perms, err := s.permissionNames(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	return r, perms, nil
}

// CreateRole creates a role named name in the engine's guard. The
// authorization check runs before validation, so a non-root principal
// creating "root" is denied even when that role already exists.
func (s *Service) CreateRole(ctx context.Context, name string) (*role.Role, error) {
	name = strings.TrimSpace(name)
	if err := s.engine.EnforceRole(ctx, actor(ctx), name, bastion.RoleCreate); err != nil {
		return nil, err
	}
	if err := s.validateRoleName(ctx, name, id.Nil); err != nil {
		return nil, err
	}

	now := s.now()
	r := &role.Role{
		ID:        id.NewRoleID(),
		Name:      name,
		Guard:     s.engine.Guard(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRole(ctx, r); err != nil {
		return nil, roleWriteError(name, err)
	}

	if _, err := s.audit.Log(ctx, auditlog.ActionCreate, r, "", map[string]any{
		"attributes": map[string]any{"name": r.Name},
	}); err != nil {
		return nil, err
	}
	s.plugins.EmitRoleCreated(ctx, r)
	return r, nil
}

// RenameRole renames a role. Both the current and the new name go
// through the root protection check.
func (s *Service) RenameRole(ctx context.Context, roleID id.RoleID, newName string) (*role.Role, error) {
	r, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, notFound("role", roleID, err)
	}
	newName = strings.TrimSpace(newName)
	p := actor(ctx)
	if err := s.engine.EnforceRole(ctx, p, r.Name, bastion.RoleUpdate); err != nil {
		return nil, err
	}
	if err := s.engine.EnforceRole(ctx, p, newName, bastion.RoleRename); err != nil {
		return nil, err
	}
	if err := s.validateRoleName(ctx, newName, r.ID); err != nil {
		return nil, err
	}

	before := r.Name
	r.Name = newName
	r.UpdatedAt = s.now()
	if err := s.store.UpdateRole(ctx, r); err != nil {
		return nil, roleWriteError(newName, err)
	}

	if _, err := s.audit.Log(ctx, auditlog.ActionUpdate, r, "", map[string]any{
		"before": map[string]any{"name": before},
		"after":  map[string]any{"name": r.Name},
	}); err != nil {
		return nil, err
	}
	s.plugins.EmitRoleUpdated(ctx, r)
	return r, nil
}

// DeleteRole removes a role together with its permission grants and
// user assignments.
func (s *Service) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	r, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return notFound("role", roleID, err)
	}
	if err := s.engine.EnforceRole(ctx, actor(ctx), r.Name, bastion.RoleDelete); err != nil {
		return err
	}
	if err := s.store.DeleteRole(ctx, roleID); err != nil {
		return fmt.Errorf("admin: delete role %s: %w", roleID, err)
	}

	if _, err := s.audit.Log(ctx, auditlog.ActionDelete, r.AuditType(), r.AuditID(), map[string]any{
		"snapshot": map[string]any{"id": r.ID.String(), "name": r.Name},
	}); err != nil {
		return err
	}
	s.plugins.EmitRoleDeleted(ctx, roleID)
	return nil
}

// SetRolePermissions replaces the permissions granted to a role. Every
// name must exist in the role's guard.
func (s *Service) SetRolePermissions(ctx context.Context, roleID id.RoleID, names []string) ([]string, error) {
	r, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, notFound("role", roleID, err)
	}
	if err := s.engine.EnforceRole(ctx, actor(ctx), r.Name, bastion.RoleUpdate); err != nil {
		return nil, err
	}

	ids := make([]id.PermissionID, 0, len(names))
	after := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if slices.Contains(after, name) {
			continue
		}
		perm, err := s.store.GetPermissionByName(ctx, r.Guard, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown permission %q", bastion.ErrValidation, name)
			}
			return nil, fmt.Errorf("admin: resolve permission %q: %w", name, err)
		}
		ids = append(ids, perm.ID)
		after = append(after, perm.Name)
	}
	slices.Sort(after)

	before, err := s.permissionNames(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRolePermissions(ctx, roleID, ids); err != nil {
		return nil, fmt.Errorf("admin: set role permissions %s: %w", roleID, err)
	}

	if _, err := s.audit.Log(ctx, auditlog.ActionUpdate, r, "", map[string]any{
		"before": map[string]any{"permissions": before},
		"after":  map[string]any{"permissions": after},
	}); err != nil {
		return nil, err
	}
	s.plugins.EmitRoleUpdated(ctx, r)
	return after, nil
}

func (s *Service) permissionNames(ctx context.Context, roleID id.RoleID) ([]string, error) {
	perms, err := s.store.ListPermissionsByRole(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("admin: list role permissions %s: %w", roleID, err)
	}
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return names, nil
}

// ValidateRoleName checks the length bounds of a role name.
func ValidateRoleName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinRoleNameLength || n > MaxRoleNameLength {
		return fmt.Errorf("%w: role name must be between %d and %d characters",
			bastion.ErrValidation, MinRoleNameLength, MaxRoleNameLength)
	}
	return nil
}

// validateRoleName checks the length of name and that no other role in
// the guard already carries it. self is ignored in the uniqueness check.
func (s *Service) validateRoleName(ctx context.Context, name string, self id.RoleID) error {
	if err := ValidateRoleName(name); err != nil {
		return err
	}
	existing, err := s.store.GetRoleByName(ctx, s.engine.Guard(), name)
	switch {
	case err == nil:
		if existing.ID != self {
			return fmt.Errorf("%w: %q", bastion.ErrDuplicateRoleName, name)
		}
		return nil
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("admin: load role %q: %w", name, err)
	}
}

func roleWriteError(name string, err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %q", bastion.ErrDuplicateRoleName, name)
	}
	return fmt.Errorf("admin: save role %q: %w", name, err)
}
