package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/user"
)

// MaxUserNameLength bounds a user's display name.
const MaxUserNameLength = 255

// Member is a user together with the names of its roles.
type Member struct {
	*user.User
	Roles []string `json:"roles"`
}

// UpdateUserInput carries the mutable user fields. Nil fields are left
// unchanged; a non-nil Roles replaces every role assignment.
type UpdateUserInput struct {
	Name   *string  `json:"name,omitempty"`
	Locale *string  `json:"locale,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// ListUsers returns one page of users and the total count. When tenancy
// is enabled and a tenant is resolved, only that tenant's users are
// listed.
func (s *Service) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*Member, int64, error) {
	if err := s.engine.EnforceUser(ctx, actor(ctx), nil, bastion.UserView); err != nil {
		return nil, 0, err
	}
	f := user.ListFilter{SortDesc: true}
	if filter != nil {
		f = *filter
	}
	if tid := s.scopedTenant(ctx); !tid.IsNil() {
		f.TenantID = tid
	}
	f.Limit = pageSize(f.Limit)

	users, err := s.store.ListUsers(ctx, &f)
	if err != nil {
		return nil, 0, fmt.Errorf("admin: list users: %w", err)
	}
	total, err := s.store.CountUsers(ctx, &f)
	if err != nil {
		return nil, 0, fmt.Errorf("admin: count users: %w", err)
	}
	members := make([]*Member, 0, len(users))
	for _, u := range users {
		roles, err := s.roleNames(ctx, u.ID)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, &Member{User: u, Roles: roles})
	}
	return members, total, nil
}

// GetUser returns a single user. Users of another tenant are reported as
// not found.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*Member, error) {
	m, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.EnforceUser(ctx, actor(ctx), principalOf(m), bastion.UserView); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateUser applies in to a user. Assigning the root role requires a
// root actor.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, in UpdateUserInput) (*Member, error) {
	m, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := actor(ctx)
	if err := s.engine.EnforceUser(ctx, p, principalOf(m), bastion.UserUpdate); err != nil {
		return nil, err
	}
	if in.Roles != nil {
		if err := s.engine.EnforceAssignRoles(ctx, p, in.Roles); err != nil {
			return nil, err
		}
	}

	before := memberSnapshot(m)
	u := *m.User
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", bastion.ErrValidation)
		}
		if utf8.RuneCountInString(name) > MaxUserNameLength {
			return nil, fmt.Errorf("%w: name exceeds %d characters", bastion.ErrValidation, MaxUserNameLength)
		}
		u.Name = name
	}
	if in.Locale != nil {
		u.Locale = strings.TrimSpace(*in.Locale)
	}

	roleIDs, roleNames, err := s.resolveRoles(ctx, in.Roles)
	if err != nil {
		return nil, err
	}

	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return nil, fmt.Errorf("admin: update user %s: %w", userID, err)
	}
	updated := &Member{User: &u, Roles: m.Roles}
	if in.Roles != nil {
		if err := s.replaceAssignments(ctx, u.ID, roleIDs); err != nil {
			return nil, err
		}
		updated.Roles = roleNames
	}

	if _, err := s.audit.Log(ctx, auditlog.ActionUpdate, &u, "", map[string]any{
		"before": before,
		"after":  memberSnapshot(updated),
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user and its role assignments. A principal can
// never delete their own account through this path, whatever roles they
// hold.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	m, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	p := actor(ctx)
	if p != nil && p.ID == m.ID {
		return fmt.Errorf("%w: you cannot delete yourself", bastion.ErrSelfDelete)
	}
	if err := s.engine.EnforceUser(ctx, p, principalOf(m), bastion.UserDelete); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("admin: delete user %s: %w", userID, err)
	}

	_, err = s.audit.Log(ctx, auditlog.ActionDelete, m.AuditType(), m.AuditID(), map[string]any{
		"snapshot": memberSnapshot(m),
	})
	return err
}

// loadMember fetches a user and its roles, hiding users of other tenants.
func (s *Service) loadMember(ctx context.Context, userID id.UserID) (*Member, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound("user", userID, err)
	}
	if tid := s.scopedTenant(ctx); !tid.IsNil() && u.TenantID != tid {
		return nil, fmt.Errorf("%w: user %s", bastion.ErrCrossTenant, userID)
	}
	roles, err := s.roleNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Member{User: u, Roles: roles}, nil
}

func (s *Service) roleNames(ctx context.Context, userID id.UserID) ([]string, error) {
	roleIDs, err := s.store.ListRolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("admin: list roles of %s: %w", userID, err)
	}
	names := make([]string, 0, len(roleIDs))
	for _, rid := range roleIDs {
		r, err := s.store.GetRole(ctx, rid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("admin: load role %s: %w", rid, err)
		}
		names = append(names, r.Name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Service) resolveRoles(ctx context.Context, names []string) ([]id.RoleID, []string, error) {
	if names == nil {
		return nil, nil, nil
	}
	ids := make([]id.RoleID, 0, len(names))
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		r, err := s.store.GetRoleByName(ctx, s.engine.Guard(), strings.TrimSpace(name))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: unknown role %q", bastion.ErrValidation, name)
			}
			return nil, nil, fmt.Errorf("admin: resolve role %q: %w", name, err)
		}
		if slices.Contains(ids, r.ID) {
			continue
		}
		ids = append(ids, r.ID)
		resolved = append(resolved, r.Name)
	}
	slices.Sort(resolved)
	return ids, resolved, nil
}

func (s *Service) replaceAssignments(ctx context.Context, userID id.UserID, roleIDs []id.RoleID) error {
	if err := s.store.DeleteAssignmentsByUser(ctx, userID); err != nil {
		return fmt.Errorf("admin: clear assignments of %s: %w", userID, err)
	}
	for _, rid := range roleIDs {
		a := &assignment.Assignment{
			ID:        id.NewAssignmentID(),
			UserID:    userID,
			RoleID:    rid,
			CreatedAt: s.now(),
		}
		if err := s.store.CreateAssignment(ctx, a); err != nil {
			return fmt.Errorf("admin: assign role %s to %s: %w", rid, userID, err)
		}
		s.plugins.EmitRoleAssigned(ctx, a)
	}
	return nil
}

func principalOf(m *Member) *bastion.Principal {
	return &bastion.Principal{ID: m.ID, TenantID: m.TenantID, Roles: m.Roles}
}

func memberSnapshot(m *Member) map[string]any {
	return map[string]any{
		"id":     m.ID.String(),
		"name":   m.Name,
		"email":  m.Email,
		"locale": m.Locale,
		"roles":  m.Roles,
	}
}
