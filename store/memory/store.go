// Package memory provides an in-memory implementation of the Bastion
// composite store. It is intended for testing and development.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

// Compile-time interface checks.
var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory store for all Bastion entities.
type Store struct {
	mu sync.RWMutex

	tenants         map[string]*tenant.Tenant
	users           map[string]*user.User
	roles           map[string]*role.Role
	permissions     map[string]*permission.Permission
	rolePermissions map[string]map[string]struct{} // roleID -> set of permIDs
	assignments     map[string]*assignment.Assignment
	settings        map[string]*setting.Setting // settingKey(tenant, key) -> row
	auditEntries    map[string]*auditlog.Entry

	settingsUnavailable bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		tenants:         make(map[string]*tenant.Tenant),
		users:           make(map[string]*user.User),
		roles:           make(map[string]*role.Role),
		permissions:     make(map[string]*permission.Permission),
		rolePermissions: make(map[string]map[string]struct{}),
		assignments:     make(map[string]*assignment.Assignment),
		settings:        make(map[string]*setting.Setting),
		auditEntries:    make(map[string]*auditlog.Entry),
	}
}

// SetSettingsUnavailable makes every setting operation fail with
// store.ErrUnavailable, as a database without the settings table would.
func (s *Store) SetSettingsUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsUnavailable = unavailable
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Tenant Store
// ──────────────────────────────────────────────────

func (s *Store) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if strings.EqualFold(existing.Slug, t.Slug) {
			return fmt.Errorf("tenant slug %q: %w", t.Slug, store.ErrDuplicate)
		}
		if t.Domain != "" && strings.EqualFold(existing.Domain, t.Domain) {
			return fmt.Errorf("tenant domain %q: %w", t.Domain, store.ErrDuplicate)
		}
	}
	s.tenants[t.ID.String()] = copyTenant(t)
	return nil
}

func (s *Store) GetTenant(_ context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID.String()]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, store.ErrNotFound)
	}
	return copyTenant(t), nil
}

func (s *Store) GetTenantBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if strings.EqualFold(t.Slug, slug) {
			return copyTenant(t), nil
		}
	}
	return nil, fmt.Errorf("tenant slug %q: %w", slug, store.ErrNotFound)
}

func (s *Store) GetTenantByDomain(_ context.Context, domain string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if domain != "" {
		for _, t := range s.tenants {
			if strings.EqualFold(t.Domain, domain) {
				return copyTenant(t), nil
			}
		}
	}
	return nil, fmt.Errorf("tenant domain %q: %w", domain, store.ErrNotFound)
}

func (s *Store) GetDefaultTenant(_ context.Context) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *tenant.Tenant
	for _, t := range s.tenants {
		if !t.IsDefault {
			continue
		}
		if found == nil || t.ID.Less(found.ID) {
			found = t
		}
	}
	if found == nil {
		return nil, fmt.Errorf("default tenant: %w", store.ErrNotFound)
	}
	return copyTenant(found), nil
}

func (s *Store) UpdateTenant(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID.String()]; !ok {
		return fmt.Errorf("tenant %s: %w", t.ID, store.ErrNotFound)
	}
	for _, existing := range s.tenants {
		if existing.ID == t.ID {
			continue
		}
		if strings.EqualFold(existing.Slug, t.Slug) ||
			(t.Domain != "" && strings.EqualFold(existing.Domain, t.Domain)) {
			return fmt.Errorf("tenant %s: %w", t.ID, store.ErrDuplicate)
		}
	}
	s.tenants[t.ID.String()] = copyTenant(t)
	return nil
}

func (s *Store) DeleteTenant(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, tenantID.String())
	return nil
}

func (s *Store) ListTenants(_ context.Context, filter *tenant.ListFilter) ([]*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if filter != nil && filter.Search != "" &&
			!containsFold(t.Name, filter.Search) && !containsFold(t.Slug, filter.Search) {
			continue
		}
		result = append(result, copyTenant(t))
	}
	slices.SortFunc(result, func(a, b *tenant.Tenant) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, pagOpts{filter.Limit, filter.Offset}), nil
}

// ──────────────────────────────────────────────────
// User Store
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("user email %q: %w", u.Email, store.ErrDuplicate)
		}
	}
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user email %q: %w", email, store.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID.String()]; !ok {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	for _, existing := range s.users {
		if existing.ID != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("user email %q: %w", u.Email, store.ErrDuplicate)
		}
	}
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID.String())
	for k, a := range s.assignments {
		if a.UserID == userID {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context, filter *user.ListFilter) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.filterUsers(filter)
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, pagOpts{filter.Limit, filter.Offset}), nil
}

func (s *Store) CountUsers(_ context.Context, filter *user.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterUsers(filter))), nil
}

// filterUsers must be called with s.mu held.
func (s *Store) filterUsers(filter *user.ListFilter) []*user.User {
	var withRole map[id.UserID]struct{}
	if filter != nil && filter.Role != "" {
		withRole = make(map[id.UserID]struct{})
		for _, a := range s.assignments {
			if r, ok := s.roles[a.RoleID.String()]; ok && strings.EqualFold(r.Name, filter.Role) {
				withRole[a.UserID] = struct{}{}
			}
		}
	}

	result := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if filter != nil {
			if !filter.TenantID.IsNil() && u.TenantID != filter.TenantID {
				continue
			}
			if filter.Search != "" && !containsFold(u.Name, filter.Search) && !containsFold(u.Email, filter.Search) {
				continue
			}
			if withRole != nil {
				if _, ok := withRole[u.ID]; !ok {
					continue
				}
			}
			if filter.CreatedFrom != nil && u.CreatedAt.Before(*filter.CreatedFrom) {
				continue
			}
			if filter.CreatedTo != nil && u.CreatedAt.After(*filter.CreatedTo) {
				continue
			}
		}
		result = append(result, copyUser(u))
	}

	sortBy, desc := user.SortByID, false
	if filter != nil {
		sortBy, desc = filter.NormalizedSort(), filter.SortDesc
	}
	slices.SortFunc(result, func(a, b *user.User) int {
		var c int
		switch sortBy {
		case user.SortByName:
			c = strings.Compare(a.Name, b.Name)
		case user.SortByEmail:
			c = strings.Compare(a.Email, b.Email)
		case user.SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return -c
		}
		return c
	})
	return result
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roleNameTaken(r) {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, guard, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Guard == guard && strings.EqualFold(r.Name, name) {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	if s.roleNameTaken(r) {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleID.String())
	delete(s.rolePermissions, roleID.String())
	for k, a := range s.assignments {
		if a.RoleID == roleID {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.Guard != "" && r.Guard != filter.Guard {
				continue
			}
			if filter.Search != "" && !containsFold(r.Name, filter.Search) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	slices.SortFunc(result, func(a, b *role.Role) int { return strings.Compare(a.Name, b.Name) })
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, pagOpts{filter.Limit, filter.Offset}), nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms, ok := s.rolePermissions[roleID.String()]
	if !ok {
		return nil, nil
	}
	result := make([]id.PermissionID, 0, len(perms))
	for pid := range perms {
		parsed, err := id.ParsePermissionID(pid)
		if err == nil {
			result = append(result, parsed)
		}
	}
	slices.SortFunc(result, func(a, b id.PermissionID) int { return strings.Compare(a.String(), b.String()) })
	return result, nil
}

func (s *Store) AttachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	if s.rolePermissions[rk] == nil {
		s.rolePermissions[rk] = make(map[string]struct{})
	}
	s.rolePermissions[rk][permID.String()] = struct{}{}
	return nil
}

func (s *Store) DetachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perms, ok := s.rolePermissions[roleID.String()]; ok {
		delete(perms, permID.String())
	}
	return nil
}

func (s *Store) SetRolePermissions(_ context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms := make(map[string]struct{}, len(permIDs))
	for _, pid := range permIDs {
		perms[pid.String()] = struct{}{}
	}
	s.rolePermissions[roleID.String()] = perms
	return nil
}

// roleNameTaken must be called with s.mu held.
func (s *Store) roleNameTaken(r *role.Role) bool {
	for _, existing := range s.roles {
		if existing.ID != r.ID && existing.Guard == r.Guard && strings.EqualFold(existing.Name, r.Name) {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.permissions {
		if existing.Guard == p.Guard && existing.Name == p.Name {
			return fmt.Errorf("permission %q: %w", p.Name, store.ErrDuplicate)
		}
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByName(_ context.Context, guard, name string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.Guard == guard && p.Name == name {
			return copyPermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permissions, permID.String())
	for _, perms := range s.rolePermissions {
		delete(perms, permID.String())
	}
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if filter != nil {
			if filter.Guard != "" && p.Guard != filter.Guard {
				continue
			}
			if filter.Search != "" && !containsFold(p.Name, filter.Search) {
				continue
			}
		}
		result = append(result, copyPermission(p))
	}
	sortPermissions(result)
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, pagOpts{filter.Limit, filter.Offset}), nil
}

func (s *Store) ListPermissionsByRole(_ context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms := s.rolePermissions[roleID.String()]
	result := make([]*permission.Permission, 0, len(perms))
	for pid := range perms {
		if p, ok := s.permissions[pid]; ok {
			result = append(result, copyPermission(p))
		}
	}
	sortPermissions(result)
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments {
		if existing.UserID == a.UserID && existing.RoleID == a.RoleID {
			return fmt.Errorf("assignment %s/%s: %w", a.UserID, a.RoleID, store.ErrDuplicate)
		}
	}
	c := *a
	s.assignments[a.ID.String()] = &c
	return nil
}

func (s *Store) DeleteAssignment(_ context.Context, userID id.UserID, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.assignments {
		if a.UserID == userID && a.RoleID == roleID {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) ListRolesForUser(_ context.Context, userID id.UserID) ([]id.RoleID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []id.RoleID
	for _, a := range s.assignments {
		if a.UserID == userID {
			result = append(result, a.RoleID)
		}
	}
	slices.SortFunc(result, func(a, b id.RoleID) int { return strings.Compare(a.String(), b.String()) })
	return result, nil
}

func (s *Store) ListUsersForRole(_ context.Context, roleID id.RoleID) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []id.UserID
	for _, a := range s.assignments {
		if a.RoleID == roleID {
			result = append(result, a.UserID)
		}
	}
	slices.SortFunc(result, func(a, b id.UserID) int { return strings.Compare(a.String(), b.String()) })
	return result, nil
}

func (s *Store) DeleteAssignmentsByUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.assignments {
		if a.UserID == userID {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) DeleteAssignmentsByRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.assignments {
		if a.RoleID == roleID {
			delete(s.assignments, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Setting Store
// ──────────────────────────────────────────────────

func (s *Store) GetSetting(_ context.Context, tenantID id.TenantID, key string) (*setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settingsUnavailable {
		return nil, fmt.Errorf("settings: %w", store.ErrUnavailable)
	}
	row, ok := s.settings[settingKey(tenantID, key)]
	if !ok {
		return nil, fmt.Errorf("setting %q: %w", key, store.ErrNotFound)
	}
	return copySetting(row), nil
}

func (s *Store) UpsertSetting(_ context.Context, row *setting.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settingsUnavailable {
		return fmt.Errorf("settings: %w", store.ErrUnavailable)
	}
	now := time.Now().UTC()
	k := settingKey(row.TenantID, row.Key)
	if existing, ok := s.settings[k]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		if row.ID.IsNil() {
			row.ID = id.NewSettingID()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	row.UpdatedAt = now
	s.settings[k] = copySetting(row)
	return nil
}

func (s *Store) DeleteSetting(_ context.Context, tenantID id.TenantID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settingsUnavailable {
		return fmt.Errorf("settings: %w", store.ErrUnavailable)
	}
	delete(s.settings, settingKey(tenantID, key))
	return nil
}

func (s *Store) ListSettings(_ context.Context, tenantID id.TenantID) ([]*setting.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settingsUnavailable {
		return nil, fmt.Errorf("settings: %w", store.ErrUnavailable)
	}
	var result []*setting.Setting
	for _, row := range s.settings {
		if row.TenantID == tenantID {
			result = append(result, copySetting(row))
		}
	}
	slices.SortFunc(result, func(a, b *setting.Setting) int { return strings.Compare(a.Key, b.Key) })
	return result, nil
}

func settingKey(tenantID id.TenantID, key string) string {
	return tenantID.String() + "\x00" + key
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(_ context.Context, e *auditlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auditEntries[e.ID.String()]; ok {
		return fmt.Errorf("audit entry %s: %w", e.ID, store.ErrDuplicate)
	}
	s.auditEntries[e.ID.String()] = copyAuditEntry(e)
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, entryID id.AuditID) (*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auditEntries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, store.ErrNotFound)
	}
	return copyAuditEntry(e), nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter *auditlog.ListFilter) ([]*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.filterAudit(filter)
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, pagOpts{filter.Limit, filter.Offset}), nil
}

func (s *Store) CountAuditEntries(_ context.Context, filter *auditlog.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterAudit(filter))), nil
}

// filterAudit must be called with s.mu held.
func (s *Store) filterAudit(filter *auditlog.ListFilter) []*auditlog.Entry {
	result := make([]*auditlog.Entry, 0, len(s.auditEntries))
	for _, e := range s.auditEntries {
		if filter != nil {
			if !filter.TenantID.IsNil() && e.TenantID != filter.TenantID {
				continue
			}
			if !filter.UserID.IsNil() && e.UserID != filter.UserID {
				continue
			}
			if filter.EntityType != "" && e.EntityType != filter.EntityType {
				continue
			}
			if filter.EntityID != "" && e.EntityID != filter.EntityID {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
			if filter.Search != "" &&
				!containsFold(e.IP, filter.Search) &&
				!containsFold(e.UserAgent, filter.Search) &&
				!containsFold(e.EntityType, filter.Search) &&
				!containsFold(e.Action, filter.Search) {
				continue
			}
		}
		result = append(result, copyAuditEntry(e))
	}
	// Newest first.
	slices.SortFunc(result, func(a, b *auditlog.Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	return result
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyTenant(t *tenant.Tenant) *tenant.Tenant {
	c := *t
	return &c
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	return &c
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	return &c
}

func copySetting(row *setting.Setting) *setting.Setting {
	c := *row
	if row.Value != nil {
		c.Value = slices.Clone(row.Value)
	}
	return &c
}

func copyAuditEntry(e *auditlog.Entry) *auditlog.Entry {
	c := *e
	if e.Changes != nil {
		c.Changes = make(map[string]any, len(e.Changes))
		for k, v := range e.Changes {
			c.Changes[k] = v
		}
	}
	return &c
}

func sortPermissions(perms []*permission.Permission) {
	slices.SortFunc(perms, func(a, b *permission.Permission) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset > 0 && p.offset >= len(items) {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
