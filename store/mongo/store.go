// Package mongo provides a MongoDB implementation of the Bastion composite
// store using grove's MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colTenants         = "bastion_tenants"
	colUsers           = "bastion_users"
	colRoles           = "bastion_roles"
	colPermissions     = "bastion_permissions"
	colRolePermissions = "bastion_role_permissions"
	colAssignments     = "bastion_assignments"
	colSettings        = "bastion_settings"
	colAuditLogs       = "bastion_audit_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Bastion store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all bastion collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("bastion/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// classify maps duplicate key errors onto store.ErrDuplicate.
func classify(op string, err error) error {
	if mongod.IsDuplicateKeyError(err) {
		return fmt.Errorf("bastion/mongo: %s: %w: %w", op, store.ErrDuplicate, err)
	}
	return fmt.Errorf("bastion/mongo: %s: %w", op, err)
}

// contains builds a case-insensitive substring match.
func contains(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// migrationIndexes returns the index definitions for all bastion collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colTenants: {
			{Keys: bson.D{{Key: "slug_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "domain_key", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "is_default", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
		colRoles: {
			{
				Keys:    bson.D{{Key: "guard", Value: 1}, {Key: "name_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colPermissions: {
			{
				Keys:    bson.D{{Key: "guard", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colRolePermissions: {
			{
				Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "permission_id", Value: 1}}},
		},
		colAssignments: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "role_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
		colSettings: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAuditLogs: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Tenant operations
// ──────────────────────────────────────────────────

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts
	if _, err := s.mdb.NewInsert(tenantToModel(t)).Exec(ctx); err != nil {
		return classify("create tenant", err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID id.TenantID) (*tenant.Tenant, error) {
	return s.findTenant(ctx, fmt.Sprintf("tenant %s", tenantID), bson.M{"_id": tenantID.String()})
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.findTenant(ctx, fmt.Sprintf("tenant slug %q", slug), bson.M{"slug_key": strings.ToLower(slug)})
}

func (s *Store) GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	if domain == "" {
		return nil, fmt.Errorf("tenant domain %q: %w", domain, store.ErrNotFound)
	}
	return s.findTenant(ctx, fmt.Sprintf("tenant domain %q", domain), bson.M{"domain_key": strings.ToLower(domain)})
}

func (s *Store) findTenant(ctx context.Context, what string, filter bson.M) (*tenant.Tenant, error) {
	var m tenantModel
	if err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%s: %w", what, store.ErrNotFound)
		}
		return nil, classify("get tenant", err)
	}
	return tenantFromModel(&m), nil
}

func (s *Store) GetDefaultTenant(ctx context.Context) (*tenant.Tenant, error) {
	var models []tenantModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"is_default": true}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, classify("get default tenant", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("default tenant: %w", store.ErrNotFound)
	}
	return tenantFromModel(&models[0]), nil
}

func (s *Store) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	t.UpdatedAt = now()
	m := tenantToModel(t)
	res, err := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx)
	if err != nil {
		return classify("update tenant", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("tenant %s: %w", t.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	_, err := s.mdb.NewDelete((*tenantModel)(nil)).
		Filter(bson.M{"_id": tenantID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete tenant", err)
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context, filter *tenant.ListFilter) ([]*tenant.Tenant, error) {
	var models []tenantModel
	f := bson.M{}
	if filter != nil && filter.Search != "" {
		f["$or"] = bson.A{bson.M{"name": contains(filter.Search)}, bson.M{"slug": contains(filter.Search)}}
	}
	q := s.mdb.NewFind(&models).Filter(f).Sort(bson.D{{Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list tenants", err)
	}
	result := make([]*tenant.Tenant, len(models))
	for i := range models {
		result[i] = tenantFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	ts := now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = ts
	}
	u.UpdatedAt = ts
	if _, err := s.mdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return classify("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": userID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
		}
		return nil, classify("get user", err)
	}
	return userFromModel(&m), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var m userModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"email_key": strings.ToLower(email)}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("user email %q: %w", email, store.ErrNotFound)
		}
		return nil, classify("get user by email", err)
	}
	return userFromModel(&m), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = now()
	m := userToModel(u)
	res, err := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx)
	if err != nil {
		return classify("update user", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	if err := s.DeleteAssignmentsByUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.mdb.NewDelete((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete user", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	f, err := s.userFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	var models []userModel
	q := s.mdb.NewFind(&models).Filter(f).Sort(userSort(filter))
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list users", err)
	}
	result := make([]*user.User, len(models))
	for i := range models {
		result[i] = userFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	f, err := s.userFilter(ctx, filter)
	if err != nil {
		return 0, err
	}
	count, err := s.mdb.NewFind((*userModel)(nil)).Filter(f).Count(ctx)
	if err != nil {
		return 0, classify("count users", err)
	}
	return count, nil
}

func (s *Store) userFilter(ctx context.Context, filter *user.ListFilter) (bson.M, error) {
	f := bson.M{}
	if filter == nil {
		return f, nil
	}
	if !filter.TenantID.IsNil() {
		f["tenant_id"] = filter.TenantID.String()
	}
	if filter.Search != "" {
		f["$or"] = bson.A{bson.M{"name": contains(filter.Search)}, bson.M{"email": contains(filter.Search)}}
	}
	created := bson.M{}
	if filter.CreatedFrom != nil {
		created["$gte"] = *filter.CreatedFrom
	}
	if filter.CreatedTo != nil {
		created["$lte"] = *filter.CreatedTo
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	if filter.Role != "" {
		var roles []roleModel
		if err := s.mdb.NewFind(&roles).
			Filter(bson.M{"name_key": strings.ToLower(filter.Role)}).
			Scan(ctx); err != nil {
			return nil, classify("resolve role filter", err)
		}
		roleIDs := make([]string, len(roles))
		for i := range roles {
			roleIDs[i] = roles[i].ID
		}
		var assigned []assignmentModel
		if err := s.mdb.NewFind(&assigned).
			Filter(bson.M{"role_id": bson.M{"$in": roleIDs}}).
			Scan(ctx); err != nil {
			return nil, classify("resolve role filter", err)
		}
		userIDs := make([]string, len(assigned))
		for i := range assigned {
			userIDs[i] = assigned[i].UserID
		}
		f["_id"] = bson.M{"$in": userIDs}
	}
	return f, nil
}

func userSort(filter *user.ListFilter) bson.D {
	column, dir := "_id", 1
	if filter != nil {
		if c := filter.NormalizedSort(); c != user.SortByID {
			column = c
		}
		if filter.SortDesc {
			dir = -1
		}
	}
	if column == "_id" {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: column, Value: dir}, {Key: "_id", Value: dir}}
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	ts := now()
	r.CreatedAt = ts
	r.UpdatedAt = ts
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return classify("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": roleID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil, classify("get role", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, guard, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guard": guard, "name_key": strings.ToLower(name)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
		}
		return nil, classify("get role by name", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = now()
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx)
	if err != nil {
		return classify("update role", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	if _, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
		Exec(ctx); err != nil {
		return classify("delete role permissions", err)
	}
	if err := s.DeleteAssignmentsByRole(ctx, roleID); err != nil {
		return err
	}
	_, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete role", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	f := bson.M{}
	if filter != nil {
		if filter.Guard != "" {
			f["guard"] = filter.Guard
		}
		if filter.Search != "" {
			f["name"] = contains(filter.Search)
		}
	}
	q := s.mdb.NewFind(&models).Filter(f).Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list roles", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Sort(bson.D{{Key: "permission_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, classify("list role permissions", err)
	}
	result := make([]id.PermissionID, 0, len(models))
	for _, m := range models {
		pid, err := id.ParsePermissionID(m.PermissionID)
		if err == nil {
			result = append(result, pid)
		}
	}
	return result, nil
}

func (s *Store) AttachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	m := &rolePermissionModel{
		RoleID:       roleID.String(),
		PermissionID: permID.String(),
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return nil // already attached
		}
		return classify("attach permission", err)
	}
	return nil
}

func (s *Store) DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	_, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Filter(bson.M{"role_id": roleID.String(), "permission_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("detach permission", err)
	}
	return nil
}

func (s *Store) SetRolePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	_, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("clear role permissions", err)
	}

	if len(permIDs) > 0 {
		models := make([]rolePermissionModel, len(permIDs))
		for i, pid := range permIDs {
			models[i] = rolePermissionModel{
				RoleID:       roleID.String(),
				PermissionID: pid.String(),
			}
		}
		if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
			return classify("set role permissions", err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	p.CreatedAt = now()
	if _, err := s.mdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		return classify("create permission", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": permID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
		}
		return nil, classify("get permission", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, guard, name string) (*permission.Permission, error) {
	var m permissionModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"guard": guard, "name": name}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
		}
		return nil, classify("get permission by name", err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	if _, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Many().
		Filter(bson.M{"permission_id": permID.String()}).
		Exec(ctx); err != nil {
		return classify("detach permission", err)
	}
	_, err := s.mdb.NewDelete((*permissionModel)(nil)).
		Filter(bson.M{"_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete permission", err)
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	f := bson.M{}
	if filter != nil {
		if filter.Guard != "" {
			f["guard"] = filter.Guard
		}
		if filter.Search != "" {
			f["name"] = contains(filter.Search)
		}
	}
	q := s.mdb.NewFind(&models).Filter(f).Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list permissions", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	permIDs, err := s.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if len(permIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(permIDs))
	for i, pid := range permIDs {
		ids[i] = pid.String()
	}
	var models []permissionModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": ids}}).
		Sort(bson.D{{Key: "name", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, classify("list permissions by role", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	a.CreatedAt = now()
	if _, err := s.mdb.NewInsert(assignmentToModel(a)).Exec(ctx); err != nil {
		return classify("create assignment", err)
	}
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, userID id.UserID, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Filter(bson.M{"user_id": userID.String(), "role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete assignment", err)
	}
	return nil
}

func (s *Store) ListRolesForUser(ctx context.Context, userID id.UserID) ([]id.RoleID, error) {
	var models []assignmentModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID.String()}).
		Sort(bson.D{{Key: "role_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, classify("list roles for user", err)
	}
	result := make([]id.RoleID, 0, len(models))
	for _, m := range models {
		if rid, err := id.ParseRoleID(m.RoleID); err == nil {
			result = append(result, rid)
		}
	}
	return result, nil
}

func (s *Store) ListUsersForRole(ctx context.Context, roleID id.RoleID) ([]id.UserID, error) {
	var models []assignmentModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Sort(bson.D{{Key: "user_id", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, classify("list users for role", err)
	}
	result := make([]id.UserID, 0, len(models))
	for _, m := range models {
		if uid, err := id.ParseUserID(m.UserID); err == nil {
			result = append(result, uid)
		}
	}
	return result, nil
}

func (s *Store) DeleteAssignmentsByUser(ctx context.Context, userID id.UserID) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{"user_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete assignments by user", err)
	}
	return nil
}

func (s *Store) DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return classify("delete assignments by role", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Setting operations
// ──────────────────────────────────────────────────

func (s *Store) GetSetting(ctx context.Context, tenantID id.TenantID, key string) (*setting.Setting, error) {
	var m settingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID.String(), "key": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("setting %q: %w", key, store.ErrNotFound)
		}
		return nil, classify("get setting", err)
	}
	return settingFromModel(&m), nil
}

// UpsertSetting uses the driver's native upsert so concurrent writers to
// the same (tenant, key) never produce two documents.
func (s *Store) UpsertSetting(ctx context.Context, row *setting.Setting) error {
	ts := now()
	if row.ID.IsNil() {
		row.ID = id.NewSettingID()
	}
	value := string(row.Value)
	if value == "" {
		value = "null"
	}
	filter := bson.M{"tenant_id": row.TenantID.String(), "key": row.Key}
	update := bson.M{
		"$set":         bson.M{"value": value, "updated_at": ts},
		"$setOnInsert": bson.M{"_id": row.ID.String(), "created_at": ts},
	}
	_, err := s.mdb.Collection(colSettings).
		UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return classify("upsert setting", err)
	}
	stored, err := s.GetSetting(ctx, row.TenantID, row.Key)
	if err != nil {
		return err
	}
	row.ID = stored.ID
	row.CreatedAt = stored.CreatedAt
	row.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, tenantID id.TenantID, key string) error {
	_, err := s.mdb.NewDelete((*settingModel)(nil)).
		Filter(bson.M{"tenant_id": tenantID.String(), "key": key}).
		Exec(ctx)
	if err != nil {
		return classify("delete setting", err)
	}
	return nil
}

func (s *Store) ListSettings(ctx context.Context, tenantID id.TenantID) ([]*setting.Setting, error) {
	var models []settingModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID.String()}).
		Sort(bson.D{{Key: "key", Value: 1}}).
		Scan(ctx); err != nil {
		return nil, classify("list settings", err)
	}
	result := make([]*setting.Setting, len(models))
	for i := range models {
		result[i] = settingFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *auditlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	if _, err := s.mdb.NewInsert(auditEntryToModel(e)).Exec(ctx); err != nil {
		return classify("create audit entry", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditID) (*auditlog.Entry, error) {
	var m auditEntryModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": entryID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("audit entry %s: %w", entryID, store.ErrNotFound)
		}
		return nil, classify("get audit entry", err)
	}
	return auditEntryFromModel(&m), nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *auditlog.ListFilter) ([]*auditlog.Entry, error) {
	var models []auditEntryModel
	q := s.mdb.NewFind(&models).
		Filter(auditFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list audit entries", err)
	}
	result := make([]*auditlog.Entry, len(models))
	for i := range models {
		result[i] = auditEntryFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *auditlog.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*auditEntryModel)(nil)).
		Filter(auditFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, classify("count audit entries", err)
	}
	return count, nil
}

func auditFilter(filter *auditlog.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if !filter.TenantID.IsNil() {
		f["tenant_id"] = filter.TenantID.String()
	}
	if !filter.UserID.IsNil() {
		f["user_id"] = filter.UserID.String()
	}
	if filter.EntityType != "" {
		f["entity_type"] = filter.EntityType
	}
	if filter.EntityID != "" {
		f["entity_id"] = filter.EntityID
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	created := bson.M{}
	if filter.After != nil {
		created["$gte"] = *filter.After
	}
	if filter.Before != nil {
		created["$lte"] = *filter.Before
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	if filter.Search != "" {
		m := contains(filter.Search)
		f["$or"] = bson.A{
			bson.M{"ip": m},
			bson.M{"user_agent": m},
			bson.M{"entity_type": m},
			bson.M{"action": m},
		}
	}
	return f
}
