package role

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for roles.
type Store interface {
	// CreateRole persists a new role. A name already taken within the
	// same guard (compared case-insensitively) yields store.ErrDuplicate.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by guard and case-insensitive name.
	GetRoleByName(ctx context.Context, guard, name string) (*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role and its permission links.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles ordered by name.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// ListRolePermissions returns permission IDs attached to a role.
	ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error)

	// AttachPermission links a permission to a role. Attaching twice is a no-op.
	AttachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error

	// DetachPermission removes a permission from a role.
	DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error

	// SetRolePermissions replaces all permissions for a role.
	SetRolePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error
}
