package permission

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for permissions.
type Store interface {
	// CreatePermission persists a new permission. Names are unique per guard.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves a permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByName retrieves a permission by guard and name.
	GetPermissionByName(ctx context.Context, guard, name string) (*Permission, error)

	// DeletePermission removes a permission and detaches it from all roles.
	DeletePermission(ctx context.Context, permID id.PermissionID) error

	// ListPermissions returns permissions ordered by name.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// ListPermissionsByRole returns all permissions attached to a role.
	ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*Permission, error)
}
