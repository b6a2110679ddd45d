package assignment

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for role assignments.
type Store interface {
	// CreateAssignment persists a new assignment. Assigning the same role
	// to the same user twice yields store.ErrDuplicate.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// DeleteAssignment removes the binding between a user and a role.
	DeleteAssignment(ctx context.Context, userID id.UserID, roleID id.RoleID) error

	// ListRolesForUser returns role IDs assigned to a user.
	ListRolesForUser(ctx context.Context, userID id.UserID) ([]id.RoleID, error)

	// ListUsersForRole returns user IDs holding a role.
	ListUsersForRole(ctx context.Context, roleID id.RoleID) ([]id.UserID, error)

	// DeleteAssignmentsByUser removes all assignments for a user.
	DeleteAssignmentsByUser(ctx context.Context, userID id.UserID) error

	// DeleteAssignmentsByRole removes all assignments for a role.
	DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error
}
