package user

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for users.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, userID id.UserID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, userID id.UserID) error

	// ListUsers returns users matching the filter. Filtering by role name
	// requires the backend to join through role assignments.
	ListUsers(ctx context.Context, filter *ListFilter) ([]*User, error)
	CountUsers(ctx context.Context, filter *ListFilter) (int64, error)
}
