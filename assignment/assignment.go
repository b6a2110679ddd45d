// Package assignment defines the Assignment entity (role to user binding).
package assignment

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Assignment grants a role to a user.
type Assignment struct {
	ID        id.AssignmentID `json:"id" db:"id"`
	UserID    id.UserID       `json:"user_id" db:"user_id"`
	RoleID    id.RoleID       `json:"role_id" db:"role_id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
