// Package user defines the User entity (the authenticated principal's
// persistent record) and its store interface.
package user

import (
	"time"

	"github.com/xraph/bastion/id"
)

// User is an account. A Nil TenantID marks a global account, which is how
// root operators are usually provisioned.
type User struct {
	ID           id.UserID   `json:"id" db:"id"`
	TenantID     id.TenantID `json:"tenant_id" db:"tenant_id"`
	Name         string      `json:"name" db:"name"`
	Email        string      `json:"email" db:"email"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Locale       string      `json:"locale,omitempty" db:"locale"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// AuditType implements audit.Entity.
func (u *User) AuditType() string { return "user" }

// AuditID implements audit.Entity.
func (u *User) AuditID() string { return u.ID.String() }

// Sortable columns for ListFilter.SortBy.
const (
	SortByID        = "id"
	SortByName      = "name"
	SortByEmail     = "email"
	SortByCreatedAt = "created_at"
)

// ListFilter contains filters for listing users.
type ListFilter struct {
	// TenantID restricts the listing to one tenant. Nil lists every user.
	TenantID    id.TenantID `json:"tenant_id,omitempty"`
	Search      string      `json:"search,omitempty"`
	Role        string      `json:"role,omitempty"`
	CreatedFrom *time.Time  `json:"created_from,omitempty"`
	CreatedTo   *time.Time  `json:"created_to,omitempty"`
	SortBy      string      `json:"sort_by,omitempty"`
	SortDesc    bool        `json:"sort_desc,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}

// NormalizedSort returns a whitelisted sort column, falling back to id.
func (f *ListFilter) NormalizedSort() string {
	switch f.SortBy {
	case SortByName, SortByEmail, SortByCreatedAt:
		return f.SortBy
	default:
		return SortByID
	}
}
