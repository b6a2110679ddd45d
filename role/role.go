// Package role defines the Role entity and its store interface.
package role

import (
	"time"

	"github.com/xraph/bastion/id"
)

// DefaultGuard is the guard scope used by the admin console. Role names are
// unique per guard, so an API-token guard may reuse the same names.
const DefaultGuard = "web"

// Role is a named set of permissions that can be assigned to users.
type Role struct {
	ID        id.RoleID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Guard     string    `json:"guard" db:"guard"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AuditType implements audit.Entity.
func (r *Role) AuditType() string { return "role" }

// AuditID implements audit.Entity.
func (r *Role) AuditID() string { return r.ID.String() }

// ListFilter contains filters for listing roles.
type ListFilter struct {
	Guard  string `json:"guard,omitempty"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
