// Package permission defines the Permission entity and its store interface.
package permission

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Permission is an atomic named capability such as "users.manage".
type Permission struct {
	ID        id.PermissionID `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Guard     string          `json:"guard" db:"guard"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing permissions.
type ListFilter struct {
	Guard  string `json:"guard,omitempty"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
