// Package tenant defines the Tenant entity and its store interface.
//
// A tenant is the isolation boundary for settings and users. It is found
// either by slug (subdomain or override header), by a registered domain,
// or by being flagged as the default tenant.
package tenant

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Tenant is a registered isolation boundary.
type Tenant struct {
	ID        id.TenantID `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Slug      string      `json:"slug" db:"slug"`
	Domain    string      `json:"domain,omitempty" db:"domain"`
	IsDefault bool        `json:"is_default" db:"is_default"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// AuditType implements audit.Entity.
func (t *Tenant) AuditType() string { return "tenant" }

// AuditID implements audit.Entity.
func (t *Tenant) AuditID() string { return t.ID.String() }

// ListFilter contains filters for listing tenants.
type ListFilter struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
