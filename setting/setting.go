// Package setting defines the persisted Setting row and its store interface.
package setting

import (
	"encoding/json"
	"time"

	"github.com/xraph/bastion/id"
)

// Setting is one (tenant, key) to JSON value row. A Nil TenantID marks a
// global setting, used when tenancy is disabled.
type Setting struct {
	ID        id.SettingID    `json:"id" db:"id"`
	TenantID  id.TenantID     `json:"tenant_id" db:"tenant_id"`
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// AuditType implements audit.Entity.
func (s *Setting) AuditType() string { return "setting" }

// AuditID implements audit.Entity.
func (s *Setting) AuditID() string { return s.ID.String() }
