// Package auditlog defines the append-only audit Entry entity.
package auditlog

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Actions recorded in the audit trail.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ValidAction reports whether action is one of the recorded actions.
func ValidAction(action string) bool {
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// Entry is a single immutable audit record.
type Entry struct {
	ID         id.AuditID     `json:"id" db:"id"`
	UserID     id.UserID      `json:"user_id" db:"user_id"`
	TenantID   id.TenantID    `json:"tenant_id" db:"tenant_id"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	EntityID   string         `json:"entity_id" db:"entity_id"`
	Action     string         `json:"action" db:"action"`
	Changes    map[string]any `json:"changes,omitempty" db:"changes"`
	IP         string         `json:"ip,omitempty" db:"ip"`
	UserAgent  string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing audit entries. Results are
// always ordered newest first.
type ListFilter struct {
	TenantID   id.TenantID `json:"tenant_id,omitempty"`
	UserID     id.UserID   `json:"user_id,omitempty"`
	EntityType string      `json:"entity_type,omitempty"`
	EntityID   string      `json:"entity_id,omitempty"`
	Action     string      `json:"action,omitempty"`
	// Search matches ip, user agent, entity type or action as a substring.
	Search string     `json:"search,omitempty"`
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}
