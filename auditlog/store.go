package auditlog

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for the audit trail. There is no
// update or delete: entries are append-only.
type Store interface {
	// CreateAuditEntry appends a new entry.
	CreateAuditEntry(ctx context.Context, e *Entry) error

	// GetAuditEntry retrieves an entry by ID.
	GetAuditEntry(ctx context.Context, entryID id.AuditID) (*Entry, error)

	// ListAuditEntries returns entries matching the filter, newest first.
	ListAuditEntries(ctx context.Context, filter *ListFilter) ([]*Entry, error)

	// CountAuditEntries returns the number of entries matching the filter.
	CountAuditEntries(ctx context.Context, filter *ListFilter) (int64, error)
}
