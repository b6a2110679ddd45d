package setting

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for settings. Backends return
// store.ErrUnavailable when the settings table has not been provisioned.
type Store interface {
	// GetSetting retrieves the row for (tenantID, key).
	GetSetting(ctx context.Context, tenantID id.TenantID, key string) (*Setting, error)

	// UpsertSetting inserts or overwrites the value for (tenantID, key).
	// The row ID and CreatedAt of an existing row are preserved.
	UpsertSetting(ctx context.Context, s *Setting) error

	// DeleteSetting removes the row for (tenantID, key).
	DeleteSetting(ctx context.Context, tenantID id.TenantID, key string) error

	// ListSettings returns every row for a tenant ordered by key.
	ListSettings(ctx context.Context, tenantID id.TenantID) ([]*Setting, error)
}
