package tenant

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store is the tenant registry.
type Store interface {
	// CreateTenant persists a new tenant. Slug and non-empty domain are unique.
	CreateTenant(ctx context.Context, t *Tenant) error

	// GetTenant retrieves a tenant by ID.
	GetTenant(ctx context.Context, tenantID id.TenantID) (*Tenant, error)

	// GetTenantBySlug retrieves a tenant by its slug.
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)

	// GetTenantByDomain retrieves a tenant by exact registered domain.
	GetTenantByDomain(ctx context.Context, domain string) (*Tenant, error)

	// GetDefaultTenant returns the tenant flagged as default. When more
	// than one is flagged, the one with the lowest ID wins.
	GetDefaultTenant(ctx context.Context) (*Tenant, error)

	// UpdateTenant persists changes to a tenant.
	UpdateTenant(ctx context.Context, t *Tenant) error

	// DeleteTenant removes a tenant by ID.
	DeleteTenant(ctx context.Context, tenantID id.TenantID) error

	// ListTenants returns tenants ordered by ID.
	ListTenants(ctx context.Context, filter *ListFilter) ([]*Tenant, error)
}
