package admin

import (
	"context"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auditlog"
)

// ListAudit returns one page of audit entries, newest first, and the
// total count. Entries are confined to the current tenant when tenancy is
// enabled and a tenant is resolved.
func (s *Service) ListAudit(ctx context.Context, filter *auditlog.ListFilter) ([]*auditlog.Entry, int64, error) {
	if err := s.engine.Enforce(ctx, actor(ctx), bastion.PermAuditView); err != nil {
		return nil, 0, err
	}
	f := auditlog.ListFilter{}
	if filter != nil {
		f = *filter
	}
	if tid := s.scopedTenant(ctx); !tid.IsNil() {
		f.TenantID = tid
	}
	f.Limit = pageSize(f.Limit)
	return s.audit.List(ctx, &f)
}
