package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/middleware"
)

func (a *API) registerAuditRoutes(router forge.Router) error {
	g := router.Group(a.basePath, forge.WithGroupTags("audit"))

	return g.GET("/audit-logs", guarded(middleware.Require(a.eng, bastion.PermAuditView), a.listAuditLogs),
		forge.WithSummary("List audit logs"),
		forge.WithDescription("Lists audit entries, newest first, with filters and pagination."),
		forge.WithOperationID("listAuditLogs"),
		forge.WithRequestSchema(ListAuditLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Audit page", &PageResponse[*auditlog.Entry]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listAuditLogs(ctx forge.Context, req *ListAuditLogsRequest) (*PageResponse[*auditlog.Entry], error) {
	if req.Action != "" && !auditlog.ValidAction(req.Action) {
		return nil, mapError(ctx, fmt.Errorf("%w: unsupported action %q", bastion.ErrValidation, req.Action))
	}
	userID, err := id.ParseOptional(req.UserID, id.PrefixUser)
	if err != nil {
		return nil, mapError(ctx, fmt.Errorf("%w: invalid user_id", bastion.ErrValidation))
	}
	from, to, err := dateRange(req.CreatedFrom, req.CreatedTo)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	limit, offset := pagination(req.Page, req.PerPage)

	entries, total, err := a.svc.ListAudit(ctx.Context(), &auditlog.ListFilter{
		UserID:     userID,
		EntityType: strings.TrimSpace(req.EntityType),
		EntityID:   strings.TrimSpace(req.EntityID),
		Action:     req.Action,
		Search:     strings.TrimSpace(req.Search),
		After:      from,
		Before:     to,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &PageResponse[*auditlog.Entry]{Data: entries, Meta: pageMeta(total, limit, offset)}
	return resp, ctx.JSON(http.StatusOK, resp)
}
