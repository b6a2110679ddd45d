package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
)

func (a *API) registerAccountRoutes(router forge.Router) error {
	g := router.Group(a.basePath, forge.WithGroupTags("account"))

	return g.GET("/me", a.me,
		forge.WithSummary("Current principal"),
		forge.WithDescription("Returns the authenticated principal, its roles and effective permissions."),
		forge.WithOperationID("getAccount"),
		forge.WithResponseSchema(http.StatusOK, "Account", &AccountResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) me(ctx forge.Context, _ *struct{}) (*AccountResponse, error) {
	p, ok := bastion.PrincipalFromContext(ctx.Context())
	if !ok {
		return nil, forge.Forbidden("authentication required")
	}
	perms, err := a.eng.Permissions(ctx.Context(), p)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &AccountResponse{
		UserID:      p.ID.String(),
		TenantID:    bastion.TenantIDFromContext(ctx.Context()).String(),
		Roles:       p.Roles,
		Permissions: perms,
		IsRoot:      p.IsRoot(),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}
