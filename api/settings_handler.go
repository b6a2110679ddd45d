package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/middleware"
)

func (a *API) registerSettingsRoutes(router forge.Router) error {
	g := router.Group(a.basePath, forge.WithGroupTags("settings"))
	canView := middleware.Require(a.eng, bastion.PermSettingsView)
	canManage := middleware.Require(a.eng, bastion.PermSettingsManage)

	if err := g.GET("/settings", guarded(canView, a.listSettings),
		forge.WithSummary("List settings"),
		forge.WithDescription("Returns every stored setting of the current tenant."),
		forge.WithOperationID("listSettings"),
		forge.WithResponseSchema(http.StatusOK, "Settings", &DataResponse[map[string]any]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/settings", guarded(canManage, a.updateSetting),
		forge.WithSummary("Update setting"),
		forge.WithDescription("Creates or replaces a setting."),
		forge.WithOperationID("updateSetting"),
		forge.WithRequestSchema(UpdateSettingRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Setting", &DataResponse[*SettingResponse]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/settings/:key", guarded(canManage, a.deleteSetting),
		forge.WithSummary("Delete setting"),
		forge.WithDescription("Deletes a setting and evicts its cached value."),
		forge.WithOperationID("deleteSetting"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listSettings(ctx forge.Context, _ *struct{}) (*DataResponse[map[string]any], error) {
	all, err := a.svc.ListSettings(ctx.Context())
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[map[string]any]{Data: all}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) updateSetting(ctx forge.Context, req *UpdateSettingRequest) (*DataResponse[*SettingResponse], error) {
	value, err := a.svc.UpdateSetting(ctx.Context(), req.Key, req.Value)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*SettingResponse]{Data: &SettingResponse{Key: req.Key, Value: value}}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteSetting(ctx forge.Context, _ *DeleteSettingRequest) (*struct{}, error) {
	if err := a.svc.DeleteSetting(ctx.Context(), ctx.Param("key")); err != nil {
		return nil, mapError(ctx, err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
