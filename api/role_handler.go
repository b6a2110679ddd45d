package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/middleware"
	"github.com/xraph/bastion/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group(a.basePath, forge.WithGroupTags("roles"))
	canSee := middleware.Require(a.eng, bastion.PermRolesView)
	canGrant := middleware.RequireAll(a.eng, bastion.PermRolesView, bastion.PermRolesManage)

	if err := g.GET("/roles", guarded(canSee, a.listRoles),
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists roles ordered by name."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role list", &DataResponse[[]*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a role. Only root may create the root role."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&DataResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", guarded(canSee, a.getRole),
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns a role and its permissions."),
		forge.WithOperationID("getRole"),
		forge.WithResponseSchema(http.StatusOK, "Role details", &DataResponse[*RoleResponse]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId", a.renameRole,
		forge.WithSummary("Rename role"),
		forge.WithDescription("Renames a role. Renaming to or from root requires root."),
		forge.WithOperationID("renameRole"),
		forge.WithRequestSchema(RenameRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Renamed role", &DataResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId/permissions", guarded(canGrant, a.setRolePermissions),
		forge.WithSummary("Set role permissions"),
		forge.WithDescription("Replaces the permissions granted to a role."),
		forge.WithOperationID("setRolePermissions"),
		forge.WithRequestSchema(SetRolePermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role details", &DataResponse[*RoleResponse]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Deletes a role. Only root may delete the root role."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listRoles(ctx forge.Context, req *ListRolesRequest) (*DataResponse[[]*role.Role], error) {
	roles, err := a.svc.ListRoles(ctx.Context(), &role.ListFilter{Search: req.Search})
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[[]*role.Role]{Data: roles}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*DataResponse[*role.Role], error) {
	r, err := a.svc.CreateRole(ctx.Context(), req.Name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*role.Role]{Data: r}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*DataResponse[*RoleResponse], error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.NotFound("role not found")
	}
	r, perms, err := a.svc.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*RoleResponse]{Data: &RoleResponse{Role: r, Permissions: perms}}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) renameRole(ctx forge.Context, req *RenameRoleRequest) (*DataResponse[*role.Role], error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.NotFound("role not found")
	}
	r, err := a.svc.RenameRole(ctx.Context(), roleID, req.Name)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*role.Role]{Data: r}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) setRolePermissions(ctx forge.Context, req *SetRolePermissionsRequest) (*DataResponse[*RoleResponse], error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.NotFound("role not found")
	}
	perms, err := a.svc.SetRolePermissions(ctx.Context(), roleID, req.Permissions)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	r, _, err := a.svc.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*RoleResponse]{Data: &RoleResponse{Role: r, Permissions: perms}}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.NotFound("role not found")
	}
	if err := a.svc.DeleteRole(ctx.Context(), roleID); err != nil {
		return nil, mapError(ctx, err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
