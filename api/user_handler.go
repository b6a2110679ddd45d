package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/admin"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/user"
)

func (a *API) registerUserRoutes(router forge.Router) error {
	g := router.Group(a.basePath, forge.WithGroupTags("users"))

	if err := g.GET("/users", a.listUsers,
		forge.WithSummary("List users"),
		forge.WithDescription("Lists the users of the current tenant with filters, sorting and pagination."),
		forge.WithOperationID("listUsers"),
		forge.WithRequestSchema(ListUsersRequest{}),
		forge.WithResponseSchema(http.StatusOK, "User page", &PageResponse[*admin.Member]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/users/:userId", a.getUser,
		forge.WithSummary("Get user"),
		forge.WithDescription("Returns a user of the current tenant."),
		forge.WithOperationID("getUser"),
		forge.WithResponseSchema(http.StatusOK, "User details", &DataResponse[*admin.Member]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/users/:userId", a.updateUser,
		forge.WithSummary("Update user"),
		forge.WithDescription("Updates a user's name, locale or roles."),
		forge.WithOperationID("updateUser"),
		forge.WithRequestSchema(UpdateUserRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated user", &DataResponse[*admin.Member]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/users/:userId", a.deleteUser,
		forge.WithSummary("Delete user"),
		forge.WithDescription("Deletes a user. Deleting oneself is rejected."),
		forge.WithOperationID("deleteUser"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listUsers(ctx forge.Context, req *ListUsersRequest) (*PageResponse[*admin.Member], error) {
	from, to, err := dateRange(req.CreatedFrom, req.CreatedTo)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	switch req.SortBy {
	case "", user.SortByID, user.SortByName, user.SortByEmail, user.SortByCreatedAt:
	default:
		return nil, mapError(ctx, fmt.Errorf("%w: unsupported sort_by %q", bastion.ErrValidation, req.SortBy))
	}
	limit, offset := pagination(req.Page, req.PerPage)

	members, total, err := a.svc.ListUsers(ctx.Context(), &user.ListFilter{
		Search:      strings.TrimSpace(req.Search),
		Role:        strings.TrimSpace(req.Role),
		CreatedFrom: from,
		CreatedTo:   to,
		SortBy:      req.SortBy,
		SortDesc:    !strings.EqualFold(req.SortDir, "asc"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &PageResponse[*admin.Member]{Data: members, Meta: pageMeta(total, limit, offset)}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getUser(ctx forge.Context, _ *GetUserRequest) (*DataResponse[*admin.Member], error) {
	userID, err := id.ParseUserID(ctx.Param("userId"))
	if err != nil {
		return nil, forge.NotFound("user not found")
	}
	m, err := a.svc.GetUser(ctx.Context(), userID)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*admin.Member]{Data: m}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) updateUser(ctx forge.Context, req *UpdateUserRequest) (*DataResponse[*admin.Member], error) {
	userID, err := id.ParseUserID(ctx.Param("userId"))
	if err != nil {
		return nil, forge.NotFound("user not found")
	}
	m, err := a.svc.UpdateUser(ctx.Context(), userID, admin.UpdateUserInput{
		Name:   req.Name,
		Locale: req.Locale,
		Roles:  req.Roles,
	})
	if err != nil {
		return nil, mapError(ctx, err)
	}
	resp := &DataResponse[*admin.Member]{Data: m}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteUser(ctx forge.Context, _ *GetUserRequest) (*struct{}, error) {
	userID, err := id.ParseUserID(ctx.Param("userId"))
	if err != nil {
		return nil, forge.NotFound("user not found")
	}
	if err := a.svc.DeleteUser(ctx.Context(), userID); err != nil {
		return nil, mapError(ctx, err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
