package api

import (
	"github.com/xraph/bastion/role"
)

// ErrorResponse is the body of a 422 response.
type ErrorResponse struct {
	Error string `json:"error" description:"Validation message"`
}

// PageMeta describes the page returned by a list endpoint.
type PageMeta struct {
	Total       int64 `json:"total" description:"Total count"`
	PerPage     int   `json:"per_page" description:"Page size"`
	CurrentPage int   `json:"current_page" description:"Current page"`
	LastPage    int   `json:"last_page" description:"Last page"`
}

// PageResponse wraps a page of items.
type PageResponse[T any] struct {
	Data []T      `json:"data" description:"Items of this page"`
	Meta PageMeta `json:"meta" description:"Pagination metadata"`
}

// DataResponse wraps a single payload.
type DataResponse[T any] struct {
	Data T `json:"data" description:"Payload"`
}

// RoleResponse is a role with its permission names.
type RoleResponse struct {
	*role.Role
	Permissions []string `json:"permissions" description:"Granted permission names"`
}

// SettingResponse is a single setting.
type SettingResponse struct {
	Key   string `json:"key" description:"Setting key"`
	Value any    `json:"value" description:"Decoded JSON value"`
}

// AccountResponse describes the authenticated principal.
type AccountResponse struct {
	UserID      string   `json:"user_id" description:"User ID"`
	TenantID    string   `json:"tenant_id,omitempty" description:"Resolved tenant ID"`
	Roles       []string `json:"roles" description:"Role names"`
	Permissions []string `json:"permissions" description:"Effective permissions"`
	IsRoot      bool     `json:"is_root" description:"Whether the principal holds root"`
}
