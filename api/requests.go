package api

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name string `json:"name" description:"Role name (3-64 characters, unique per guard)"`
}

// RenameRoleRequest is the body for renaming a role.
type RenameRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
	Name   string `json:"name" description:"New role name"`
}

// GetRoleRequest is the path parameter for addressing a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Search string `query:"search" description:"Search by name"`
}

// SetRolePermissionsRequest replaces the permissions of a role.
type SetRolePermissionsRequest struct {
	RoleID      string   `path:"roleId" description:"Role ID"`
	Permissions []string `json:"permissions" description:"Permission names"`
}

// ──────────────────────────────────────────────────
// User requests
// ──────────────────────────────────────────────────

// ListUsersRequest holds query parameters for listing users.
type ListUsersRequest struct {
	Search      string `query:"search" description:"Search by name or email"`
	Role        string `query:"role" description:"Only users holding this role"`
	CreatedFrom string `query:"created_from" description:"Created on or after (YYYY-MM-DD)"`
	CreatedTo   string `query:"created_to" description:"Created on or before (YYYY-MM-DD)"`
	SortBy      string `query:"sort_by" description:"id, name, email or created_at"`
	SortDir     string `query:"sort_dir" description:"asc or desc (default desc)"`
	Page        int    `query:"page" description:"Page number (default 1)"`
	PerPage     int    `query:"per_page" description:"Page size (default 10, max 100)"`
}

// GetUserRequest is the path parameter for addressing a user.
type GetUserRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// UpdateUserRequest is the body for updating a user.
type UpdateUserRequest struct {
	UserID string   `path:"userId" description:"User ID"`
	Name   *string  `json:"name,omitempty" description:"Display name"`
	Locale *string  `json:"locale,omitempty" description:"Preferred locale"`
	Roles  []string `json:"roles,omitempty" description:"Replacement role names"`
}

// ──────────────────────────────────────────────────
// Settings requests
// ──────────────────────────────────────────────────

// UpdateSettingRequest is the body for writing a setting.
type UpdateSettingRequest struct {
	Key   string `json:"key" description:"Setting key (max 255 characters)"`
	Value any    `json:"value" description:"Any JSON value"`
}

// DeleteSettingRequest is the path parameter for deleting a setting.
type DeleteSettingRequest struct {
	Key string `path:"key" description:"Setting key"`
}

// ──────────────────────────────────────────────────
// Audit requests
// ──────────────────────────────────────────────────

// ListAuditLogsRequest holds query parameters for listing audit entries.
type ListAuditLogsRequest struct {
	EntityType  string `query:"entity_type" description:"Entity type"`
	EntityID    string `query:"entity_id" description:"Entity identifier"`
	Action      string `query:"action" description:"create, update or delete"`
	UserID      string `query:"user_id" description:"Acting user ID"`
	CreatedFrom string `query:"created_from" description:"Created on or after (YYYY-MM-DD)"`
	CreatedTo   string `query:"created_to" description:"Created on or before (YYYY-MM-DD)"`
	Search      string `query:"search" description:"Search IP, user agent, entity type and action"`
	Page        int    `query:"page" description:"Page number (default 1)"`
	PerPage     int    `query:"per_page" description:"Page size (default 10, max 100)"`
}
