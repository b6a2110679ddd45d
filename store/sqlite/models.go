package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

// Nullable tenant references are stored as the empty string so that the
// (tenant_id, key) unique index also covers global rows.

// ──────────────────────────────────────────────────
// Tenant model
// ──────────────────────────────────────────────────

type tenantModel struct {
	grove.BaseModel `grove:"table:bastion_tenants"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Slug            string    `grove:"slug,notnull"`
	Domain          string    `grove:"domain,notnull"`
	IsDefault       bool      `grove:"is_default,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func tenantToModel(t *tenant.Tenant) *tenantModel {
	return &tenantModel{
		ID:        t.ID.String(),
		Name:      t.Name,
		Slug:      t.Slug,
		Domain:    t.Domain,
		IsDefault: t.IsDefault,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func tenantFromModel(m *tenantModel) *tenant.Tenant {
	tid, _ := id.ParseTenantID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &tenant.Tenant{
		ID:        tid,
		Name:      m.Name,
		Slug:      m.Slug,
		Domain:    m.Domain,
		IsDefault: m.IsDefault,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:bastion_users"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Email           string    `grove:"email,notnull"`
	PasswordHash    string    `grove:"password_hash,notnull"`
	Locale          string    `grove:"locale,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func userToModel(u *user.User) *userModel {
	return &userModel{
		ID:           u.ID.String(),
		TenantID:     u.TenantID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Locale:       u.Locale,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m *userModel) *user.User {
	uid, _ := id.ParseUserID(m.ID)                         //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseOptional(m.TenantID, id.PrefixTenant) //nolint:errcheck // stored IDs are always valid
	return &user.User{
		ID:           uid,
		TenantID:     tid,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Locale:       m.Locale,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:bastion_roles"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Guard           string    `grove:"guard,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:        r.ID.String(),
		Name:      r.Name,
		Guard:     r.Guard,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:        rid,
		Name:      m.Name,
		Guard:     m.Guard,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:bastion_permissions"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Guard           string    `grove:"guard,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:        p.ID.String(),
		Name:      p.Name,
		Guard:     p.Guard,
		CreatedAt: p.CreatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:        pid,
		Name:      m.Name,
		Guard:     m.Guard,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role-Permission join model
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:bastion_role_permissions"`
	RoleID          string `grove:"role_id,pk"`
	PermissionID    string `grove:"permission_id,pk"`
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:bastion_assignments"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:        a.ID.String(),
		UserID:    a.UserID.String(),
		RoleID:    a.RoleID.String(),
		CreatedAt: a.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Setting model
// ──────────────────────────────────────────────────

type settingModel struct {
	grove.BaseModel `grove:"table:bastion_settings"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Key             string    `grove:"key,notnull"`
	Value           string    `grove:"value,notnull"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func settingToModel(s *setting.Setting) *settingModel {
	value := string(s.Value)
	if value == "" {
		value = "null"
	}
	return &settingModel{
		ID:        s.ID.String(),
		TenantID:  s.TenantID.String(),
		Key:       s.Key,
		Value:     value,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func settingFromModel(m *settingModel) *setting.Setting {
	sid, _ := id.ParseSettingID(m.ID)                       //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseOptional(m.TenantID, id.PrefixTenant) //nolint:errcheck // stored IDs are always valid
	return &setting.Setting{
		ID:        sid,
		TenantID:  tid,
		Key:       m.Key,
		Value:     json.RawMessage(m.Value),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Audit entry model
// ──────────────────────────────────────────────────

type auditEntryModel struct {
	grove.BaseModel `grove:"table:bastion_audit_logs"`
	ID              string    `grove:"id,pk"`
	UserID          string    `grove:"user_id,notnull"`
	TenantID        string    `grove:"tenant_id,notnull"`
	EntityType      string    `grove:"entity_type,notnull"`
	EntityID        string    `grove:"entity_id,notnull"`
	Action          string    `grove:"action,notnull"`
	Changes         string    `grove:"changes"` // JSON text
	IP              string    `grove:"ip,notnull"`
	UserAgent       string    `grove:"user_agent,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditEntryToModel(e *auditlog.Entry) (*auditEntryModel, error) {
	var changes string
	if e.Changes != nil {
		raw, err := json.Marshal(e.Changes)
		if err != nil {
			return nil, fmt.Errorf("marshal audit changes: %w", err)
		}
		changes = string(raw)
	}
	return &auditEntryModel{
		ID:         e.ID.String(),
		UserID:     e.UserID.String(),
		TenantID:   e.TenantID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Changes:    changes,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func auditEntryFromModel(m *auditEntryModel) (*auditlog.Entry, error) {
	eid, _ := id.ParseAuditID(m.ID)                         //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseOptional(m.UserID, id.PrefixUser)     //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseOptional(m.TenantID, id.PrefixTenant) //nolint:errcheck // stored IDs are always valid
	var changes map[string]any
	if m.Changes != "" {
		if err := json.Unmarshal([]byte(m.Changes), &changes); err != nil {
			return nil, fmt.Errorf("unmarshal audit changes: %w", err)
		}
	}
	return &auditlog.Entry{
		ID:         eid,
		UserID:     uid,
		TenantID:   tid,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Action:     m.Action,
		Changes:    changes,
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}, nil
}
