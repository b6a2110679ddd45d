package mongo

import (
	"encoding/json"
	"strings"
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

// Lower-cased *_key fields back the case-insensitive unique indexes.

// ──────────────────────────────────────────────────
// Tenant model
// ──────────────────────────────────────────────────

type tenantModel struct {
	grove.BaseModel `grove:"table:bastion_tenants"`
	ID              string    `grove:"id,pk"       bson:"_id"`
	Name            string    `grove:"name"        bson:"name"`
	Slug            string    `grove:"slug"        bson:"slug"`
	SlugKey         string    `grove:"slug_key"    bson:"slug_key"`
	Domain          string    `grove:"domain"      bson:"domain"`
	DomainKey       *string   `grove:"domain_key"  bson:"domain_key,omitempty"`
	IsDefault       bool      `grove:"is_default"  bson:"is_default"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"  bson:"updated_at"`
}

func tenantToModel(t *tenant.Tenant) *tenantModel {
	m := &tenantModel{
		ID:        t.ID.String(),
		Name:      t.Name,
		Slug:      t.Slug,
		SlugKey:   strings.ToLower(t.Slug),
		Domain:    t.Domain,
		IsDefault: t.IsDefault,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Domain != "" {
		key := strings.ToLower(t.Domain)
		m.DomainKey = &key
	}
	return m
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
	ID              string    `grove:"id,pk"          bson:"_id"`
	TenantID        string    `grove:"tenant_id"      bson:"tenant_id"`
	Name            string    `grove:"name"           bson:"name"`
	Email           string    `grove:"email"          bson:"email"`
	EmailKey        string    `grove:"email_key"      bson:"email_key"`
	PasswordHash    string    `grove:"password_hash"  bson:"password_hash"`
	Locale          string    `grove:"locale"         bson:"locale"`
	CreatedAt       time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"     bson:"updated_at"`
}

func userToModel(u *user.User) *userModel {
	return &userModel{
		ID:           u.ID.String(),
		TenantID:     u.TenantID.String(),
		Name:         u.Name,
		Email:        u.Email,
		EmailKey:     strings.ToLower(u.Email),
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
	ID              string    `grove:"id,pk"       bson:"_id"`
	Name            string    `grove:"name"        bson:"name"`
	NameKey         string    `grove:"name_key"    bson:"name_key"`
	Guard           string    `grove:"guard"       bson:"guard"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"  bson:"updated_at"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:        r.ID.String(),
		Name:      r.Name,
		NameKey:   strings.ToLower(r.Name),
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
	ID              string    `grove:"id,pk"       bson:"_id"`
	Name            string    `grove:"name"        bson:"name"`
	Guard           string    `grove:"guard"       bson:"guard"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
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
	RoleID          string `grove:"role_id"        bson:"role_id"`
	PermissionID    string `grove:"permission_id"  bson:"permission_id"`
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:bastion_assignments"`
	ID              string    `grove:"id,pk"       bson:"_id"`
	UserID          string    `grove:"user_id"     bson:"user_id"`
	RoleID          string    `grove:"role_id"     bson:"role_id"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
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

// Values are kept as JSON text so that any JSON document, including
// top-level scalars and arrays, round-trips unchanged.
type settingModel struct {
	grove.BaseModel `grove:"table:bastion_settings"`
	ID              string    `grove:"id,pk"       bson:"_id"`
	TenantID        string    `grove:"tenant_id"   bson:"tenant_id"`
	Key             string    `grove:"key"         bson:"key"`
	Value           string    `grove:"value"       bson:"value"`
	CreatedAt       time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"  bson:"updated_at"`
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
	ID              string         `grove:"id,pk"        bson:"_id"`
	UserID          string         `grove:"user_id"      bson:"user_id"`
	TenantID        string         `grove:"tenant_id"    bson:"tenant_id"`
	EntityType      string         `grove:"entity_type"  bson:"entity_type"`
	EntityID        string         `grove:"entity_id"    bson:"entity_id"`
	Action          string         `grove:"action"       bson:"action"`
	Changes         map[string]any `grove:"changes"      bson:"changes,omitempty"`
	IP              string         `grove:"ip"           bson:"ip"`
	UserAgent       string         `grove:"user_agent"   bson:"user_agent"`
	CreatedAt       time.Time      `grove:"created_at"   bson:"created_at"`
}

func auditEntryToModel(e *auditlog.Entry) *auditEntryModel {
	return &auditEntryModel{
		ID:         e.ID.String(),
		UserID:     e.UserID.String(),
		TenantID:   e.TenantID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Changes:    e.Changes,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt,
	}
}

func auditEntryFromModel(m *auditEntryModel) *auditlog.Entry {
	eid, _ := id.ParseAuditID(m.ID)                         //nolint:errcheck // stored IDs are always valid
	uid, _ := id.ParseOptional(m.UserID, id.PrefixUser)     //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseOptional(m.TenantID, id.PrefixTenant) //nolint:errcheck // stored IDs are always valid
	return &auditlog.Entry{
		ID:         eid,
		UserID:     uid,
		TenantID:   tid,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Action:     m.Action,
		Changes:    m.Changes,
		IP:         m.IP,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}
}
