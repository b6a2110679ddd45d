package admin_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/admin"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/auditlog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/seed"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

type env struct {
	t      *testing.T
	st     *memory.Store
	eng    *bastion.Engine
	svc    *admin.Service
	roles  map[string]*role.Role
	tenant *tenant.Tenant
	other  *tenant.Tenant
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	roles, err := seed.Roles(ctx, st, role.DefaultGuard)
	require.NoError(t, err)

	eng, err := bastion.NewEngine(bastion.WithStore(st))
	require.NoError(t, err)

	var tick int64
	clock := func() time.Time {
		tick++
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(tick) * time.Second)
	}
	set := settings.NewService(st, settings.WithTenancy(true))
	aud := audit.NewLogger(st, audit.WithTenancy(true), audit.WithClock(clock))

	e := &env{t: t, st: st, eng: eng, roles: roles}
	e.svc = admin.New(eng, set, aud)
	e.tenant = e.newTenant("acme")
	e.other = e.newTenant("globex")
	return e
}

func (e *env) newTenant(slug string) *tenant.Tenant {
	e.t.Helper()
	tn := &tenant.Tenant{ID: id.NewTenantID(), Name: slug, Slug: slug}
	require.NoError(e.t, e.st.CreateTenant(context.Background(), tn))
	return tn
}

// member creates a user of tn holding roleNames and returns its principal.
func (e *env) member(tn *tenant.Tenant, email string, roleNames ...string) *bastion.Principal {
	e.t.Helper()
	ctx := context.Background()
	u := &user.User{ID: id.NewUserID(), TenantID: tn.ID, Name: email, Email: email}
	require.NoError(e.t, e.st.CreateUser(ctx, u))
	for _, name := range roleNames {
		require.NoError(e.t, e.st.CreateAssignment(ctx, &assignment.Assignment{
			ID:     id.NewAssignmentID(),
			UserID: u.ID,
			RoleID: e.roles[name].ID,
		}))
	}
	p, err := e.eng.LoadPrincipal(ctx, u.ID)
	require.NoError(e.t, err)
	return p
}

func (e *env) as(p *bastion.Principal) context.Context {
	ctx := bastion.WithTenant(context.Background(), e.tenant)
	ctx = bastion.WithRequestInfo(ctx, bastion.RequestInfo{IP: "10.0.0.1", UserAgent: "test"})
	return bastion.WithPrincipal(ctx, p)
}

func (e *env) audits(entityType string) []*auditlog.Entry {
	e.t.Helper()
	entries, err := e.st.ListAuditEntries(context.Background(), &auditlog.ListFilter{EntityType: entityType})
	require.NoError(e.t, err)
	return entries
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

func TestDeleteRootRole(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	root := e.member(e.tenant, "root@acme.test", bastion.RoleRoot)
	rootRole := e.roles[bastion.RoleRoot]

	err := e.svc.DeleteRole(e.as(adm), rootRole.ID)
	require.ErrorIs(t, err, bastion.ErrRootProtected)
	assert.Equal(t, 403, bastion.StatusCode(err))
	_, err = e.st.GetRole(context.Background(), rootRole.ID)
	require.NoError(t, err, "role must survive a denied delete")

	require.NoError(t, e.svc.DeleteRole(e.as(root), rootRole.ID))
	_, err = e.st.GetRole(context.Background(), rootRole.ID)
	assert.Error(t, err)

	entries := e.audits("role")
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionDelete, entries[0].Action)
	assert.Equal(t, root.ID, entries[0].UserID)
	assert.Equal(t, e.tenant.ID, entries[0].TenantID)
	assert.Equal(t, "10.0.0.1", entries[0].IP)
}

func TestCreateRole(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	plain := e.member(e.tenant, "user@acme.test", seed.RoleUser)

	r, err := e.svc.CreateRole(e.as(adm), "  support ")
	require.NoError(t, err)
	assert.Equal(t, "support", r.Name)
	assert.Equal(t, role.DefaultGuard, r.Guard)

	entries := e.audits("role")
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionCreate, entries[0].Action)
	assert.Equal(t, r.ID.String(), entries[0].EntityID)

	tests := []struct {
		name    string
		actor   *bastion.Principal
		role    string
		wantErr error
		status  int
	}{
		{"too short", adm, "ab", bastion.ErrValidation, 422},
		{"too long", adm, strings.Repeat("x", 65), bastion.ErrValidation, 422},
		{"duplicate differs in case", adm, "Support", bastion.ErrDuplicateRoleName, 422},
		{"root by admin", adm, "root", bastion.ErrRootProtected, 403},
		{"ROOT by admin", adm, "ROOT", bastion.ErrRootProtected, 403},
		{"no permission beats validation", plain, "ab", bastion.ErrAccessDenied, 403},
		{"no permission", plain, "helpdesk", bastion.ErrAccessDenied, 403},
		{"no principal", nil, "helpdesk", bastion.ErrAccessDenied, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CreateRole(e.as(tt.actor), tt.role)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.status, bastion.StatusCode(err))
		})
	}
}

func TestRootCreatingExistingRootIsDuplicate(t *testing.T) {
	e := newEnv(t)
	root := e.member(e.tenant, "root@acme.test", bastion.RoleRoot)

	_, err := e.svc.CreateRole(e.as(root), "Root")
	assert.ErrorIs(t, err, bastion.ErrDuplicateRoleName)
}

func TestOnlyRootCreatesMissingRootRole(t *testing.T) {
	e := newEnv(t)
	root := e.member(e.tenant, "root@acme.test", bastion.RoleRoot)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	require.NoError(t, e.svc.DeleteRole(e.as(root), e.roles[bastion.RoleRoot].ID))

	_, err := e.svc.CreateRole(e.as(adm), "Root")
	require.ErrorIs(t, err, bastion.ErrRootProtected)
	assert.Equal(t, 403, bastion.StatusCode(err))

	r, err := e.svc.CreateRole(e.as(root), "root")
	require.NoError(t, err)
	assert.Equal(t, "root", r.Name)
}

func TestRenameRole(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	root := e.member(e.tenant, "root@acme.test", bastion.RoleRoot)
	editor := e.roles[seed.RoleEditor]

	r, err := e.svc.RenameRole(e.as(adm), editor.ID, "writer")
	require.NoError(t, err)
	assert.Equal(t, "writer", r.Name)

	entries := e.audits("role")
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]any{"name": "editor"}, entries[0].Changes["before"])
	assert.Equal(t, map[string]any{"name": "writer"}, entries[0].Changes["after"])

	_, err = e.svc.RenameRole(e.as(adm), editor.ID, "root")
	assert.ErrorIs(t, err, bastion.ErrRootProtected)

	_, err = e.svc.RenameRole(e.as(adm), e.roles[bastion.RoleRoot].ID, "superuser")
	assert.ErrorIs(t, err, bastion.ErrRootProtected)

	_, err = e.svc.RenameRole(e.as(adm), editor.ID, "admin")
	assert.ErrorIs(t, err, bastion.ErrDuplicateRoleName)

	_, err = e.svc.RenameRole(e.as(adm), editor.ID, "Writer")
	require.NoError(t, err, "renaming to its own name in another case")

	_, err = e.svc.RenameRole(e.as(root), e.roles[bastion.RoleRoot].ID, "superuser")
	require.NoError(t, err)

	_, err = e.svc.RenameRole(e.as(adm), editor.ID, "root")
	assert.ErrorIs(t, err, bastion.ErrRootProtected)

	_, err = e.svc.RenameRole(e.as(adm), id.NewRoleID(), "whatever")
	assert.ErrorIs(t, err, bastion.ErrNotFound)
}

func TestListRoles(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	plain := e.member(e.tenant, "user@acme.test", seed.RoleUser)

	roles, err := e.svc.ListRoles(e.as(adm), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"admin", "editor", "root", "user"}, names)

	_, err = e.svc.ListRoles(e.as(plain), nil)
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)
}

func TestSetRolePermissionsTakesEffectImmediately(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	editor := e.member(e.tenant, "editor@acme.test", seed.RoleEditor)

	_, _, err := e.svc.ListAudit(e.as(editor), nil)
	require.ErrorIs(t, err, bastion.ErrAccessDenied)

	granted, err := e.svc.SetRolePermissions(e.as(adm), e.roles[seed.RoleEditor].ID,
		[]string{bastion.PermSettingsView, bastion.PermAuditView, bastion.PermAuditView})
	require.NoError(t, err)
	assert.Equal(t, []string{bastion.PermAuditView, bastion.PermSettingsView}, granted)

	_, _, err = e.svc.ListAudit(e.as(editor), nil)
	require.NoError(t, err)

	_, err = e.svc.SetRolePermissions(e.as(adm), e.roles[seed.RoleEditor].ID, []string{"nope"})
	assert.ErrorIs(t, err, bastion.ErrValidation)

	_, err = e.svc.SetRolePermissions(e.as(adm), e.roles[bastion.RoleRoot].ID, nil)
	assert.ErrorIs(t, err, bastion.ErrRootProtected)
}

// ──────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────

func TestSelfDeleteIsRejected(t *testing.T) {
	e := newEnv(t)
	for _, roleName := range []string{bastion.RoleRoot, bastion.RoleAdmin, seed.RoleUser} {
		t.Run(roleName, func(t *testing.T) {
			p := e.member(e.tenant, roleName+"@acme.test", roleName)
			err := e.svc.DeleteUser(e.as(p), p.ID)
			require.ErrorIs(t, err, bastion.ErrSelfDelete)
			assert.Equal(t, 422, bastion.StatusCode(err))
			_, err = e.st.GetUser(context.Background(), p.ID)
			assert.NoError(t, err)
		})
	}
}

func TestCrossTenantUserIsNotFound(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	stranger := e.member(e.other, "someone@globex.test", seed.RoleUser)

	_, err := e.svc.GetUser(e.as(adm), stranger.ID)
	require.ErrorIs(t, err, bastion.ErrCrossTenant)
	assert.Equal(t, 404, bastion.StatusCode(err))

	err = e.svc.DeleteUser(e.as(adm), stranger.ID)
	assert.ErrorIs(t, err, bastion.ErrCrossTenant)

	_, err = e.svc.GetUser(e.as(adm), id.NewUserID())
	assert.ErrorIs(t, err, bastion.ErrNotFound)
}

func TestRootUserIsProtected(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	root := e.member(e.tenant, "root@acme.test", bastion.RoleRoot)
	victim := e.member(e.tenant, "victim@acme.test", seed.RoleUser)

	err := e.svc.DeleteUser(e.as(adm), root.ID)
	assert.ErrorIs(t, err, bastion.ErrRootProtected)

	_, err = e.svc.UpdateUser(e.as(adm), root.ID, admin.UpdateUserInput{Name: ptr("Renamed")})
	assert.ErrorIs(t, err, bastion.ErrRootProtected)

	require.NoError(t, e.svc.DeleteUser(e.as(adm), victim.ID))
	entries := e.audits("user")
	require.Len(t, entries, 1)
	assert.Equal(t, victim.ID.String(), entries[0].EntityID)
	assert.Equal(t, auditlog.ActionDelete, entries[0].Action)
}

func TestUpdateUser(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	root := e.member(e.tenant, "root@acme.test", bastion.RoleRoot)
	target := e.member(e.tenant, "target@acme.test", seed.RoleUser)

	m, err := e.svc.UpdateUser(e.as(adm), target.ID, admin.UpdateUserInput{
		Name:  ptr("Target Person"),
		Roles: []string{seed.RoleEditor},
	})
	require.NoError(t, err)
	assert.Equal(t, "Target Person", m.Name)
	assert.Equal(t, []string{seed.RoleEditor}, m.Roles)

	p, err := e.eng.LoadPrincipal(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{seed.RoleEditor}, p.Roles)

	_, err = e.svc.UpdateUser(e.as(adm), target.ID, admin.UpdateUserInput{Roles: []string{"Root"}})
	assert.ErrorIs(t, err, bastion.ErrRootProtected)

	_, err = e.svc.UpdateUser(e.as(adm), target.ID, admin.UpdateUserInput{Name: ptr("  ")})
	assert.ErrorIs(t, err, bastion.ErrValidation)

	_, err = e.svc.UpdateUser(e.as(adm), target.ID, admin.UpdateUserInput{Roles: []string{"ghost"}})
	assert.ErrorIs(t, err, bastion.ErrValidation)

	m, err = e.svc.UpdateUser(e.as(root), target.ID, admin.UpdateUserInput{Roles: []string{bastion.RoleRoot}})
	require.NoError(t, err)
	assert.Equal(t, []string{bastion.RoleRoot}, m.Roles)

	entries := e.audits("user")
	require.Len(t, entries, 2)
}

func TestListUsersIsTenantScoped(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	e.member(e.tenant, "one@acme.test", seed.RoleUser)
	e.member(e.other, "two@globex.test", seed.RoleUser)

	members, total, err := e.svc.ListUsers(e.as(adm), &user.ListFilter{SortBy: user.SortByEmail})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, members, 2)
	assert.Equal(t, "admin@acme.test", members[0].Email)
	assert.Equal(t, []string{bastion.RoleAdmin}, members[0].Roles)
	for _, m := range members {
		assert.Equal(t, e.tenant.ID, m.TenantID)
	}

	plain := e.member(e.tenant, "plain@acme.test", seed.RoleUser)
	_, _, err = e.svc.ListUsers(e.as(plain), nil)
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)

	self, err := e.svc.GetUser(e.as(plain), plain.ID)
	require.NoError(t, err)
	assert.Equal(t, plain.ID, self.ID)
}

// ──────────────────────────────────────────────────
// Settings and audit
// ──────────────────────────────────────────────────

func TestSettingsAreAudited(t *testing.T) {
	e := newEnv(t)
	editor := e.member(e.tenant, "editor@acme.test", seed.RoleEditor)
	plain := e.member(e.tenant, "user@acme.test", seed.RoleUser)

	after, err := e.svc.UpdateSetting(e.as(editor), "site.name", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", after)

	_, err = e.svc.UpdateSetting(e.as(editor), "site.name", "Acme Corp")
	require.NoError(t, err)

	all, err := e.svc.ListSettings(e.as(editor))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"site.name": "Acme Corp"}, all)

	require.NoError(t, e.svc.DeleteSetting(e.as(editor), "site.name"))
	all, err = e.svc.ListSettings(e.as(editor))
	require.NoError(t, err)
	assert.Empty(t, all)

	entries := e.audits("setting")
	require.Len(t, entries, 3)
	// Newest first.
	assert.Equal(t, auditlog.ActionDelete, entries[0].Action)
	assert.Equal(t, map[string]any{"key": "site.name", "value": "Acme Corp"}, entries[0].Changes["snapshot"])
	assert.Equal(t, map[string]any{"key": "site.name", "value": "Acme"}, entries[1].Changes["before"])
	assert.Equal(t, map[string]any{"key": "site.name", "value": "Acme Corp"}, entries[1].Changes["after"])
	assert.Equal(t, map[string]any{"key": "site.name", "value": nil}, entries[2].Changes["before"])
	assert.Equal(t, "site.name", entries[0].EntityID)

	_, err = e.svc.UpdateSetting(e.as(plain), "site.name", "Hacked")
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)
	_, err = e.svc.UpdateSetting(e.as(editor), "", "x")
	assert.ErrorIs(t, err, bastion.ErrValidation)
}

func TestForeignAdminCannotActInAnotherTenant(t *testing.T) {
	e := newEnv(t)
	victim := e.member(e.tenant, "victim@acme.test", seed.RoleUser)
	outsider := e.member(e.other, "admin@globex.test", bastion.RoleAdmin)

	// The request resolved to acme while the admin belongs to globex.
	ctx := e.as(outsider)

	err := e.svc.DeleteUser(ctx, victim.ID)
	require.ErrorIs(t, err, bastion.ErrAccessDenied)
	assert.Equal(t, 403, bastion.StatusCode(err))
	_, err = e.st.GetUser(context.Background(), victim.ID)
	require.NoError(t, err, "user must survive a denied delete")

	_, err = e.svc.UpdateUser(ctx, victim.ID, admin.UpdateUserInput{Name: ptr("Renamed")})
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)

	_, _, err = e.svc.ListUsers(ctx, nil)
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)

	_, err = e.svc.UpdateSetting(ctx, "site.name", "Hijacked")
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)

	_, err = e.svc.ListSettings(ctx)
	assert.ErrorIs(t, err, bastion.ErrAccessDenied)

	assert.Empty(t, e.audits("user"))
	assert.Empty(t, e.audits("setting"))
}

func TestListAuditIsTenantScoped(t *testing.T) {
	e := newEnv(t)
	adm := e.member(e.tenant, "admin@acme.test", bastion.RoleAdmin)
	otherAdmin := e.member(e.other, "admin@globex.test", bastion.RoleAdmin)

	_, err := e.svc.CreateRole(e.as(adm), "support")
	require.NoError(t, err)

	otherCtx := bastion.WithPrincipal(bastion.WithTenant(context.Background(), e.other), otherAdmin)
	_, err = e.svc.UpdateSetting(otherCtx, "site.name", "Globex")
	require.NoError(t, err)

	entries, total, err := e.svc.ListAudit(e.as(adm), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "role", entries[0].EntityType)

	entries, _, err = e.svc.ListAudit(otherCtx, &auditlog.ListFilter{Action: auditlog.ActionUpdate})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "setting", entries[0].EntityType)
}

func ptr[T any](v T) *T { return &v }
