package bastion

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := NewEngine(WithStore(s))
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

// grant creates a role in the web guard holding perms.
func grant(t *testing.T, s *memory.Store, roleName string, perms ...string) id.RoleID {
	t.Helper()
	ctx := context.Background()
	r := &role.Role{ID: id.NewRoleID(), Name: roleName, Guard: role.DefaultGuard}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	for _, name := range perms {
		p, err := s.GetPermissionByName(ctx, role.DefaultGuard, name)
		if err != nil {
			p = &permission.Permission{ID: id.NewPermissionID(), Name: name, Guard: role.DefaultGuard}
			if err := s.CreatePermission(ctx, p); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.AttachPermission(ctx, r.ID, p.ID); err != nil {
			t.Fatal(err)
		}
	}
	return r.ID
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestCanThroughRole(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	grant(t, s, "editor", PermSettingsView)

	p := &Principal{ID: id.NewUserID(), Roles: []string{"Editor"}}

	result, err := eng.Authorize(ctx, p, PermSettingsView)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed || result.Decision != DecisionAllow {
		t.Fatalf("expected allow, got %s: %s", result.Decision, result.Reason)
	}
	if result.MatchedBy != "role:editor" {
		t.Fatalf("unexpected match %q", result.MatchedBy)
	}

	ok, err := eng.Can(ctx, p, PermSettingsManage)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected settings.manage to be denied")
	}
}

func TestRootBypassesEveryPermission(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	for _, roleName := range []string{"root", "ROOT", "RoOt"} {
		p := &Principal{ID: id.NewUserID(), Roles: []string{roleName}}
		for _, perm := range []string{PermUsersManage, "does.not.exist", ""} {
			result, err := eng.Authorize(ctx, p, perm)
			if err != nil {
				t.Fatal(err)
			}
			if !result.Allowed || result.Decision != DecisionAllowRoot {
				t.Fatalf("role %q permission %q: expected root allow, got %s", roleName, perm, result.Decision)
			}
		}
	}
}

func TestDenials(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	result, err := eng.Authorize(ctx, nil, PermUsersView)
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != DecisionDenyNoPrincipal {
		t.Fatalf("expected no principal denial, got %s", result.Decision)
	}

	result, err = eng.Authorize(ctx, &Principal{ID: id.NewUserID()}, PermUsersView)
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != DecisionDenyNoRoles {
		t.Fatalf("expected no roles denial, got %s", result.Decision)
	}

	// Unknown role names are ignored rather than failing.
	result, err = eng.Authorize(ctx, &Principal{ID: id.NewUserID(), Roles: []string{"ghost"}}, PermUsersView)
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != DecisionDenyNoPerms {
		t.Fatalf("expected no perms denial, got %s", result.Decision)
	}

	err = eng.Enforce(ctx, &Principal{ID: id.NewUserID(), Roles: []string{"ghost"}}, PermUsersView)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestWildcardPermission(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	grant(t, s, "settings-admin", "settings.*")

	p := &Principal{ID: id.NewUserID(), Roles: []string{"settings-admin"}}
	for perm, want := range map[string]bool{
		PermSettingsView:   true,
		PermSettingsManage: true,
		PermUsersView:      false,
	} {
		ok, err := eng.Can(ctx, p, perm)
		if err != nil {
			t.Fatal(err)
		}
		if ok != want {
			t.Fatalf("%s: expected %v, got %v", perm, want, ok)
		}
	}
}

func TestPermissionsAreReadFresh(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	roleID := grant(t, s, "editor", PermSettingsView)
	p := &Principal{ID: id.NewUserID(), Roles: []string{"editor"}}

	if ok, _ := eng.Can(ctx, p, PermSettingsView); !ok {
		t.Fatal("expected allow before revocation")
	}
	if err := s.SetRolePermissions(ctx, roleID, nil); err != nil {
		t.Fatal(err)
	}
	if ok, _ := eng.Can(ctx, p, PermSettingsView); ok {
		t.Fatal("expected deny after revocation")
	}
}

func TestRootRoleProtection(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	grant(t, s, "admin", PermRolesView, PermRolesManage, PermRolesManageRoot)

	admin := &Principal{ID: id.NewUserID(), Roles: []string{"admin"}}
	root := &Principal{ID: id.NewUserID(), Roles: []string{"root"}}

	actions := []RoleAction{RoleCreate, RoleUpdate, RoleRename, RoleDelete}
	for _, name := range []string{"root", "Root", "rOOt", " ROOT "} {
		for _, action := range actions {
			ok, err := eng.CanActOnRole(ctx, admin, name, action)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Fatalf("admin must not %s role %q", action, name)
			}
			err = eng.EnforceRole(ctx, admin, name, action)
			if !errors.Is(err, ErrRootProtected) {
				t.Fatalf("expected ErrRootProtected, got %v", err)
			}

			ok, err = eng.CanActOnRole(ctx, root, name, action)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatalf("root must be able to %s role %q", action, name)
			}
		}
	}

	// Non-root names defer to roles.manage.
	if ok, _ := eng.CanActOnRole(ctx, admin, "TeamLead", RoleRename); !ok {
		t.Fatal("admin should manage ordinary roles")
	}
	// Viewing the root role only needs roles.view.
	if ok, _ := eng.CanActOnRole(ctx, admin, "root", RoleView); !ok {
		t.Fatal("admin should view the root role")
	}

	viewer := &Principal{ID: id.NewUserID(), Roles: []string{"viewer"}}
	grant(t, s, "viewer", PermRolesView)
	err := eng.EnforceRole(ctx, viewer, "TeamLead", RoleDelete)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestUserManagement(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	grant(t, s, "support", PermUsersView)

	root := &Principal{ID: id.NewUserID(), Roles: []string{"root"}}
	admin := &Principal{ID: id.NewUserID(), Roles: []string{"Admin"}}
	support := &Principal{ID: id.NewUserID(), Roles: []string{"support"}}
	plain := &Principal{ID: id.NewUserID(), Roles: []string{"user"}}

	cases := []struct {
		name   string
		actor  *Principal
		target *Principal
		action UserAction
		want   bool
	}{
		{"admin deletes plain", admin, plain, UserDelete, true},
		{"admin deletes root", admin, root, UserDelete, false},
		{"admin views root", admin, root, UserView, false},
		{"root deletes root", root, &Principal{ID: id.NewUserID(), Roles: []string{"root"}}, UserDelete, true},
		{"plain views self", plain, plain, UserView, true},
		{"plain views admin", plain, admin, UserView, false},
		{"support views plain", support, plain, UserView, true},
		{"support updates plain", support, plain, UserUpdate, false},
		{"admin creates", admin, nil, UserCreate, true},
		{"plain creates", plain, nil, UserCreate, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := eng.CanManageUser(ctx, tc.actor, tc.target, tc.action)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, ok)
			}
		})
	}

	if err := eng.EnforceUser(ctx, admin, root, UserUpdate); !errors.Is(err, ErrRootProtected) {
		t.Fatalf("expected ErrRootProtected, got %v", err)
	}
}

func TestAssignRoles(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	admin := &Principal{ID: id.NewUserID(), Roles: []string{"admin"}}
	root := &Principal{ID: id.NewUserID(), Roles: []string{"root"}}

	if ok, _ := eng.CanAssignRoles(ctx, admin, []string{"editor"}); !ok {
		t.Fatal("admin should assign editor")
	}
	if ok, _ := eng.CanAssignRoles(ctx, admin, []string{"editor", "Root"}); ok {
		t.Fatal("admin must not assign root")
	}
	if ok, _ := eng.CanAssignRoles(ctx, root, []string{"root"}); !ok {
		t.Fatal("root should assign root")
	}
}

func TestTenantScope(t *testing.T) {
	eng, s := newTestEngine(t)
	grant(t, s, "support", PermSettingsManage)

	acme := &tenant.Tenant{ID: id.NewTenantID(), Slug: "acme"}
	globex := &tenant.Tenant{ID: id.NewTenantID(), Slug: "globex"}
	acmeCtx := WithTenant(context.Background(), acme)

	outsider := &Principal{ID: id.NewUserID(), TenantID: globex.ID, Roles: []string{"admin"}}
	outsiderSupport := &Principal{ID: id.NewUserID(), TenantID: globex.ID, Roles: []string{"support"}}
	insider := &Principal{ID: id.NewUserID(), TenantID: acme.ID, Roles: []string{"support"}}
	global := &Principal{ID: id.NewUserID(), Roles: []string{"support"}}
	root := &Principal{ID: id.NewUserID(), TenantID: globex.ID, Roles: []string{"root"}}
	victim := &Principal{ID: id.NewUserID(), TenantID: acme.ID, Roles: []string{"user"}}

	result, err := eng.Authorize(acmeCtx, outsiderSupport, PermSettingsManage)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed || result.Decision != DecisionDenyTenantScope {
		t.Fatalf("expected tenant scope denial, got %+v", result)
	}
	if err := eng.Enforce(acmeCtx, outsiderSupport, PermSettingsManage); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := eng.EnforceUser(acmeCtx, outsider, victim, UserDelete); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for a foreign admin, got %v", err)
	}
	if ok, _ := eng.CanAssignRoles(acmeCtx, outsider, []string{"editor"}); ok {
		t.Fatal("a foreign admin must not assign roles")
	}

	for name, p := range map[string]*Principal{"insider": insider, "global": global, "root": root} {
		if ok, _ := eng.Can(acmeCtx, p, PermSettingsManage); !ok {
			t.Fatalf("%s should pass the tenant scope", name)
		}
	}
	if ok, _ := eng.CanManageUser(acmeCtx, root, victim, UserDelete); !ok {
		t.Fatal("root crosses tenants")
	}

	// Without a resolved tenant nothing is scoped.
	if ok, _ := eng.Can(context.Background(), outsiderSupport, PermSettingsManage); !ok {
		t.Fatal("no resolved tenant means no scope check")
	}
}

func TestAdminBypassCanBeDisabled(t *testing.T) {
	ctx := context.Background()
	f := false
	eng, err := NewEngine(WithStore(memory.New()), WithConfig(Config{AdminRoleBypass: &f}))
	if err != nil {
		t.Fatal(err)
	}
	admin := &Principal{ID: id.NewUserID(), Roles: []string{"admin"}}
	plain := &Principal{ID: id.NewUserID(), Roles: []string{"user"}}
	if ok, _ := eng.CanManageUser(ctx, admin, plain, UserDelete); ok {
		t.Fatal("admin without users.manage should be denied when bypass is off")
	}
}

func TestLoadPrincipal(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	roleID := grant(t, s, "editor", PermSettingsView)

	tenantID := id.NewTenantID()
	u := &user.User{ID: id.NewUserID(), TenantID: tenantID, Name: "Ed", Email: "ed@example.com"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAssignment(ctx, &assignment.Assignment{ID: id.NewAssignmentID(), UserID: u.ID, RoleID: roleID}); err != nil {
		t.Fatal(err)
	}

	p, err := eng.LoadPrincipal(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.TenantID != tenantID || len(p.Roles) != 1 || p.Roles[0] != "editor" {
		t.Fatalf("unexpected principal %+v", p)
	}

	_, err = eng.LoadPrincipal(ctx, id.NewUserID())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPermissionsList(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	grant(t, s, "editor", PermSettingsView, PermAuditView)
	grant(t, s, "viewer", PermSettingsView)

	perms, err := eng.Permissions(ctx, &Principal{ID: id.NewUserID(), Roles: []string{"editor", "viewer"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 2 || perms[0] != PermAuditView || perms[1] != PermSettingsView {
		t.Fatalf("unexpected permissions %v", perms)
	}

	perms, err = eng.Permissions(ctx, &Principal{ID: id.NewUserID(), Roles: []string{"root"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != len(Permissions) {
		t.Fatalf("root should hold every permission, got %v", perms)
	}
}

func TestMatchPermission(t *testing.T) {
	tests := []struct {
		granted, required string
		want              bool
	}{
		{"users.view", "users.view", true},
		{"users.view", "users.manage", false},
		{"users.*", "users.manage", true},
		{"users.*", "roles.manage", false},
		{"*", "anything", true},
		{"roles.manage*", "roles.manage_root", true},
	}
	for _, tt := range tests {
		if got := matchPermission(tt.granted, tt.required); got != tt.want {
			t.Errorf("matchPermission(%q, %q) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{ErrAccessDenied, 403},
		{ErrRootProtected, 403},
		{ErrTenantUnresolved, 404},
		{ErrCrossTenant, 404},
		{ErrDuplicateRoleName, 422},
		{ErrSelfDelete, 422},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
