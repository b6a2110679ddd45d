package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/assignment"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/tenant"
	"github.com/xraph/bastion/user"
)

func testFlags(t *testing.T) *globalFlags {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("BASTION_AUTH_JWT_SECRET", "test-secret")
	return &globalFlags{envFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "migrate", "seed", "settings", "provision-user", "token"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestAppServesHealthAndMetrics(t *testing.T) {
	ctx := context.Background()
	a, err := loadApp(ctx, testFlags(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close(ctx) })

	require.NoError(t, a.ext.Start(ctx))
	require.NoError(t, a.seed(ctx))

	h, err := a.httpHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bastion_setting_writes_total")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/roles", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProvisionAndIssueToken(t *testing.T) {
	ctx := context.Background()
	a, err := loadApp(ctx, testFlags(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close(ctx) })
	require.NoError(t, a.seed(ctx))

	f := provisionFlags{email: "Root@Example.com", name: "Root", password: "secret-pass", role: "root"}
	u, err := f.provision(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", u.Email)

	def, err := a.ext.Engine().Store().GetDefaultTenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, def.ID, u.TenantID)

	authn, err := a.authenticator()
	require.NoError(t, err)
	token, err := authn.Issue(u.ID, u.TenantID)
	require.NoError(t, err)
	p, err := authn.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, p.IsRoot())
}

func TestNonMemoryDriverNeedsGrove(t *testing.T) {
	flags := testFlags(t)
	t.Setenv("BASTION_DATABASE_DRIVER", "postgres")
	t.Setenv("BASTION_DATABASE_DSN", "postgres://localhost/bastion")
	_, err := loadApp(context.Background(), flags)
	assert.ErrorContains(t, err, "grove")
}

func TestReadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app.name":"Acme","mail.port":587}`), 0o600))

	values, err := readSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", values["app.name"])
	assert.InDelta(t, 587, values["mail.port"], 0)

	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))
	_, err = readSettingsFile(path)
	assert.Error(t, err)
}

// serveApp returns a seeded app and its HTTP handler.
func serveApp(t *testing.T) (*app, http.Handler) {
	t.Helper()
	ctx := context.Background()
	a, err := loadApp(ctx, testFlags(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close(ctx) })
	require.NoError(t, a.ext.Start(ctx))
	require.NoError(t, a.seed(ctx))

	h, err := a.httpHandler()
	require.NoError(t, err)
	return a, h
}

func (a *app) tokenFor(t *testing.T, u *user.User) string {
	t.Helper()
	authn, err := a.authenticator()
	require.NoError(t, err)
	tok, err := authn.Issue(u.ID, u.TenantID)
	require.NoError(t, err)
	return tok
}

func call(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesOverHTTP(t *testing.T) {
	ctx := context.Background()
	a, h := serveApp(t)

	adm, err := (&provisionFlags{email: "admin@example.com", name: "Admin", password: "secret-pass", role: "admin"}).provision(ctx, a)
	require.NoError(t, err)
	root, err := (&provisionFlags{email: "root@example.com", name: "Root", password: "secret-pass", role: "root"}).provision(ctx, a)
	require.NoError(t, err)

	st := a.ext.Engine().Store()
	rootRole, err := st.GetRoleByName(ctx, a.ext.Engine().Guard(), "root")
	require.NoError(t, err)

	now := time.Now().UTC()
	globex := &tenant.Tenant{ID: id.NewTenantID(), Name: "Globex", Slug: "globex", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateTenant(ctx, globex))
	foreign := &user.User{ID: id.NewUserID(), TenantID: globex.ID, Name: "Hank", Email: "hank@globex.test", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateUser(ctx, foreign))

	admToken, rootToken := a.tokenFor(t, adm), a.tokenFor(t, root)
	rootPath := "/v1/admin/roles/" + rootRole.ID.String()

	rec := call(h, http.MethodDelete, rootPath, admToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = call(h, http.MethodDelete, "/v1/admin/users/"+adm.ID.String(), admToken, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = call(h, http.MethodPost, "/v1/admin/roles", admToken, `{"name":"ADMIN"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = call(h, http.MethodGet, "/v1/admin/users/"+foreign.ID.String(), admToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hank@globex.test")

	rec = call(h, http.MethodDelete, rootPath, rootToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	_, err = st.GetRole(ctx, rootRole.ID)
	assert.Error(t, err)
}

func TestRoleListingNeedsViewPermission(t *testing.T) {
	ctx := context.Background()
	a, h := serveApp(t)
	st := a.ext.Engine().Store()
	guard := a.ext.Engine().Guard()

	manage, err := st.GetPermissionByName(ctx, guard, bastion.PermRolesManage)
	require.NoError(t, err)
	now := time.Now().UTC()
	manager := &role.Role{ID: id.NewRoleID(), Name: "Role Manager", Guard: guard, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateRole(ctx, manager))
	require.NoError(t, st.AttachPermission(ctx, manager.ID, manage.ID))

	def, err := st.GetDefaultTenant(ctx)
	require.NoError(t, err)
	u := &user.User{ID: id.NewUserID(), TenantID: def.ID, Name: "Mia", Email: "mia@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateUser(ctx, u))
	require.NoError(t, st.CreateAssignment(ctx, &assignment.Assignment{ID: id.NewAssignmentID(), UserID: u.ID, RoleID: manager.ID, CreatedAt: now}))
	token := a.tokenFor(t, u)

	rec := call(h, http.MethodGet, "/v1/admin/roles", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	rec = call(h, http.MethodGet, "/v1/admin/roles/"+manager.ID.String(), token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestFormPostIsRejected(t *testing.T) {
	_, h := serveApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/roles", strings.NewReader("name=Support"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "X-Requested-With")
}

func TestSettingsFlushCommand(t *testing.T) {
	flags := testFlags(t)
	root := newRootCommand()
	var out strings.Builder
	root.SetOut(&out)
	root.SetArgs([]string{"--env-file", flags.envFile, "settings", "flush"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "settings cache flushed")
}
