package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/auth"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/seed"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store/memory"
)

func TestRolesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	first, err := seed.Roles(ctx, st, role.DefaultGuard)
	require.NoError(t, err)
	second, err := seed.Roles(ctx, st, role.DefaultGuard)
	require.NoError(t, err)

	for name, r := range first {
		assert.Equal(t, r.ID, second[name].ID, name)
	}
	all, err := st.ListRoles(ctx, &role.ListFilter{Guard: role.DefaultGuard})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestAdminLacksManageRoot(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	roles, err := seed.Roles(ctx, st, role.DefaultGuard)
	require.NoError(t, err)

	perms, err := st.ListPermissionsByRole(ctx, roles[bastion.RoleAdmin].ID)
	require.NoError(t, err)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, bastion.PermRolesManage)
	assert.NotContains(t, names, bastion.PermRolesManageRoot)
	assert.Len(t, names, len(bastion.Permissions)-1)
}

func TestSettingsUnderDefaultTenant(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tn, err := seed.DefaultTenant(ctx, st, "Main", "main")
	require.NoError(t, err)

	again, err := seed.DefaultTenant(ctx, st, "Other", "other")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, again.ID)

	svc := settings.NewService(st, settings.WithTenancy(true))
	require.NoError(t, seed.Settings(ctx, svc, st, "Bastion"))

	tctx := bastion.WithTenant(ctx, tn)
	assert.Equal(t, "Bastion", svc.Get(tctx, "site.name", nil))
	assert.Equal(t, float64(8), svc.Get(tctx, "security.password_min_length", nil))
	assert.Equal(t, "fallback", svc.Get(ctx, "site.name", "fallback"), "nothing is written globally")
}

func TestProvisionUser(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	u, created, err := seed.ProvisionUser(ctx, st, seed.ProvisionInput{
		Email: "Root@Example.com", Name: "Root", Password: "secret", Role: "ROOT",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "root@example.com", u.Email)
	assert.NoError(t, auth.CheckPassword(u.PasswordHash, "secret"))

	eng, err := bastion.NewEngine(bastion.WithStore(st))
	require.NoError(t, err)
	p, err := eng.LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, p.IsRoot())

	again, created, err := seed.ProvisionUser(ctx, st, seed.ProvisionInput{
		Email: "root@example.com", Name: "Root Again", Password: "changed", Role: "admin",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
	assert.NoError(t, auth.CheckPassword(again.PasswordHash, "changed"))

	p, err = eng.LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bastion.RoleAdmin}, p.Roles)
}

func TestProvisionUserValidation(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	_, _, err := seed.ProvisionUser(ctx, st, seed.ProvisionInput{Email: "a@b.c", Name: "A", Password: "x", Role: "editor"})
	assert.ErrorIs(t, err, bastion.ErrValidation)

	_, _, err = seed.ProvisionUser(ctx, st, seed.ProvisionInput{Email: "", Name: "A", Password: "x"})
	assert.ErrorIs(t, err, bastion.ErrValidation)
}
