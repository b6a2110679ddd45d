package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/metrics"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store/memory"
)

func TestCountersFollowHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	plugins := plugin.NewRegistry(nil)
	plugins.Register(m)

	st := memory.New()
	eng, err := bastion.NewEngine(bastion.WithStore(st), bastion.WithPlugins(plugins))
	require.NoError(t, err)

	root := &bastion.Principal{ID: id.NewUserID(), Roles: []string{bastion.RoleRoot}}
	nobody := &bastion.Principal{ID: id.NewUserID()}
	_, err = eng.Can(ctx, root, bastion.PermAuditView)
	require.NoError(t, err)
	_, err = eng.Can(ctx, nobody, bastion.PermAuditView)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("true", string(bastion.DecisionAllowRoot))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("false", string(bastion.DecisionDenyNoRoles))))

	svc := settings.NewService(st, settings.WithPlugins(plugins))
	svc.Get(ctx, "missing", "x")
	svc.Get(ctx, "missing", "x")
	require.NoError(t, svc.Set(ctx, "site.name", "Bastion"))
	require.NoError(t, svc.Delete(ctx, "site.name"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettingsCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettingsCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettingWrites.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SettingWrites.WithLabelValues("delete")))

	logger := audit.NewLogger(st, audit.WithPlugins(plugins))
	_, err = logger.Log(ctx, "create", "role", "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditEntries.WithLabelValues("create", "role")))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)
	_, err = metrics.New(reg)
	assert.Error(t, err)
}
