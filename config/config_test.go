package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/config"
	"github.com/xraph/bastion/tenancy"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load(config.Options{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.RequireAjax)
	assert.Equal(t, "en", cfg.App.Locale)
	assert.Equal(t, []string{"es", "en"}, cfg.App.SupportedLocales)
	assert.Equal(t, config.DriverMemory, cfg.Database.Driver)
	assert.Equal(t, config.CacheMemory, cfg.Cache.Driver)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)
	assert.True(t, cfg.Tenancy.Enabled)
	assert.False(t, cfg.Tenancy.AllowHeader)
	assert.Equal(t, tenancy.DefaultHeader, cfg.Tenancy.HeaderName)
	assert.Equal(t, tenancy.DefaultIgnorePaths, cfg.Tenancy.IgnorePaths)
	assert.Equal(t, "production", cfg.Tenancy.Environment)
	assert.Equal(t, "web", cfg.Engine.Guard)
	require.NotNil(t, cfg.Engine.AdminRoleBypass)
	assert.True(t, *cfg.Engine.AdminRoleBypass)
}

func TestFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bastion.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
app:
  env: local
http:
  addr: ":9000"
tenancy:
  allow_header: true
  ignore_paths: ["/up", "/public/*"]
cache:
  ttl: 5m
`), 0o600))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BASTION_LOG_FORMAT=json\n"), 0o600))
	t.Setenv("BASTION_HTTP_ADDR", ":7000")
	t.Setenv("BASTION_TENANCY_ENABLED", "false")
	t.Cleanup(func() { os.Unsetenv("BASTION_LOG_FORMAT") })

	cfg, err := config.Load(config.Options{File: file, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr, "environment beats the file")
	assert.False(t, cfg.Tenancy.Enabled)
	assert.True(t, cfg.Tenancy.AllowHeader)
	assert.Equal(t, []string{"/up", "/public/*"}, cfg.Tenancy.IgnorePaths)
	assert.Equal(t, "local", cfg.Tenancy.Environment)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BASTION_DATABASE_DRIVER", "postgres")
	_, err := config.Load(config.Options{EnvFile: noEnvFile(t)})
	assert.ErrorContains(t, err, "database.dsn")

	t.Setenv("BASTION_DATABASE_DRIVER", "oracle")
	_, err = config.Load(config.Options{EnvFile: noEnvFile(t)})
	assert.ErrorContains(t, err, "database.driver")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Log: config.LogConfig{Level: "debug", Format: "json"}}
	cfg.Logger(&buf).Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	cfg = &config.Config{Log: config.LogConfig{Level: "warn", Format: "text"}}
	cfg.Logger(&buf).Info("quiet")
	assert.Empty(t, buf.String())
}
