package extension_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/extension"
	"github.com/xraph/bastion/store/memory"
)

func TestBuildWiresServices(t *testing.T) {
	ext := extension.New(extension.WithStore(memory.New()))
	require.NoError(t, ext.Build())

	assert.NotNil(t, ext.Engine())
	assert.NotNil(t, ext.Settings())
	assert.NotNil(t, ext.Audit())
	assert.NotNil(t, ext.Resolver())
	require.NotNil(t, ext.Admin())
	assert.Same(t, ext.Engine(), ext.Admin().Engine())
	assert.NotNil(t, ext.TenantMiddleware())

	ctx := context.Background()
	require.NoError(t, ext.Start(ctx))
	require.NoError(t, ext.Health(ctx))
	require.NoError(t, ext.Stop(ctx))
}

func TestBuildRequiresStore(t *testing.T) {
	assert.Error(t, extension.New().Build())
	assert.Error(t, extension.New().Start(context.Background()))
}

func TestStoreForRejectsUnknownDriver(t *testing.T) {
	_, err := extension.StoreFor("oracle", nil)
	assert.ErrorContains(t, err, "unsupported grove driver")
}

func TestDefaultConfig(t *testing.T) {
	cfg := extension.DefaultConfig()
	assert.Equal(t, "/v1/admin", cfg.BasePath)
	assert.True(t, cfg.Tenancy.Enabled)
	assert.Equal(t, "web", cfg.Engine.Guard)
}
