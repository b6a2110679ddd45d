package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts...), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	_, ok, err := c.Get(ctx, "settings.site.name")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "settings.site.name", []byte(`"Acme"`)))
	v, ok, err := c.Get(ctx, "settings.site.name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"Acme"`, string(v))
	assert.True(t, mr.Exists("bastion:settings.site.name"))

	require.NoError(t, c.Delete(ctx, "settings.site.name"))
	_, ok, err = c.Get(ctx, "settings.site.name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, WithTTL(time.Minute), WithPrefix("test:"))

	require.NoError(t, c.Set(ctx, "k", []byte("1")))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, "tenant.a.settings.x", []byte("1")))
	require.NoError(t, c.Set(ctx, "tenant.a.settings.y", []byte("2")))
	require.NoError(t, c.Set(ctx, "tenant.b.settings.x", []byte("3")))

	require.NoError(t, c.DeletePrefix(ctx, "tenant.a."))

	_, ok, _ := c.Get(ctx, "tenant.a.settings.x")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "tenant.a.settings.y")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "tenant.b.settings.x")
	assert.True(t, ok)
}

func TestRedisCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	_, _, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}
