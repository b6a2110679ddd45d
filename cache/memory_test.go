package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	// Miss
	_, ok, err := c.Get(ctx, "settings.site.name")
	if err != nil || ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	if err := c.Set(ctx, "settings.site.name", []byte(`"Acme"`)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, "settings.site.name")
	if err != nil || !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != `"Acme"` {
		t.Fatalf("unexpected value %s", got)
	}
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(0))
	_ = c.Set(ctx, "k", []byte("1"))
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected entry to survive without a TTL")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	_ = c.Set(ctx, "k", []byte("1"))
	time.Sleep(5 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_ = c.Set(ctx, "tenant.a.settings.x", []byte("1"))
	_ = c.Set(ctx, "tenant.a.settings.y", []byte("2"))
	_ = c.Set(ctx, "tenant.b.settings.x", []byte("3"))

	if err := c.DeletePrefix(ctx, "tenant.a."); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "tenant.a.settings.x"); ok {
		t.Fatal("expected tenant a entries to be removed")
	}
	if _, ok, _ := c.Get(ctx, "tenant.b.settings.x"); !ok {
		t.Fatal("tenant b entry should survive")
	}

	_ = c.Delete(ctx, "tenant.b.settings.x")
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))
	_ = c.Set(ctx, "a", []byte("1"))
	_ = c.Set(ctx, "b", []byte("2"))
	_ = c.Set(ctx, "c", []byte("3"))
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Fatal("newest entry must be kept")
	}
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	v := []byte("abc")
	_ = c.Set(ctx, "k", v)
	v[0] = 'x'
	got, _, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("cache must not alias caller buffers, got %s", got)
	}
}
