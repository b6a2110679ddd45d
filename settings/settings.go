// Package settings provides tenant-scoped key/value configuration with a
// read-through cache in front of the persistent settings table.
//
// Reads are cached forever (or for the cache backend's TTL), including
// the default returned for a missing key, until Forget or Set touches the
// key. Rows changed behind the service's back stay shadowed by the cache
// until then. Read errors degrade to the default; write errors propagate.
//
// The default cache never evicts. A size-bounded cache passed through
// WithCache may drop a cached default, after which the next read for that
// key goes to the store again and can surface an out-of-band row.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/cache"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/setting"
	"github.com/xraph/bastion/store"
)

// MaxKeyLength is the longest accepted setting key.
const MaxKeyLength = 255

// Cache is the byte-oriented cache the service reads through.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PrefixCache is a Cache that can evict every key under a prefix.
type PrefixCache interface {
	Cache
	DeletePrefix(ctx context.Context, prefix string) error
}

// ErrFlushUnsupported is returned by Flush when the cache backend cannot
// evict by prefix.
var ErrFlushUnsupported = errors.New("settings: cache does not support prefix eviction")

// Compile-time interface check.
var _ PrefixCache = (*cache.Memory)(nil)

// Service reads and writes settings for the tenant in the request context.
type Service struct {
	store   setting.Store
	cache   Cache
	plugins *plugin.Registry
	logger  *slog.Logger
	tenancy bool
}

// Option configures the Service.
type Option func(*Service)

// WithCache sets the cache backend. Defaults to an unbounded,
// non-expiring memory cache.
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithPlugins sets the plugin registry notified of changes and cache access.
func WithPlugins(r *plugin.Registry) Option { return func(s *Service) { s.plugins = r } }

// WithTenancy toggles tenant scoping. When disabled every call uses the
// single global namespace. Defaults to enabled.
func WithTenancy(enabled bool) Option { return func(s *Service) { s.tenancy = enabled } }

// NewService creates a settings service over st.
func NewService(st setting.Store, opts ...Option) *Service {
	s := &Service{
		store:   st,
		logger:  slog.Default(),
		tenancy: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewMemory(cache.WithTTL(0), cache.WithMaxSize(0))
	}
	return s
}

// scope returns the tenant whose rows the call reads and writes.
func (s *Service) scope(ctx context.Context) id.TenantID {
	if !s.tenancy {
		return id.Nil
	}
	return bastion.TenantIDFromContext(ctx)
}

// CacheKey returns the cache key for key in the context's tenant scope.
func (s *Service) CacheKey(ctx context.Context, key string) string {
	if tid := s.scope(ctx); !tid.IsNil() {
		return "tenant." + tid.String() + ".settings." + key
	}
	return "settings." + key
}

// Get returns the value stored for key, decoded from JSON (objects as
// map[string]any, numbers as float64). When the key is missing, holds
// null, or the store cannot be read, def is returned and cached.
func (s *Service) Get(ctx context.Context, key string, def any) any {
	defRaw, err := json.Marshal(def)
	if err != nil {
		s.logger.Warn("settings: default is not JSON encodable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return def
	}
	raw := s.resolve(ctx, key, defRaw)
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

// GetInto decodes the value for key into dst. The current content of
// dst acts as the default.
func (s *Service) GetInto(ctx context.Context, key string, dst any) error {
	defRaw, err := json.Marshal(dst)
	if err != nil {
		return fmt.Errorf("settings: encode default for %q: %w", key, err)
	}
	raw := s.resolve(ctx, key, defRaw)
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("settings: decode %q: %w", key, err)
	}
	return nil
}

// resolve implements the read-through path and returns raw JSON.
func (s *Service) resolve(ctx context.Context, key string, def json.RawMessage) json.RawMessage {
	ck := s.CacheKey(ctx, key)

	cached, ok, err := s.cache.Get(ctx, ck)
	if err != nil {
		s.logger.Warn("settings: cache read failed",
			slog.String("key", ck),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		s.plugins.EmitSettingsCacheAccess(ctx, key, true)
		return cached
	}
	s.plugins.EmitSettingsCacheAccess(ctx, key, false)

	value := def
	row, err := s.store.GetSetting(ctx, s.scope(ctx), key)
	switch {
	case err == nil:
		if !isNull(row.Value) {
			value = row.Value
		}
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrUnavailable):
		s.logger.Debug("settings: store not provisioned, using default", slog.String("key", key))
	default:
		s.logger.Warn("settings: store read failed, using default",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	if err := s.cache.Set(ctx, ck, value); err != nil {
		s.logger.Warn("settings: cache write failed",
			slog.String("key", ck),
			slog.String("error", err.Error()),
		)
	}
	return value
}

// Set stores value under key for the context's tenant, then overwrites
// the cache entry. Store and cache failures are returned.
func (s *Service) Set(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: value for %q is not valid JSON: %w", bastion.ErrValidation, key, err)
	}

	row := &setting.Setting{TenantID: s.scope(ctx), Key: key, Value: raw}
	if err := s.store.UpsertSetting(ctx, row); err != nil {
		return fmt.Errorf("settings: set %q: %w", key, err)
	}
	if err := s.cache.Set(ctx, s.CacheKey(ctx, key), raw); err != nil {
		return fmt.Errorf("settings: cache %q: %w", key, err)
	}
	s.plugins.EmitSettingChanged(ctx, row)
	return nil
}

// Forget evicts the cache entry for key in the context's tenant scope.
// The stored row is left untouched.
func (s *Service) Forget(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, s.CacheKey(ctx, key)); err != nil {
		return fmt.Errorf("settings: forget %q: %w", key, err)
	}
	return nil
}

// Flush evicts every cached value and default of the context's tenant
// scope. Stored rows are left untouched.
func (s *Service) Flush(ctx context.Context) error {
	pc, ok := s.cache.(PrefixCache)
	if !ok {
		return ErrFlushUnsupported
	}
	if err := pc.DeletePrefix(ctx, s.CacheKey(ctx, "")); err != nil {
		return fmt.Errorf("settings: flush: %w", err)
	}
	return nil
}

// Delete removes the stored row for key and evicts its cache entry.
func (s *Service) Delete(ctx context.Context, key string) error {
	tid := s.scope(ctx)
	if err := s.store.DeleteSetting(ctx, tid, key); err != nil {
		return fmt.Errorf("settings: delete %q: %w", key, err)
	}
	if err := s.Forget(ctx, key); err != nil {
		return err
	}
	s.plugins.EmitSettingChanged(ctx, &setting.Setting{TenantID: tid, Key: key})
	return nil
}

// All returns every stored key and decoded value for the context's
// tenant, bypassing the cache. Read failures yield an empty map.
func (s *Service) All(ctx context.Context) map[string]any {
	out := make(map[string]any)
	rows, err := s.store.ListSettings(ctx, s.scope(ctx))
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			s.logger.Warn("settings: list failed",
				slog.String("error", err.Error()),
			)
		}
		return out
	}
	for _, row := range rows {
		var v any
		if err := json.Unmarshal(row.Value, &v); err != nil {
			continue
		}
		out[row.Key] = v
	}
	return out
}

// Import writes every entry of values, prepending prefix (joined with a
// dot) to each key. With dry set nothing is persisted. It returns the
// full keys and values that were, or would have been, written.
func (s *Service) Import(ctx context.Context, values map[string]any, prefix string, dry bool) (map[string]any, error) {
	written := make(map[string]any, len(values))
	prefix = strings.TrimRight(prefix, ".")
	for _, key := range slices.Sorted(maps.Keys(values)) {
		value := values[key]
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if err := ValidateKey(full); err != nil {
			return written, err
		}
		if !dry {
			if err := s.Set(ctx, full, value); err != nil {
				return written, err
			}
		}
		written[full] = value
	}
	return written, nil
}

// ValidateKey checks that key is non-empty and at most MaxKeyLength bytes.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: setting key is required", bastion.ErrValidation)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: setting key exceeds %d characters", bastion.ErrValidation, MaxKeyLength)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
