// Package admin implements the administrative operations of the console:
// role, user, settings and audit-log management. Every operation takes
// the acting principal from the context, asks the authorization engine,
// performs the mutation and records an audit entry.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store"
)

// Page size bounds for list operations.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Service is the admin facade over the engine, settings and audit log.
type Service struct {
	engine   *bastion.Engine
	store    store.Store
	settings *settings.Service
	audit    *audit.Logger
	plugins  *plugin.Registry
	logger   *slog.Logger
	tenancy  bool
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithTenancy toggles tenant scoping of user and audit listings. Enabled
// by default.
func WithTenancy(enabled bool) Option { return func(s *Service) { s.tenancy = enabled } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New creates an admin service. The store and plugin registry are taken
// from the engine.
func New(eng *bastion.Engine, set *settings.Service, aud *audit.Logger, opts ...Option) *Service {
	s := &Service{
		engine:   eng,
		store:    eng.Store(),
		settings: set,
		audit:    aud,
		plugins:  eng.Plugins(),
		logger:   slog.Default(),
		tenancy:  true,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the authorization engine.
func (s *Service) Engine() *bastion.Engine { return s.engine }

// Settings returns the settings service.
func (s *Service) Settings() *settings.Service { return s.settings }

// Audit returns the audit logger.
func (s *Service) Audit() *audit.Logger { return s.audit }

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// actor returns the principal carried by ctx, or nil. A nil principal is
// denied by every engine check.
func actor(ctx context.Context) *bastion.Principal {
	p, _ := bastion.PrincipalFromContext(ctx)
	return p
}

// scopedTenant returns the tenant listings and lookups are confined to.
// Nil means unscoped.
func (s *Service) scopedTenant(ctx context.Context) id.TenantID {
	if !s.tenancy {
		return id.Nil
	}
	return bastion.TenantIDFromContext(ctx)
}

func notFound(kind string, ref fmt.Stringer, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", bastion.ErrNotFound, kind, ref)
	}
	return fmt.Errorf("admin: load %s %s: %w", kind, ref, err)
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}
