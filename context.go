package bastion

import (
	"context"
	"sync"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/tenant"
)

type contextKey int

const (
	ctxKeyTenant contextKey = iota
	ctxKeyTenantBox
	ctxKeyPrincipal
	ctxKeyRequestInfo
	ctxKeyLocale
)

// RequestInfo carries best-effort details about the inbound request.
type RequestInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// tenantBox is a single-slot holder filled at most once per request.
type tenantBox struct {
	mu  sync.RWMutex
	t   *tenant.Tenant
	set bool
}

// WithTenant returns a context carrying t as the resolved tenant.
func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, ctxKeyTenant, t)
}

// NewTenantContext returns a context with an empty tenant slot that
// SetTenant can fill once. Each request gets its own slot.
func NewTenantContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyTenantBox, &tenantBox{})
}

// SetTenant fills the slot installed by NewTenantContext.
func SetTenant(ctx context.Context, t *tenant.Tenant) error {
	box, ok := ctx.Value(ctxKeyTenantBox).(*tenantBox)
	if !ok {
		return ErrNoTenantContext
	}
	box.mu.Lock()
	defer box.mu.Unlock()
	if box.set {
		return ErrTenantAlreadySet
	}
	box.t = t
	box.set = true
	return nil
}

// TenantFromContext returns the resolved tenant, if any. A filled slot
// takes precedence over a value set with WithTenant.
func TenantFromContext(ctx context.Context) (*tenant.Tenant, bool) {
	if box, ok := ctx.Value(ctxKeyTenantBox).(*tenantBox); ok {
		box.mu.RLock()
		t, set := box.t, box.set
		box.mu.RUnlock()
		if set && t != nil {
			return t, true
		}
	}
	t, ok := ctx.Value(ctxKeyTenant).(*tenant.Tenant)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// TenantIDFromContext returns the resolved tenant's ID, or Nil.
func TenantIDFromContext(ctx context.Context) id.TenantID {
	t, ok := TenantFromContext(ctx)
	if !ok {
		return id.Nil
	}
	return t.ID
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(*Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// WithRequestInfo returns a context carrying request details.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKeyRequestInfo, info)
}

// RequestInfoFromContext returns the request details, or the zero value.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	v, ok := ctx.Value(ctxKeyRequestInfo).(RequestInfo)
	if !ok {
		return RequestInfo{}
	}
	return v
}

// WithLocale returns a context carrying the negotiated response locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, locale)
}

// LocaleFromContext returns the negotiated locale, or "" when none was set.
func LocaleFromContext(ctx context.Context) string {
	l, _ := ctx.Value(ctxKeyLocale).(string)
	return l
}
