// Package tenancy maps inbound requests onto tenants and installs the
// resolved tenant in the request context.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/tenant"
)

// Resolution sources, reported to plugins and logs.
const (
	SourceHeader    = "header"
	SourceDomain    = "domain"
	SourceSubdomain = "subdomain"
	SourcePrincipal = "principal"
	SourceDefault   = "default"
)

// RequestInput is what the resolver looks at.
type RequestInput struct {
	Host      string
	Path      string
	Header    http.Header
	Principal *bastion.Principal
}

// InputFromRequest builds a RequestInput from r and the principal already
// placed in its context.
func InputFromRequest(r *http.Request) RequestInput {
	p, _ := bastion.PrincipalFromContext(r.Context())
	return RequestInput{
		Host:      r.Host,
		Path:      r.URL.Path,
		Header:    r.Header,
		Principal: p,
	}
}

// Resolution is the outcome of Resolve. Skipped is set when tenancy is
// disabled or the path is ignored; Tenant is nil in that case.
type Resolution struct {
	Tenant  *tenant.Tenant
	Skipped bool
	Source  string
}

// Resolver deterministically picks the tenant for a request.
type Resolver struct {
	tenants tenant.Store
	config  Config
	plugins *plugin.Registry
	logger  *slog.Logger
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithConfig sets the resolver configuration.
func WithConfig(c Config) Option { return func(r *Resolver) { r.config = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(r *Resolver) { r.logger = l } }

// WithPlugins sets the plugin registry notified of resolutions.
func WithPlugins(p *plugin.Registry) Option { return func(r *Resolver) { r.plugins = p } }

// NewResolver creates a resolver backed by the tenant registry.
func NewResolver(tenants tenant.Store, opts ...Option) *Resolver {
	r := &Resolver{
		tenants: tenants,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the resolver configuration.
func (r *Resolver) Config() Config { return r.config }

// Resolve runs the resolution steps in order; the first match wins:
//
//  1. tenancy disabled: skipped
//  2. path matches an ignore pattern: skipped
//  3. override header, when allowed and the slug exists
//  4. exact host match on a tenant domain
//  5. first label of a host with three or more labels, as a slug; a miss
//     here is final
//  6. the authenticated principal's tenant
//  7. the default tenant
//
// It returns bastion.ErrTenantUnresolved when nothing matched. Store
// failures other than not-found are returned as is.
func (r *Resolver) Resolve(ctx context.Context, in RequestInput) (*Resolution, error) {
	if !r.config.Enabled {
		return &Resolution{Skipped: true}, nil
	}
	if ignored(r.config.IgnorePaths, normalizePath(in.Path)) {
		return &Resolution{Skipped: true}, nil
	}

	res, err := r.resolve(ctx, in)
	if err != nil {
		if errors.Is(err, bastion.ErrTenantUnresolved) {
			r.logger.Warn("tenant unresolved",
				slog.String("host", in.Host),
				slog.String("path", in.Path),
			)
			r.plugins.EmitTenantUnresolved(ctx, in.Host, in.Path)
		}
		return nil, err
	}

	r.logger.Debug("tenant resolved",
		slog.String("tenant", res.Tenant.Slug),
		slog.String("source", res.Source),
	)
	r.plugins.EmitTenantResolved(ctx, res.Tenant, res.Source)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, in RequestInput) (*Resolution, error) {
	if r.config.headerAllowed() && in.Header != nil {
		if slug := strings.TrimSpace(in.Header.Get(r.config.header())); slug != "" {
			t, err := r.find(r.tenants.GetTenantBySlug(ctx, slug))
			if err != nil {
				return nil, err
			}
			if t != nil {
				return &Resolution{Tenant: t, Source: SourceHeader}, nil
			}
		}
	}

	host := normalizeHost(in.Host)
	if host != "" {
		t, err := r.find(r.tenants.GetTenantByDomain(ctx, host))
		if err != nil {
			return nil, err
		}
		if t != nil {
			return &Resolution{Tenant: t, Source: SourceDomain}, nil
		}

		if labels := strings.Split(host, "."); len(labels) >= 3 {
			t, err := r.find(r.tenants.GetTenantBySlug(ctx, labels[0]))
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, fmt.Errorf("%w: unknown subdomain %q", bastion.ErrTenantUnresolved, labels[0])
			}
			return &Resolution{Tenant: t, Source: SourceSubdomain}, nil
		}
	}

	if in.Principal != nil && !in.Principal.TenantID.IsNil() {
		t, err := r.find(r.tenants.GetTenant(ctx, in.Principal.TenantID))
		if err != nil {
			return nil, err
		}
		if t != nil {
			return &Resolution{Tenant: t, Source: SourcePrincipal}, nil
		}
	}

	t, err := r.find(r.tenants.GetDefaultTenant(ctx))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: no default tenant", bastion.ErrTenantUnresolved)
	}
	return &Resolution{Tenant: t, Source: SourceDefault}, nil
}

// find turns a not-found lookup into (nil, nil).
func (r *Resolver) find(t *tenant.Tenant, err error) (*tenant.Tenant, error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("tenancy: lookup: %w", err)
	}
	return t, nil
}

// normalizeHost lower-cases host and strips any port.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return strings.TrimSuffix(host, ".")
}

func normalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}
