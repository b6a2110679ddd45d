// Package api exposes the admin console over HTTP using Forge. Every
// route lives under /v1/admin and delegates to the admin service, which
// performs authorization, the mutation and auditing.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/admin"
)

// BasePath is the default prefix of every admin route.
const BasePath = "/v1/admin"

// API wires all admin HTTP handlers together.
type API struct {
	svc      *admin.Service
	eng      *bastion.Engine
	router   forge.Router
	basePath string
}

// Option configures an API.
type Option func(*API)

// WithBasePath mounts the routes under prefix instead of BasePath.
func WithBasePath(prefix string) Option {
	return func(a *API) {
		if prefix != "" {
			a.basePath = prefix
		}
	}
}

// New creates an API from an admin service and a Forge router.
func New(svc *admin.Service, router forge.Router, opts ...Option) *API {
	a := &API{svc: svc, eng: svc.Engine(), router: router, basePath: BasePath}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("bastion: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerAccountRoutes,
		a.registerRoleRoutes,
		a.registerUserRoutes,
		a.registerSettingsRoutes,
		a.registerAuditRoutes,
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
