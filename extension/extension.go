// Package extension provides a Forge extension entry point for Bastion.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/admin"
	"github.com/xraph/bastion/api"
	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store"
	mongostore "github.com/xraph/bastion/store/mongo"
	pgstore "github.com/xraph/bastion/store/postgres"
	sqlitestore "github.com/xraph/bastion/store/sqlite"
	"github.com/xraph/bastion/tenancy"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "bastion"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-tenant admin console core (tenancy, RBAC, settings, audit)"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Bastion as a Forge extension.
type Extension struct {
	config     Config
	store      store.Store
	cache      settings.Cache
	eng        *bastion.Engine
	settings   *settings.Service
	audit      *audit.Logger
	resolver   *tenancy.Resolver
	admin      *admin.Service
	apiHandler *api.API
	logger     *slog.Logger
	engineOpts []bastion.Option
	plugins    []plugin.Plugin
}

// New creates a Bastion Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the authorization engine.
func (e *Extension) Engine() *bastion.Engine { return e.eng }

// Settings returns the settings service.
func (e *Extension) Settings() *settings.Service { return e.settings }

// Audit returns the audit logger.
func (e *Extension) Audit() *audit.Logger { return e.audit }

// Resolver returns the tenant resolver.
func (e *Extension) Resolver() *tenancy.Resolver { return e.resolver }

// Admin returns the admin service.
func (e *Extension) Admin() *admin.Service { return e.admin }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It builds every service,
// registers them in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	c := fapp.Container()
	provide := []error{
		vessel.Provide(c, func() (*bastion.Engine, error) { return e.eng, nil }),
		vessel.Provide(c, func() (*settings.Service, error) { return e.settings, nil }),
		vessel.Provide(c, func() (*audit.Logger, error) { return e.audit, nil }),
		vessel.Provide(c, func() (*tenancy.Resolver, error) { return e.resolver, nil }),
		vessel.Provide(c, func() (*admin.Service, error) { return e.admin, nil }),
	}
	if err := errors.Join(provide...); err != nil {
		return fmt.Errorf("bastion: register services in container: %w", err)
	}
	return nil
}

func (e *Extension) init(fapp forge.App) error {
	if e.store == nil {
		if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
			e.store = s
		}
	}
	if e.store == nil && e.config.GroveDriver != "" {
		db, err := forge.Inject[*grove.DB](fapp.Container())
		if err != nil {
			return fmt.Errorf("bastion: resolve grove database: %w", err)
		}
		s, err := StoreFor(e.config.GroveDriver, db)
		if err != nil {
			return err
		}
		e.store = s
	}

	if err := e.Build(); err != nil {
		return err
	}

	e.apiHandler = api.New(e.admin, fapp.Router(), api.WithBasePath(e.config.BasePath))
	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("bastion: register routes: %w", err)
		}
	}
	return nil
}

// StoreFor wraps a grove database in the store matching driver.
func StoreFor(driver string, db *grove.DB) (store.Store, error) {
	switch driver {
	case "pg", "postgres":
		return pgstore.New(db), nil
	case "sqlite":
		return sqlitestore.New(db), nil
	case "mongo", "mongodb":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("bastion: unsupported grove driver %q", driver)
	}
}

// Build constructs the engine and the services around the configured
// store. Register calls it; standalone binaries call it directly.
func (e *Extension) Build() error {
	if e.store == nil {
		return errors.New("bastion: store is required")
	}
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]bastion.Option, 0, len(e.engineOpts)+len(e.plugins)+3)
	opts = append(opts,
		bastion.WithLogger(logger),
		bastion.WithStore(e.store),
		bastion.WithConfig(e.config.Engine),
	)
	opts = append(opts, e.engineOpts...)
	for _, x := range e.plugins {
		opts = append(opts, bastion.WithPlugin(x))
	}

	eng, err := bastion.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("bastion: create engine: %w", err)
	}
	e.eng = eng

	st := eng.Store()
	enabled := e.config.Tenancy.Enabled
	setOpts := []settings.Option{
		settings.WithLogger(logger),
		settings.WithPlugins(eng.Plugins()),
		settings.WithTenancy(enabled),
	}
	if e.cache != nil {
		setOpts = append(setOpts, settings.WithCache(e.cache))
	}
	e.settings = settings.NewService(st, setOpts...)
	e.audit = audit.NewLogger(st,
		audit.WithLogger(logger),
		audit.WithPlugins(eng.Plugins()),
		audit.WithTenancy(enabled),
	)
	e.resolver = tenancy.NewResolver(st,
		tenancy.WithConfig(e.config.Tenancy),
		tenancy.WithLogger(logger),
		tenancy.WithPlugins(eng.Plugins()),
	)
	e.admin = admin.New(eng, e.settings, e.audit,
		admin.WithLogger(logger),
		admin.WithTenancy(enabled),
	)
	return nil
}

// TenantMiddleware resolves the current tenant for every request.
func (e *Extension) TenantMiddleware() func(http.Handler) http.Handler {
	return tenancy.Middleware(e.resolver)
}

// Start runs migrations if enabled and starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("bastion: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("bastion: migration failed: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("bastion: extension not initialized")
	}
	return e.eng.Store().Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.admin == nil {
		return http.NotFoundHandler()
	}
	if e.apiHandler == nil {
		e.apiHandler = api.New(e.admin, nil, api.WithBasePath(e.config.BasePath))
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all admin API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
