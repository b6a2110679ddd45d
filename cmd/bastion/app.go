package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/bastion/auth"
	"github.com/xraph/bastion/cache"
	rediscache "github.com/xraph/bastion/cache/redis"
	"github.com/xraph/bastion/config"
	"github.com/xraph/bastion/extension"
	"github.com/xraph/bastion/metrics"
	"github.com/xraph/bastion/seed"
	"github.com/xraph/bastion/settings"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/store/memory"
)

// app holds everything a command needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	ext      *extension.Extension
	registry *prometheus.Registry
	redis    goredis.UniversalClient
}

func loadApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(config.Options{File: flags.configFile, EnvFile: flags.envFile})
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(os.Stderr)
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	c, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(a.registry)
	if err != nil {
		return nil, err
	}

	extCfg := extension.DefaultConfig()
	extCfg.Engine = cfg.Engine
	extCfg.Tenancy = cfg.Tenancy
	a.ext = extension.New(
		extension.WithConfig(extCfg),
		extension.WithStore(st),
		extension.WithSettingsCache(c),
		extension.WithPlugin(m),
		extension.WithLogger(logger),
	)
	if err := a.ext.Build(); err != nil {
		return nil, err
	}
	return a, nil
}

// openStore returns the configured store. SQL and document backends need
// a grove database supplied by the host application, so only the memory
// store can be opened from configuration alone.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("database driver %q needs a grove database: embed bastion with extension.WithGroveDatabase", cfg.Database.Driver)
	}
}

func (a *app) openCache(ctx context.Context) (settings.Cache, error) {
	cc := a.cfg.Cache
	switch cc.Driver {
	case config.CacheRedis:
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		})
		c := rediscache.New(a.redis, rediscache.WithPrefix(cc.Prefix), rediscache.WithTTL(cc.TTL))
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cc.RedisAddr, err)
		}
		return c, nil
	default:
		return cache.NewMemory(cache.WithTTL(cc.TTL), cache.WithMaxSize(0)), nil
	}
}

func (a *app) authenticator() (*auth.Authenticator, error) {
	return auth.NewAuthenticator(a.cfg.Auth.JWTSecret, a.ext.Engine(),
		auth.WithTTL(a.cfg.Auth.TokenTTL),
	)
}

// seed provisions permissions, roles, the default tenant and default
// settings. Every step is idempotent.
func (a *app) seed(ctx context.Context) error {
	eng := a.ext.Engine()
	st := eng.Store()
	if _, err := seed.Roles(ctx, st, eng.Guard()); err != nil {
		return err
	}
	if _, err := seed.DefaultTenant(ctx, st, a.cfg.App.Name, "main"); err != nil {
		return err
	}
	return seed.Settings(ctx, a.ext.Settings(), st, a.cfg.App.Name)
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.ext.Engine() != nil {
		errs = append(errs, a.ext.Stop(ctx), a.ext.Engine().Store().Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
