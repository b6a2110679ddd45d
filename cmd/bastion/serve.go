package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/bastion/config"
	"github.com/xraph/bastion/middleware"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		doSeed    bool
		bootstrap provisionFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(context.Background()); err != nil {
					a.logger.Warn("shutdown", slog.String("error", err.Error()))
				}
			}()

			if err := a.ext.Start(ctx); err != nil {
				return err
			}
			if doSeed || a.cfg.Database.Driver == config.DriverMemory {
				if err := a.seed(ctx); err != nil {
					return err
				}
			}
			if bootstrap.email != "" {
				if _, err := bootstrap.provision(ctx, a); err != nil {
					return err
				}
			}

			handler, err := a.httpHandler()
			if err != nil {
				return err
			}
			return a.listen(ctx, handler)
		},
	}
	cmd.Flags().BoolVar(&doSeed, "seed", false, "seed roles, the default tenant and settings before serving (always on for the memory store)")
	bootstrap.register(cmd, "bootstrap-")
	return cmd
}

func (a *app) httpHandler() (http.Handler, error) {
	authn, err := a.authenticator()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		if err := a.ext.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mws := []middleware.Func{middleware.RequestInfo(a.cfg.HTTP.TrustProxy)}
	if a.cfg.HTTP.RequireAjax {
		mws = append(mws, middleware.RequireAjax)
	}
	mws = append(mws,
		middleware.Authenticate(authn, a.logger),
		middleware.Locale(a.cfg.App.SupportedLocales, a.cfg.App.Locale),
		a.ext.TenantMiddleware(),
	)
	mux.Handle("/", middleware.Chain(a.ext.Handler(), mws...))
	return mux, nil
}

func (a *app) listen(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
