package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/jwksguard/internal/app"
	httpmetrics "github.com/dropDatabas3/jwksguard/internal/http"
	"github.com/dropDatabas3/jwksguard/internal/http/controllers/health"
	"github.com/dropDatabas3/jwksguard/internal/http/router"
	"github.com/dropDatabas3/jwksguard/internal/observability/logger"
)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP (/healthz, /readyz, /metrics, /v1/whoami)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			log := logger.Named("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			metricsHandler, err := httpmetrics.RegisterMetrics(httpmetrics.MetricsConfig{
				Pool:  func() *pgxpool.Pool { return c.Pool },
				Cache: c.Cache,
			})
			if err != nil {
				return err
			}

			hc := health.NewController(version, cfg.Network.Timeout)
			for name, check := range c.Checks {
				hc.Register(name, health.PingFunc(check))
			}

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: router.New(router.Deps{
					Authorizer: c.Authorizer,
					Health:     hc,
					Metrics:    metricsHandler,
				}),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", logger.String("addr", cfg.Server.Addr), logger.URI(cfg.Auth.JWKSURI))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shCtx)
		},
	}
}
