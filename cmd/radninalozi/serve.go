package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tihomirborovcak/radni-nalozi/internal/config"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/auth"
	v1 "github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving (postgres only)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting radni-nalozi server", "storage", cfg.Storage.Driver, "env", cfg.Env)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if migrateOnStart && a.pool != nil {
		if err := postgres.Migrate(ctx, a.pool, postgres.MigrateUp); err != nil {
			return err
		}
	}

	routerCfg := v1.RouterConfig{
		Services: a.services,
		Logger:   log,
		Metrics:  a.metrics,
		Storage:  cfg.Storage.Driver,
		Debug:    cfg.IsDevelopment(),
	}
	if a.pool != nil {
		routerCfg.DB = a.pool
	}
	if cfg.Auth.JWTSecret != "" {
		jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
		jwtCfg.Issuer = cfg.Auth.JWTIssuer
		routerCfg.JWTValidator = auth.NewJWTService(jwtCfg)
	} else {
		log.Warn("auth.jwt_secret is empty; trusting X-User-ID gateway headers")
	}
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn("memory storage: data is lost on exit")
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
