package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/coe/config"
	"github.com/angeloszaimis/coe/internal/api"
	"github.com/angeloszaimis/coe/internal/database"
	"github.com/angeloszaimis/coe/internal/healthcheck"
	"github.com/angeloszaimis/coe/internal/httpserver"
	"github.com/angeloszaimis/coe/internal/metrics"
	"github.com/angeloszaimis/coe/internal/proxy"
	"github.com/angeloszaimis/coe/internal/users"
	"github.com/angeloszaimis/coe/pkg/logger"
)

const metricsBufferSize = 1000

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *envFile)
		},
	}
}

// app holds everything serve builds from the configuration.
type app struct {
	handler http.Handler
	db      *sqlx.DB
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func runServe(parent context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, true, cfg.App.Env)

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("Failed to close database pool", slog.Any("err", err))
		}
	}()

	srv, err := httpserver.New(cfg.Server.Address, a.handler)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Server started",
		slog.String("addr", cfg.Server.Address),
		slog.String("dialect", cfg.Database.Dialect),
		slog.String("user_store", cfg.Server.UserStore))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	return nil
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	configureGin(cfg.App.Env)

	resolved, err := database.Resolve(cfg.Database.Dialect, cfg.Database.URL, cfg.App.Env)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	store, target, db, err := initializeStore(ctx, cfg, resolved, log)
	if err != nil {
		return nil, err
	}

	pool := proxy.NewPool(log, collector, proxy.Options{
		RateLimit:        cfg.Proxy.RateLimit,
		Burst:            cfg.Proxy.RateBurst,
		BreakerThreshold: cfg.Proxy.BreakerThreshold,
		BreakerTimeout:   cfg.Proxy.BreakerTimeoutDuration(),
	})

	apiServer := api.NewServer(log, users.NewService(store), api.Config{
		Site: api.Site{
			Name:        cfg.App.Name,
			Title:       cfg.App.Title,
			Description: cfg.App.Description,
			URL:         cfg.App.URL,
		},
		Database:  target,
		Metrics:   collector.Handler(),
		Upstreams: pool.StatsHandler(),
	})

	handler, err := setupRouter(log, cfg, apiServer, pool)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	return &app{handler: handler, db: db}, nil
}

// configureGin turns off gin's debug output outside development. GIN_MODE still
// applies in development.
func configureGin(appEnv string) {
	switch appEnv {
	case config.EnvProduction, config.EnvStaging:
		gin.SetMode(gin.ReleaseMode)
	}
}

// initializeStore picks the user store. The database store also starts the pool
// health monitor.
func initializeStore(ctx context.Context, cfg *config.Config, resolved *database.Resolved, log *slog.Logger) (users.Store, *healthcheck.Target, *sqlx.DB, error) {
	if cfg.Server.UserStore != config.UserStoreDatabase {
		return users.NewMemoryStore(), nil, nil, nil
	}

	db, err := openDatabase(cfg, resolved)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, resolved, database.Up); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info("Database migrated", slog.String("dialect", resolved.Dialect.String()))
	}

	target := healthcheck.NewTarget("database", func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})
	go healthcheck.HealthCheck(ctx, target, cfg.Server.HealthCheckIntervalDuration(), log)

	return users.NewSQLStore(db), target, db, nil
}

func openDatabase(cfg *config.Config, resolved *database.Resolved) (*sqlx.DB, error) {
	return database.Open(resolved, database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetimeDuration(),
	})
}
