package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsflow/backend/pkg/config"
	"newsflow/backend/pkg/di"
	"newsflow/backend/pkg/health"
	"newsflow/backend/pkg/logger"
	"newsflow/backend/pkg/middleware"
	"newsflow/backend/pkg/router"
	"newsflow/backend/pkg/secrets"
	"newsflow/backend/shared/observability"
)

const serviceName = "newsflow"

func main() {
	cfg := config.Load()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg, log, os.Getenv("APP_VERSION"))
	stop()
	if err != nil {
		log.LogError(err, "Server exited with error")
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. Every resource it opens is released
// before it returns, including on startup failures.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger, version string) error {
	log.Info("Starting application", "version", version, "env", cfg.Server.Env)

	// Initialize database
	db, err := config.NewDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := config.CloseDB(db); err != nil {
			log.LogError(err, "Failed to close database")
		}
	}()

	if err := config.TestConnection(db); err != nil {
		return fmt.Errorf("database is not reachable: %w", err)
	}

	var shutdowns []observability.ShutdownFunc
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		for _, shutdown := range shutdowns {
			if err := shutdown(shutdownCtx); err != nil {
				log.LogError(err, "Failed to flush telemetry")
			}
		}
	}()
	if cfg.Features.Tracing {
		shutdown, err := observability.SetupTracing(serviceName, os.Stdout)
		if err != nil {
			log.LogError(err, "Failed to set up tracing")
		} else {
			shutdowns = append(shutdowns, shutdown)
		}
	}
	if shutdown, err := observability.SetupMetrics(serviceName); err != nil {
		log.LogError(err, "Failed to set up metrics")
	} else {
		shutdowns = append(shutdowns, shutdown)
	}

	// The AI key may live in Vault rather than the environment
	secretManager, err := secrets.NewManager(log)
	if err != nil {
		log.LogError(err, "Failed to initialize secrets manager, using environment")
		secretManager = secrets.NewEnvManager(log)
	}
	aiAPIKey := secretManager.GetSecretWithDefault(ctx, "OPENAI_API_KEY", cfg.AI.APIKey)

	container, err := di.New(db, cfg, log, aiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to initialize dependency container: %w", err)
	}
	defer container.Close()

	if err := container.Repository.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Background workers stop with ctx, or when run returns early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	container.StartHealth(ctx)
	go reportDBStats(ctx, container)

	if cfg.Server.GRPCHealthPort != "" {
		grpcHealth := health.NewGRPCServer(container.Health)
		go func() {
			log.Info("gRPC health server starting", "port", cfg.Server.GRPCHealthPort)
			if err := grpcHealth.Serve(ctx, ":"+cfg.Server.GRPCHealthPort); err != nil {
				log.LogError(err, "gRPC health server stopped")
			}
		}()
	}

	r := router.New(container, version)
	if err := r.SetupRoutes(); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}
	defer r.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
	return runErr
}

// reportDBStats publishes connection pool gauges every 15s
func reportDBStats(ctx context.Context, container *di.Container) {
	sqlDB, err := container.DB.DB()
	if err != nil {
		container.Logger.LogError(err, "Failed to read database pool stats")
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		middleware.ObserveDBStats(sqlDB.Stats())
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
