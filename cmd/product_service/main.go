// Package main runs the product service REST backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/productdesk/internal/config"
	"github.com/abgdnv/productdesk/internal/platform/database"
	"github.com/abgdnv/productdesk/internal/platform/logger"
	"github.com/abgdnv/productdesk/internal/platform/telemetry"
	"github.com/abgdnv/productdesk/internal/product/app"
	"github.com/abgdnv/productdesk/internal/product/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const serviceName = "product-service"

func main() {
	configFile := pflag.StringP("config", "c", "config.yaml", "path to the YAML configuration file")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, opens the product store and serves HTTP until ctx is cancelled.
func run(ctx context.Context, configFile string) error {
	cfg, err := config.LoadServer(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	appLogger := logger.New(os.Stdout, cfg.Log.Level)
	slog.SetDefault(appLogger)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			appLogger.Error("failed to flush traces", "error", err)
		}
	}()

	dbPool, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	deps, err := app.SetupDependencies(dbPool, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{Addr: cfg.PProf.Addr}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.PProf.Enabled {
		g.Go(func() error {
			appLogger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			appLogger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// openStore connects to PostgreSQL and applies migrations when a database URL is configured.
// It returns a nil pool for the in-memory store.
func openStore(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		logger.Info("No database configured, using the in-memory product store")
		return nil, nil
	}
	if err := store.Migrate(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	dbPool, err := database.NewPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to the database!")
	return dbPool, nil
}
