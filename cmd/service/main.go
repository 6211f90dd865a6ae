// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebulter/quote-service/internal/adapters/clients"
	"github.com/ebulter/quote-service/internal/adapters/clients/acl"
	"github.com/ebulter/quote-service/internal/adapters/dynamo"
	"github.com/ebulter/quote-service/internal/adapters/http"
	"github.com/ebulter/quote-service/internal/adapters/http/handlers"
	"github.com/ebulter/quote-service/internal/adapters/memory"
	"github.com/ebulter/quote-service/internal/app"
	"github.com/ebulter/quote-service/internal/platform/config"
	"github.com/ebulter/quote-service/internal/platform/logging"
	"github.com/ebulter/quote-service/internal/platform/telemetry"
	"github.com/ebulter/quote-service/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Create the stores for the configured driver
	quoteStore, activityStore, err := buildStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	// 7. Create the external quote feed adapter
	feedClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.QuoteFeed.BaseURL,
		ServiceName: cfg.QuoteFeed.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating quote feed client: %w", err)
	}

	zenClient := acl.NewZenClient(feedClient)

	if err := healthRegistry.Register(zenClient); err != nil {
		return fmt.Errorf("registering quote feed health check: %w", err)
	}

	// 8. Create the application services
	quoteService := app.NewQuoteService(app.QuoteServiceConfig{
		Quotes:   quoteStore,
		Activity: activityStore,
		Logger:   logger,
	})

	catalogService := app.NewCatalogService(app.CatalogServiceConfig{
		Quotes:   quoteStore,
		Activity: activityStore,
		Fetcher:  zenClient,
		Logger:   logger,
	})

	// 9. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	adminHandler := handlers.NewAdminHandler(catalogService)

	// 10. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 11. Setup router with all middleware and routes
	http.RegisterRoutes(server.Engine(), &http.RouterConfig{
		QuoteHandler:   quoteHandler,
		AdminHandler:   adminHandler,
		HealthHandler:  healthHandler,
		ServiceName:    cfg.App.Name,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	})

	// 12. Start server (non-blocking)
	serverErr := server.Start()

	// 13. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// buildStores constructs the quote and activity stores for the
// configured storage driver.
func buildStores(ctx context.Context, cfg *config.Config) (ports.QuoteStore, ports.ActivityStore, error) {
	switch cfg.Storage.Driver {
	case "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg.Storage.Region, cfg.Storage.Endpoint)
		if err != nil {
			return nil, nil, err
		}

		tables := dynamo.Tables{
			Quotes:   cfg.Storage.QuotesTable,
			Likes:    cfg.Storage.LikesTable,
			Views:    cfg.Storage.ViewsTable,
			Progress: cfg.Storage.ProgressTable,
		}

		return dynamo.NewQuoteStore(client, tables.Quotes), dynamo.NewActivityStore(client, tables), nil

	default:
		return memory.NewQuoteStore(), memory.NewActivityStore(), nil
	}
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
