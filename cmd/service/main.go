// Command service serves POST /inject-quotes: it splices stored customer
// quotes into article HTML and records which quotes were used.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/flags"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-injection-service/internal/adapters/store"
	"github.com/jsamuelsen/quote-injection-service/internal/app"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/config"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/logging"
	"github.com/jsamuelsen/quote-injection-service/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-injection-service/internal/ports"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is cancelled by a signal or the
// server fails.
func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("store_driver", cfg.Store.Driver),
	)

	// Telemetry outlives the signal so spans from the drain are still exported.
	telProvider, err := telemetry.New(context.WithoutCancel(ctx), &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Insecure:     cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if err := telProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	quotes, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening quote store: %w", err)
	}
	defer quotes.Close()

	health := ports.NewHealthRegistry()
	if err := health.Register(quotes.Health); err != nil {
		return fmt.Errorf("registering quote store health check: %w", err)
	}

	featureFlags, err := flags.NewStatic(cfg.Features)
	if err != nil {
		return fmt.Errorf("loading feature flags: %w", err)
	}

	metrics, err := app.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("creating engine metrics: %w", err)
	}

	tracker := app.NewUsageTracker(app.UsageTrackerConfig{
		Store:       quotes.Store,
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.Injection.Tracking.Timeout,
		Concurrency: cfg.Injection.Tracking.Concurrency,
	})

	engine := app.NewInjectionService(app.InjectionServiceConfig{
		Store:   quotes.Store,
		Tracker: tracker,
		Flags:   featureFlags,
		Metrics: metrics,
		Logger:  logger,
	})

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.NewRouterConfig(logger, cfg,
		handlers.NewHealthHandler(health, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		handlers.NewInjectHandler(engine, cfg.Injection.InjectionDefaults()),
	))

	serverErr, err := server.Start()
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	return drain(logger, server, tracker, cfg.Server.ShutdownTimeout)
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(&logging.Config{
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
}

// drain stops the HTTP server first so no new usage updates are queued, then
// waits for the queued ones before the store closes. Both share one deadline.
func drain(logger *slog.Logger, server *http.Server, tracker *app.UsageTracker, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("draining", slog.Duration("timeout", timeout))

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := tracker.Shutdown(ctx); err != nil {
		logger.Warn("usage updates not drained", slog.Any("error", err))
	}

	logger.Info("shutdown complete")

	return nil
}
