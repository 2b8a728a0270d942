// Package cli provides common CLI initialization utilities shared by
// cmd/catorcena and cmd/catorcena-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catorcena/internal/backend"
	"catorcena/internal/cache"
	"catorcena/internal/config"
	"catorcena/internal/services"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the given level
// (debug|info|warn|error) and sets it as the default logger.
func SetupLogger(level string) *slog.Logger {
	lvl, err := config.ParseLogLevel(level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store. Exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// NewPeriodService wires the summary engine on top of the store. With a
// manager the year summaries are cached and the cache is registered for
// periodic cleanup. A nil manager gives an uncached service, for processes
// that do not see the writes made through the API.
func NewPeriodService(res *backend.BackendResult, cfg *config.Config, manager *cache.Manager, logger *slog.Logger) *services.PeriodService {
	model, err := services.ParseAmountModel(cfg.PeriodAmountModel)
	if err != nil {
		logger.Warn("Unknown amount model, using enumerated", "model", cfg.PeriodAmountModel)
		model = services.AmountEnumerated
	}
	engine := services.NewSummaryEngine(model, logger)
	if manager == nil {
		return services.NewPeriodService(res.Store, engine, nil, logger)
	}
	summaries := cache.NewLRUCache[services.YearSummary](cfg.CacheSize, cfg.CacheTTL)
	manager.Register(summaries)
	return services.NewPeriodService(res.Store, engine, summaries, logger)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
