package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"catorcena/internal/amqp"
	"catorcena/internal/cache"
	"catorcena/internal/cli"
	apphttp "catorcena/internal/http"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer res.Cleanup()

	cacheManager := cache.NewManager(logger)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	svc := cli.NewPeriodService(res, cfg, cacheManager, logger)

	// Export requests are optional; without a broker POST /api/export answers 503.
	opts := apphttp.Options{Logger: logger}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, export requests disabled", "error", err)
		} else {
			defer client.Close()
			opts.Publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - export requests will be rejected")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting catorcena server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amount_model", cfg.PeriodAmountModel)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
