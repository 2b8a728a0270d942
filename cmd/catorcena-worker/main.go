package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"catorcena/internal/amqp"
	"catorcena/internal/cli"
	"catorcena/internal/config"
	"catorcena/internal/sheets"
	sheetscsv "catorcena/internal/sheets/csv"
	gsheet "catorcena/internal/sheets/google"
	"catorcena/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting catorcena-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer res.Cleanup()

	// The API process writes to the same store, so every export reads it
	// afresh.
	svc := cli.NewPeriodService(res, cfg, nil, logger)

	writer, err := newRowWriter(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize export writer", "error", err)
		os.Exit(1)
	}
	exporter := worker.NewExportWorker(svc, writer, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)

	scheduler := worker.NewScheduler(exporter, worker.SchedulerConfig{Interval: cfg.ExportInterval}, logger)
	if err := scheduler.Start(gctx); err != nil {
		logger.Error("Failed to start export scheduler", "error", err)
		os.Exit(1)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeExportRequests(gctx, exporter.HandleExportMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - only scheduled exports will run", "interval", cfg.ExportInterval)
	}

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

// newRowWriter exports to Google Sheets when a spreadsheet is configured and
// to CSV files under the data directory otherwise.
func newRowWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.RowWriter, error) {
	if cfg.SheetsEnabled() {
		w, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Exporting to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return w, nil
	}
	logger.Info("Google Sheets disabled - exporting CSV files", "dir", cfg.DataDirectory)
	return sheetscsv.New(cfg.DataDirectory), nil
}
