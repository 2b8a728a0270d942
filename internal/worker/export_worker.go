package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"catorcena/internal/amqp"
	"catorcena/internal/services"
	"catorcena/internal/sheets"
)

// YearSource computes the summary of a whole year.
type YearSource interface {
	YearSummary(ctx context.Context, year int) (services.YearSummary, error)
}

// ExportWorker flattens year summaries and hands them to a sheet writer.
type ExportWorker struct {
	source YearSource
	writer sheets.RowWriter
	logger *slog.Logger
}

func NewExportWorker(source YearSource, writer sheets.RowWriter, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{source: source, writer: writer, logger: logger}
}

// HandleExportMessage processes a single export request from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	if msg == nil {
		return errors.New("nil export message")
	}
	w.logger.InfoContext(ctx, "Processing export request",
		"year", msg.Year,
		"requested_at", msg.RequestedAt)
	return w.ExportYear(ctx, msg.Year)
}

// ExportYear writes every item of every period of year into the year's sheet.
func (w *ExportWorker) ExportYear(ctx context.Context, year int) error {
	ys, err := w.source.YearSummary(ctx, year)
	if err != nil {
		return fmt.Errorf("year summary %d: %w", year, err)
	}
	rows := services.ExportRows(ys.Periods)

	sheet := w.sheetFor(year)
	if err := w.writer.WriteRows(ctx, sheet, rows); err != nil {
		w.logger.ErrorContext(ctx, "Failed to write export",
			"year", year,
			"sheet", sheet,
			"error", err)
		return fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	if len(ys.Warnings) > 0 {
		w.logger.WarnContext(ctx, "Exported year has skipped records",
			"year", year,
			"warnings", len(ys.Warnings))
	}
	w.logger.InfoContext(ctx, "Export completed",
		"year", year,
		"sheet", sheet,
		"rows", len(rows))
	return nil
}

// sheetFor asks the writer for its naming scheme when it has one.
func (w *ExportWorker) sheetFor(year int) string {
	if namer, ok := w.writer.(interface{ SheetFor(year int) string }); ok {
		return namer.SheetFor(year)
	}
	return strconv.Itoa(year)
}
