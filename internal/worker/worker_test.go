package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"catorcena/internal/amqp"
	"catorcena/internal/cache"
	"catorcena/internal/core"
	"catorcena/internal/services"
	sheetsmem "catorcena/internal/sheets/memory"
	"catorcena/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func newTestService() *services.PeriodService {
	store := memory.New(core.Snapshot{
		Movements: []core.MovementRecord{{
			ID: "m1", Kind: "income", Amount: decimal.NewFromInt(15000), Description: "Sueldo",
			RecurrenceSpec: core.RecurrenceSpec{Recurring: true, Frequency: "biweekly", StartDate: "2025-01-10"},
		}},
		Cards: []core.CardRecord{{
			ID: "c1", Name: "Oro", CutOffDay: 10, GracePeriodDays: 20,
			Charges: []core.ChargeRecord{{Description: "Laptop", Amount: decimal.NewFromInt(3000), PurchaseDate: "2025-01-15", IsInstallment: true, InstallmentCount: 3}},
		}},
	})
	return services.NewPeriodService(store,
		services.NewSummaryEngine(services.AmountEnumerated, nil),
		cache.NewLRUCache[services.YearSummary](4, time.Minute), nil)
}

type namedWriter struct {
	*sheetsmem.Writer
}

func (namedWriter) SheetFor(year int) string { return fmt.Sprintf("Export %d", year) }

type failingWriter struct{}

func (failingWriter) WriteRows(context.Context, string, []services.ExportRow) error {
	return errors.New("quota exceeded")
}

type failingSource struct{}

func (failingSource) YearSummary(context.Context, int) (services.YearSummary, error) {
	return services.YearSummary{}, errors.New("storage down")
}

func TestExportWorker_HandleExportMessage(t *testing.T) {
	svc := newTestService()
	writer := sheetsmem.New()
	w := NewExportWorker(svc, writer, nil)

	if err := w.HandleExportMessage(context.Background(), amqp.NewExportRequestMessage(2025)); err != nil {
		t.Fatalf("HandleExportMessage() error = %v", err)
	}

	rows, ok := writer.Rows("2025")
	if !ok {
		t.Fatal("sheet 2025 was not written")
	}
	ys, err := svc.YearSummary(context.Background(), 2025)
	if err != nil {
		t.Fatal(err)
	}
	if want := len(services.ExportRows(ys.Periods)); len(rows) != want {
		t.Errorf("got %d rows, want %d", len(rows), want)
	}
	// 26 salary occurrences plus 3 cuotas
	if len(rows) != 29 {
		t.Errorf("got %d rows, want 29", len(rows))
	}
}

func TestExportWorker_UsesWriterSheetNames(t *testing.T) {
	writer := namedWriter{sheetsmem.New()}
	w := NewExportWorker(newTestService(), writer, nil)

	if err := w.ExportYear(context.Background(), 2026); err != nil {
		t.Fatalf("ExportYear() error = %v", err)
	}
	if _, ok := writer.Rows("Export 2026"); !ok {
		t.Error("expected sheet named by the writer")
	}
}

func TestExportWorker_Errors(t *testing.T) {
	ctx := context.Background()

	if err := NewExportWorker(newTestService(), sheetsmem.New(), nil).HandleExportMessage(ctx, nil); err == nil {
		t.Error("nil message should fail")
	}
	if err := NewExportWorker(failingSource{}, sheetsmem.New(), nil).ExportYear(ctx, 2025); err == nil {
		t.Error("source failure should propagate")
	}
	if err := NewExportWorker(newTestService(), failingWriter{}, nil).ExportYear(ctx, 2025); err == nil {
		t.Error("writer failure should propagate")
	}
}

type countingExporter struct {
	mu    sync.Mutex
	years []int
	done  chan struct{}
}

func (e *countingExporter) ExportYear(_ context.Context, year int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.years = append(e.years, year)
	if len(e.years) == 1 {
		close(e.done)
	}
	return nil
}

func TestScheduler_Lifecycle(t *testing.T) {
	exp := &countingExporter{done: make(chan struct{})}
	s := NewScheduler(exp, SchedulerConfig{
		Interval: time.Hour,
		Now:      func() time.Time { return time.Date(2027, 3, 1, 12, 0, 0, 0, time.UTC) },
	}, nil)

	if s.IsRunning() {
		t.Fatal("scheduler should not be running initially")
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	select {
	case <-exp.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an export on startup")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}

	exp.mu.Lock()
	defer exp.mu.Unlock()
	if exp.years[0] != 2027 {
		t.Errorf("exported year %d, want 2027", exp.years[0])
	}
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s := NewScheduler(&countingExporter{done: make(chan struct{})}, SchedulerConfig{}, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() on idle scheduler = %v", err)
	}
	if s.config.Interval != time.Hour {
		t.Errorf("default interval = %v", s.config.Interval)
	}
}
