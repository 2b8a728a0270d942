package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"catorcena/internal/core"
	"catorcena/internal/services"

	"github.com/shopspring/decimal"
)

func sampleRows() []services.ExportRow {
	return []services.ExportRow{
		{
			Year:        2025,
			PeriodIndex: 3,
			PeriodStart: core.NewDate(2025, 2, 21),
			PeriodEnd:   core.NewDate(2025, 3, 6),
			Source:      services.SourceCard,
			ItemID:      "visa-0-1",
			Kind:        core.Expense,
			Description: "Laptop, 3 MSI",
			Date:        core.NewDate(2025, 3, 2),
			Amount:      decimal.RequireFromString("333.333"),
			Paid:        true,
		},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleRows()); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	row := records[1]
	if row[1] != "4" {
		t.Errorf("period column = %s, want 4 (1-based)", row[1])
	}
	if row[7] != "Laptop, 3 MSI" {
		t.Errorf("description = %q", row[7])
	}
	if row[9] != "333.33" {
		t.Errorf("amount = %s, want 333.33", row[9])
	}
	if row[10] != "true" {
		t.Errorf("paid = %s", row[10])
	}
}

func TestWriterWriteRows(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "exports"))

	if err := w.WriteRows(context.Background(), "2025 Catorcenas", sampleRows()); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "exports", "2025 Catorcenas.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("year,period,")) {
		t.Errorf("unexpected content: %s", data)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "exports"))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriterRejectsPathNames(t *testing.T) {
	w := New(t.TempDir())
	for _, name := range []string{"", "../x", `a\b`} {
		if err := w.WriteRows(context.Background(), name, nil); err == nil {
			t.Errorf("WriteRows(%q) should fail", name)
		}
	}
}
