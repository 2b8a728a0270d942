package memory

import (
	"context"
	"testing"

	"catorcena/internal/services"
)

func TestWriterReplacesSheet(t *testing.T) {
	w := New()
	ctx := context.Background()

	if err := w.WriteRows(ctx, "2025", []services.ExportRow{{ItemID: "a"}, {ItemID: "b"}}); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if err := w.WriteRows(ctx, "2025", []services.ExportRow{{ItemID: "c"}}); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	rows, ok := w.Rows("2025")
	if !ok || len(rows) != 1 || rows[0].ItemID != "c" {
		t.Fatalf("unexpected rows: %+v ok=%v", rows, ok)
	}
	if w.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", w.Writes())
	}
	if _, ok := w.Rows("2026"); ok {
		t.Error("unwritten sheet should be missing")
	}
}

func TestWriterRejectsEmptySheetName(t *testing.T) {
	if err := New().WriteRows(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error for empty sheet name")
	}
}
