package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"catorcena/internal/services"
	ports "catorcena/internal/sheets"
)

// Writer keeps exported sheets in memory.
type Writer struct {
	mu     sync.Mutex
	sheets map[string][]services.ExportRow
	writes int
}

var _ ports.RowWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{sheets: make(map[string][]services.ExportRow)}
}

// WriteRows replaces the named sheet.
func (w *Writer) WriteRows(_ context.Context, sheetName string, rows []services.ExportRow) error {
	if strings.TrimSpace(sheetName) == "" {
		return errors.New("empty sheet name")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[sheetName] = append([]services.ExportRow(nil), rows...)
	w.writes++
	return nil
}

// Rows returns a copy of the named sheet.
func (w *Writer) Rows(sheetName string) ([]services.ExportRow, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[sheetName]
	return append([]services.ExportRow(nil), rows...), ok
}

// Writes counts successful WriteRows calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
