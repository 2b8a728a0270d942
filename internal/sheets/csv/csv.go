// Package csv writes export rows as CSV files, one file per sheet.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"catorcena/internal/services"
	ports "catorcena/internal/sheets"
)

// Writer stores each sheet as <dir>/<sheet>.csv.
type Writer struct {
	dir string
}

var _ ports.RowWriter = (*Writer)(nil)

func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Encode writes the header and rows to w.
func Encode(w io.Writer, rows []services.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(services.ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("write row %s: %w", r.ItemID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRows replaces the sheet's file. The file is written next to its
// final path and renamed into place.
func (w *Writer) WriteRows(_ context.Context, sheetName string, rows []services.ExportRow) error {
	name := strings.TrimSpace(sheetName)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return errors.New("invalid sheet name")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	final := filepath.Join(w.dir, name+".csv")
	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}
