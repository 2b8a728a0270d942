package sheets

import (
	"context"

	"catorcena/internal/services"
)

// Ports for outbound adapters.
type (
	// RowWriter replaces the content of a named sheet with the given rows.
	RowWriter interface {
		WriteRows(ctx context.Context, sheetName string, rows []services.ExportRow) error
	}
)
