package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"catorcena/internal/services"
	ports "catorcena/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Writer exports period rows into a Google spreadsheet, one sheet per year.
type Writer struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *slog.Logger
}

var _ ports.RowWriter = (*Writer)(nil)

// NewFromEnv creates a Sheets writer using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Catorcenas"), used as the base name
// that each export prefixes with its year.
func NewFromEnv(ctx context.Context, logger *slog.Logger) (*Writer, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	return New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"), logger)
}

func New(ctx context.Context, spreadsheetID, sheetBase string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Catorcenas"
	}
	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Writer{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase, logger: logger}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, logger *slog.Logger) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// SheetFor returns the sheet name used for year's export.
func (w *Writer) SheetFor(year int) string {
	return yearPrefixedName(w.sheetBase, year)
}

// WriteRows clears the sheet and writes the header followed by rows.
func (w *Writer) WriteRows(ctx context.Context, sheetName string, rows []services.ExportRow) error {
	if w.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(sheetName) == "" {
		return errors.New("empty sheet name")
	}

	clearRange := fmt.Sprintf("%s!A:%s", sheetName, lastColumn())
	_, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	vr := &gsheet.ValueRange{Values: toValues(rows)}
	_, err = w.svc.Spreadsheets.Values.Update(w.spreadsheetID, sheetName+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", sheetName, err)
	}

	w.logger.InfoContext(ctx, "Rows written to Google Sheets",
		"sheet", sheetName,
		"rows", len(rows))
	return nil
}

func toValues(rows []services.ExportRow) [][]any {
	values := make([][]any, 0, len(rows)+1)
	values = append(values, toAny(services.ExportHeader))
	for _, r := range rows {
		values = append(values, toAny(r.Strings()))
	}
	return values
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// lastColumn is the letter of the last export column.
func lastColumn() string {
	return string(rune('A' + len(services.ExportHeader) - 1))
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
