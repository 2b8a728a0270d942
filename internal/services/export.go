package services

import (
	"strconv"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

// ExportRow is one item of one period, flattened for spreadsheets.
type ExportRow struct {
	Year        int
	PeriodIndex int
	PeriodStart core.Date
	PeriodEnd   core.Date
	Source      string
	ItemID      string
	Kind        core.Kind
	Description string
	Date        core.Date
	Amount      decimal.Decimal
	Paid        bool
}

// ExportHeader names the columns of ExportRow.Strings.
var ExportHeader = []string{
	"year", "period", "period_start", "period_end", "source", "item_id",
	"kind", "description", "date", "amount", "paid",
}

// Strings renders the row. The amount is rounded to cents here and nowhere
// earlier.
func (r ExportRow) Strings() []string {
	return []string{
		strconv.Itoa(r.Year),
		strconv.Itoa(r.PeriodIndex + 1),
		r.PeriodStart.String(),
		r.PeriodEnd.String(),
		r.Source,
		r.ItemID,
		string(r.Kind),
		r.Description,
		r.Date.String(),
		core.FormatAmount(core.RoundCents(r.Amount)),
		strconv.FormatBool(r.Paid),
	}
}

// ExportRows flattens summaries into one row per period item, in period
// order and display order within each period.
func ExportRows(summaries []PeriodSummary) []ExportRow {
	var rows []ExportRow
	for _, s := range summaries {
		for _, it := range s.Items() {
			rows = append(rows, ExportRow{
				Year:        s.Year,
				PeriodIndex: s.Period.Index,
				PeriodStart: s.Period.Start,
				PeriodEnd:   s.Period.End,
				Source:      it.Source,
				ItemID:      it.ItemID,
				Kind:        it.Kind,
				Description: it.Description,
				Date:        it.Date,
				Amount:      it.Amount,
				Paid:        it.Paid,
			})
		}
	}
	return rows
}
