package services

import (
	"context"
	"fmt"
	"log/slog"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Ledger is a decoded snapshot: typed values plus a warning for every
// record that could not be decoded and is therefore left out.
type Ledger struct {
	Movements     []core.Movement
	Cards         []core.CardAccount
	DebitAccounts []core.DebitAccount
	Warnings      []core.Warning
}

// DecodeSnapshot decodes every record of s. It never fails: broken records
// are reported as warnings and excluded.
func DecodeSnapshot(s core.Snapshot) Ledger {
	var l Ledger
	for _, r := range s.Movements {
		m, err := r.Decode()
		if err != nil {
			l.Warnings = append(l.Warnings, core.Warning{Source: "movement", ItemID: r.ID, Err: err})
			continue
		}
		l.Movements = append(l.Movements, m)
	}
	for _, r := range s.Cards {
		card, warnings, err := r.Decode()
		l.Warnings = append(l.Warnings, warnings...)
		if err != nil {
			l.Warnings = append(l.Warnings, core.Warning{Source: "card", ItemID: r.ID, Err: err})
			continue
		}
		l.Cards = append(l.Cards, card)
	}
	for _, r := range s.DebitAccounts {
		acct, warnings := r.Decode()
		l.Warnings = append(l.Warnings, warnings...)
		l.DebitAccounts = append(l.DebitAccounts, acct)
	}
	return l
}

// Card returns the card with the given id.
func (l Ledger) Card(id string) (core.CardAccount, error) {
	for _, c := range l.Cards {
		if c.ID == id {
			return c, nil
		}
	}
	return core.CardAccount{}, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
}

// DebitAccount returns the debit account with the given id.
func (l Ledger) DebitAccount(id string) (core.DebitAccount, error) {
	for _, a := range l.DebitAccounts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.DebitAccount{}, fmt.Errorf("debit account %s: %w", id, core.ErrNotFound)
}

// Item sources.
const (
	SourceMovement = "movement"
	SourceCard     = "card"
)

// PeriodItem is one line of a period: a movement or a card obligation.
type PeriodItem struct {
	ItemID      string          `json:"item_id"`
	Source      string          `json:"source"`
	Kind        core.Kind       `json:"kind"`
	Description string          `json:"description"`
	Date        core.Date       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   core.Frequency  `json:"frequency,omitempty"`
	CardID      string          `json:"card_id,omitempty"`
	Installment string          `json:"installment,omitempty"` // "n/N" for MSI cuotas
	Paid        bool            `json:"paid"`
}

// CardTotal is a card's obligations inside one period.
type CardTotal struct {
	CardID string          `json:"card_id"`
	Name   string          `json:"name"`
	Total  decimal.Decimal `json:"total"`
}

// PeriodSummary aggregates one period.
type PeriodSummary struct {
	Year                  int             `json:"year"`
	Period                core.Period     `json:"period"`
	IncomeTotal           decimal.Decimal `json:"income_total"`
	OneOffExpenseTotal    decimal.Decimal `json:"one_off_expense_total"`
	RecurringExpenseTotal decimal.Decimal `json:"recurring_expense_total"`
	ExpenseTotal          decimal.Decimal `json:"expense_total"`
	CardChargeTotal       decimal.Decimal `json:"card_charge_total"`
	Balance               decimal.Decimal `json:"balance"`
	RunningBalance        decimal.Decimal `json:"running_balance"`
	Income                []PeriodItem    `json:"income"`
	OneOffExpenses        []PeriodItem    `json:"one_off_expenses"`
	RecurringExpenses     []PeriodItem    `json:"recurring_expenses"`
	CardDues              []PeriodItem    `json:"card_dues"`
	CardTotals            []CardTotal     `json:"card_totals"`
}

// Items returns every line of the period in display order.
func (s PeriodSummary) Items() []PeriodItem {
	items := make([]PeriodItem, 0, len(s.Income)+len(s.OneOffExpenses)+len(s.RecurringExpenses)+len(s.CardDues))
	items = append(items, s.Income...)
	items = append(items, s.OneOffExpenses...)
	items = append(items, s.RecurringExpenses...)
	return append(items, s.CardDues...)
}

// YearSummary is the whole grid of one year.
type YearSummary struct {
	Year     int             `json:"year"`
	Model    AmountModel     `json:"amount_model"`
	Periods  []PeriodSummary `json:"periods"`
	Warnings []core.Warning  `json:"warnings"`
}

// PaidSet answers whether an item occurrence is marked paid.
type PaidSet map[core.PaidKey]bool

// SummaryEngine computes period summaries over a decoded ledger.
type SummaryEngine struct {
	model  AmountModel
	logger *slog.Logger
}

// NewSummaryEngine creates an engine valuing recurring movements with model.
func NewSummaryEngine(model AmountModel, logger *slog.Logger) *SummaryEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = AmountEnumerated
	}
	return &SummaryEngine{model: model, logger: logger}
}

// Model returns the amount model in use.
func (e *SummaryEngine) Model() AmountModel { return e.model }

// Year computes the 26 period summaries of year concurrently, then fills the
// running balance in period order.
func (e *SummaryEngine) Year(ctx context.Context, ledger Ledger, year int, paid PaidSet) (YearSummary, error) {
	periods := GeneratePeriods(year)
	summaries := make([]PeriodSummary, len(periods))
	periodWarnings := make([][]core.Warning, len(periods))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range periods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summaries[i], periodWarnings[i] = e.Period(ledger, year, p, paid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return YearSummary{}, fmt.Errorf("summarise year %d: %w", year, err)
	}

	running := decimal.Zero
	for i := range summaries {
		running = running.Add(summaries[i].Balance)
		summaries[i].RunningBalance = running
	}

	warnings := append([]core.Warning(nil), ledger.Warnings...)
	seen := make(map[string]bool)
	for _, ws := range periodWarnings {
		for _, w := range ws {
			if key := w.Error(); !seen[key] {
				seen[key] = true
				warnings = append(warnings, w)
			}
		}
	}
	for _, w := range warnings {
		e.logger.WarnContext(ctx, "Record excluded from period computation",
			"year", year,
			"source", w.Source,
			"item_id", w.ItemID,
			"error", w.Err)
	}

	return YearSummary{Year: year, Model: e.model, Periods: summaries, Warnings: warnings}, nil
}

// Period summarises one period. It reads the ledger only.
func (e *SummaryEngine) Period(ledger Ledger, year int, p core.Period, paid PaidSet) (PeriodSummary, []core.Warning) {
	s := PeriodSummary{
		Year:                  year,
		Period:                p,
		IncomeTotal:           decimal.Zero,
		OneOffExpenseTotal:    decimal.Zero,
		RecurringExpenseTotal: decimal.Zero,
		CardChargeTotal:       decimal.Zero,
	}
	isPaid := func(id string) bool {
		return paid[core.PaidKey{Year: year, PeriodIndex: p.Index, ItemID: id}]
	}

	for _, m := range ledger.Movements {
		if !BelongsToPeriod(m.Schedule, p) {
			continue
		}
		item := PeriodItem{
			ItemID:      m.ID,
			Source:      SourceMovement,
			Kind:        m.Kind,
			Description: m.Description,
			Date:        p.Start,
			Amount:      AmountInPeriod(m.Schedule, m.Amount, p, e.model),
			Frequency:   m.Schedule.Frequency(),
			Paid:        isPaid(m.ID),
		}
		if occ := Occurrences(m.Schedule, p.Start, p.End); len(occ) > 0 {
			item.Date = occ[0]
		}
		switch {
		case m.Kind == core.Income:
			s.Income = append(s.Income, item)
			s.IncomeTotal = s.IncomeTotal.Add(item.Amount)
		case core.IsRecurring(m.Schedule):
			s.RecurringExpenses = append(s.RecurringExpenses, item)
			s.RecurringExpenseTotal = s.RecurringExpenseTotal.Add(item.Amount)
		default:
			s.OneOffExpenses = append(s.OneOffExpenses, item)
			s.OneOffExpenseTotal = s.OneOffExpenseTotal.Add(item.Amount)
		}
	}

	var warnings []core.Warning
	for _, card := range ledger.Cards {
		dues, ws := CardDuesInPeriod(card, p)
		warnings = append(warnings, ws...)
		if len(dues) == 0 {
			continue
		}
		total := CardTotal{CardID: card.ID, Name: card.Name, Total: decimal.Zero}
		for _, d := range dues {
			item := PeriodItem{
				ItemID:      d.ItemID,
				Source:      SourceCard,
				Kind:        core.Expense,
				Description: d.Description,
				Date:        d.DueDate,
				Amount:      d.Amount,
				CardID:      card.ID,
				Paid:        isPaid(d.ItemID),
			}
			if d.Installment {
				item.Installment = fmt.Sprintf("%d/%d", d.InstallmentNumber, d.InstallmentCount)
			}
			s.CardDues = append(s.CardDues, item)
			total.Total = total.Total.Add(d.Amount)
		}
		s.CardTotals = append(s.CardTotals, total)
		s.CardChargeTotal = s.CardChargeTotal.Add(total.Total)
	}

	s.ExpenseTotal = s.OneOffExpenseTotal.Add(s.RecurringExpenseTotal)
	s.Balance = s.IncomeTotal.Sub(s.ExpenseTotal).Sub(s.CardChargeTotal)
	return s, warnings
}
