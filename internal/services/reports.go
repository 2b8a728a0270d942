package services

import (
	"fmt"
	"sort"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

const originGeneral = "general"

func creditOrigin(card core.CardAccount) string { return "credit: " + card.Name }
func debitOrigin(acct core.DebitAccount) string { return "debit: " + acct.Name }

// RecurringRow is one recurring expense commitment.
type RecurringRow struct {
	Origin      string          `json:"origin"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   string          `json:"frequency"`
	StartDate   core.Date       `json:"start_date"`
	Installment bool            `json:"installment"`
}

type RecurringReport struct {
	Rows             []RecurringRow  `json:"rows"`
	Total            decimal.Decimal `json:"total"`
	InstallmentTotal decimal.Decimal `json:"installment_total"`
}

// RecurringExpenses lists every recurring expense: general and debit
// recurring expenses, recurring card charges, and MSI plans valued at their
// monthly cuota. Rows are ordered by start date.
func RecurringExpenses(l Ledger) RecurringReport {
	var rows []RecurringRow
	for _, m := range l.Movements {
		if m.Kind == core.Expense && core.IsRecurring(m.Schedule) {
			rows = append(rows, RecurringRow{
				Origin:      originGeneral,
				Description: m.Description,
				Amount:      m.Amount,
				Frequency:   string(m.Schedule.Frequency()),
				StartDate:   m.Schedule.Start(),
			})
		}
	}
	for _, card := range l.Cards {
		for _, ch := range card.Charges {
			switch {
			case ch.IsInstallment:
				dues, err := InstallmentDues(ch, card)
				if err != nil {
					continue
				}
				rows = append(rows, RecurringRow{
					Origin:      creditOrigin(card),
					Description: ch.Description,
					Amount:      dues[0].Amount,
					Frequency:   fmt.Sprintf("MSI (%d)", ch.InstallmentCount),
					StartDate:   ch.PurchaseDate,
					Installment: true,
				})
			case core.IsRecurring(ch.Schedule):
				rows = append(rows, RecurringRow{
					Origin:      creditOrigin(card),
					Description: ch.Description,
					Amount:      ch.Amount,
					Frequency:   string(ch.Schedule.Frequency()),
					StartDate:   ch.Schedule.Start(),
				})
			}
		}
	}
	for _, acct := range l.DebitAccounts {
		for _, m := range acct.Movements {
			if m.Kind == core.Expense && core.IsRecurring(m.Schedule) {
				rows = append(rows, RecurringRow{
					Origin:      debitOrigin(acct),
					Description: m.Description,
					Amount:      m.Amount,
					Frequency:   string(m.Schedule.Frequency()),
					StartDate:   m.Schedule.Start(),
				})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StartDate.Before(rows[j].StartDate) })

	report := RecurringReport{Rows: rows, Total: decimal.Zero, InstallmentTotal: decimal.Zero}
	for _, r := range rows {
		report.Total = report.Total.Add(r.Amount)
		if r.Installment {
			report.InstallmentTotal = report.InstallmentTotal.Add(r.Amount)
		}
	}
	return report
}

// InstallmentRow is the status of one MSI purchase.
type InstallmentRow struct {
	CardName     string    `json:"card_name"`
	PurchaseDate core.Date `json:"purchase_date"`
	InstallmentStatus
}

type InstallmentReport struct {
	Rows       []InstallmentRow `json:"rows"`
	TotalSpent decimal.Decimal  `json:"total_spent"`
	TotalCuota decimal.Decimal  `json:"total_cuota"`
}

// Installments reports every MSI purchase across cards as of today, ordered
// by purchase date.
func Installments(l Ledger, today core.Date) InstallmentReport {
	var rows []InstallmentRow
	for _, card := range l.Cards {
		for _, ch := range card.Charges {
			if !ch.IsInstallment {
				continue
			}
			st, err := GetInstallmentStatus(ch, card, today)
			if err != nil {
				continue
			}
			rows = append(rows, InstallmentRow{CardName: card.Name, PurchaseDate: ch.PurchaseDate, InstallmentStatus: st})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PurchaseDate.Before(rows[j].PurchaseDate) })

	report := InstallmentReport{Rows: rows, TotalSpent: decimal.Zero, TotalCuota: decimal.Zero}
	for _, r := range rows {
		report.TotalSpent = report.TotalSpent.Add(r.Total)
		report.TotalCuota = report.TotalCuota.Add(r.Cuota)
	}
	return report
}

// MonthAmount is one point of a monthly series.
type MonthAmount struct {
	Month  string          `json:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
}

// MonthlyInstallmentFlow sums MSI cuotas per purchase-occurrence month, from
// the first month with a cuota to the last. Months in between with nothing
// due appear with zero.
func MonthlyInstallmentFlow(l Ledger) []MonthAmount {
	byMonth := make(map[int]decimal.Decimal)
	first, last := -1, -1
	for _, card := range l.Cards {
		for _, ch := range card.Charges {
			if !ch.IsInstallment {
				continue
			}
			dues, err := InstallmentDues(ch, card)
			if err != nil {
				continue
			}
			for _, d := range dues {
				m := d.PurchaseOccurrence.Year()*12 + d.PurchaseOccurrence.Month() - 1
				byMonth[m] = byMonth[m].Add(d.Amount)
				if first < 0 || m < first {
					first = m
				}
				if m > last {
					last = m
				}
			}
		}
	}
	if len(byMonth) == 0 {
		return nil
	}
	out := make([]MonthAmount, 0, last-first+1)
	for m := first; m <= last; m++ {
		amt, ok := byMonth[m]
		if !ok {
			amt = decimal.Zero
		}
		out = append(out, MonthAmount{Month: fmt.Sprintf("%04d-%02d", m/12, m%12+1), Amount: amt})
	}
	return out
}

// ExpenseMix splits expenses into one-off, recurring, and MSI (valued at the
// monthly cuota). Debit expenses count only when includeDebit is set.
type ExpenseMix struct {
	Normal           decimal.Decimal `json:"normal"`
	Recurring        decimal.Decimal `json:"recurring"`
	InstallmentCuota decimal.Decimal `json:"installment_cuota"`
}

func BuildExpenseMix(l Ledger, includeDebit bool) ExpenseMix {
	mix := ExpenseMix{Normal: decimal.Zero, Recurring: decimal.Zero, InstallmentCuota: decimal.Zero}
	add := func(r core.Recurrence, amount decimal.Decimal) {
		if core.IsRecurring(r) {
			mix.Recurring = mix.Recurring.Add(amount)
		} else {
			mix.Normal = mix.Normal.Add(amount)
		}
	}
	for _, m := range l.Movements {
		if m.Kind == core.Expense {
			add(m.Schedule, m.Amount)
		}
	}
	for _, card := range l.Cards {
		for _, ch := range card.Charges {
			if !ch.IsInstallment {
				add(ch.Schedule, ch.Amount)
				continue
			}
			if dues, err := InstallmentDues(ch, card); err == nil {
				mix.InstallmentCuota = mix.InstallmentCuota.Add(dues[0].Amount)
			}
		}
	}
	if includeDebit {
		for _, acct := range l.DebitAccounts {
			for _, m := range acct.Movements {
				if m.Kind == core.Expense {
					add(m.Schedule, m.Amount)
				}
			}
		}
	}
	return mix
}

// ExpenseRow is one expense record dated by its one-off date, its start
// date when recurring, or its purchase date for card charges.
type ExpenseRow struct {
	Origin      string          `json:"origin"`
	Description string          `json:"description"`
	Date        core.Date       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   string          `json:"frequency,omitempty"`
}

type ExpenseReport struct {
	Rows  []ExpenseRow    `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// ExpensesInRange lists general, card and debit expenses whose base date
// passes filter, ordered by date.
func ExpensesInRange(l Ledger, filter DateFilter) ExpenseReport {
	var rows []ExpenseRow
	add := func(origin, desc string, d core.Date, amount decimal.Decimal, r core.Recurrence) {
		if !filter.Allows(d) {
			return
		}
		rows = append(rows, ExpenseRow{Origin: origin, Description: desc, Date: d, Amount: amount, Frequency: string(r.Frequency())})
	}
	for _, m := range l.Movements {
		if m.Kind == core.Expense {
			add(originGeneral, m.Description, m.Schedule.Start(), m.Amount, m.Schedule)
		}
	}
	for _, card := range l.Cards {
		for _, ch := range card.Charges {
			add(creditOrigin(card), ch.Description, ch.PurchaseDate, ch.Amount, ch.Schedule)
		}
	}
	for _, acct := range l.DebitAccounts {
		for _, m := range acct.Movements {
			if m.Kind == core.Expense {
				add(debitOrigin(acct), m.Description, m.Schedule.Start(), m.Amount, m.Schedule)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	report := ExpenseReport{Rows: rows, Total: decimal.Zero}
	for _, r := range rows {
		report.Total = report.Total.Add(r.Amount)
	}
	return report
}
