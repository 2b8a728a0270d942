package services

import (
	"sort"

	"catorcena/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
	monthsPer   = decimal.NewFromInt(12)
)

// YieldCapital is the capital yield accrues on: one-off income minus one-off
// expense dated on or before asOf, settled yield included. Recurring
// movements are left out. Negative capital earns nothing and a cap, when
// enabled, bounds the result.
func YieldCapital(acct core.DebitAccount, asOf core.Date) decimal.Decimal {
	capital := decimal.Zero
	for _, m := range acct.Movements {
		oneOff, ok := m.Schedule.(core.OneOff)
		if !ok || oneOff.Date.After(asOf) {
			continue
		}
		capital = capital.Add(m.Kind.Signed(m.Amount))
	}
	if capital.IsNegative() {
		capital = decimal.Zero
	}
	if acct.Yield.Capped {
		capital = decimal.Min(capital, acct.Yield.Cap)
	}
	return capital
}

// YieldRate is the rate applied per accrual step.
func YieldRate(cfg core.YieldConfig) decimal.Decimal {
	r := cfg.AnnualRatePercent.Div(hundred)
	if cfg.Accrual == core.Monthly {
		return r.Div(monthsPer)
	}
	return r.Div(daysPerYear)
}

// yieldSteps walks [from, asOf) in daily or monthly steps. Monthly steps keep
// the day of from, clamped per month.
func yieldSteps(cfg core.YieldConfig, asOf core.Date) []core.Date {
	from := cfg.LastAccrualDate
	var steps []core.Date
	if cfg.Accrual == core.Monthly {
		for k := 0; ; k++ {
			d := core.MonthDate(from.Year(), from.Month()+k, from.Day())
			if !d.Before(asOf) {
				break
			}
			steps = append(steps, d)
		}
		return steps
	}
	for d := from; d.Before(asOf); d = d.AddDays(1) {
		steps = append(steps, d)
	}
	return steps
}

func settledYieldDates(acct core.DebitAccount) map[core.Date]bool {
	settled := make(map[core.Date]bool)
	for _, m := range acct.Movements {
		if !m.IsYield {
			continue
		}
		if d, ok := m.Schedule.(core.OneOff); ok {
			settled[d.Date] = true
		}
	}
	return settled
}

// AccrueYield returns the projected yield entries from the last accrual date
// up to asOf, one per step. Steps that already have a settled entry are not
// emitted again.
func AccrueYield(acct core.DebitAccount, asOf core.Date) []core.YieldEntry {
	cfg := acct.Yield
	if !cfg.Enabled || cfg.AnnualRatePercent.IsZero() || cfg.LastAccrualDate.IsEmpty() {
		return nil
	}
	amount := YieldCapital(acct, asOf).Mul(YieldRate(cfg))
	settled := settledYieldDates(acct)

	var entries []core.YieldEntry
	for _, d := range yieldSteps(cfg, asOf) {
		if settled[d] {
			continue
		}
		entries = append(entries, core.YieldEntry{
			ID:        "rend-" + d.String(),
			AccountID: acct.ID,
			Date:      d,
			Amount:    amount,
			State:     core.YieldProjected,
		})
	}
	return entries
}

// SettleYield turns the current projection into settled entries with fresh
// ids. Persisting them and decoding the account again makes a second call
// return nothing.
func SettleYield(acct core.DebitAccount, asOf core.Date) []core.YieldEntry {
	projected := AccrueYield(acct, asOf)
	for i := range projected {
		projected[i].ID = uuid.NewString()
		projected[i].State = core.YieldSettled
	}
	return projected
}

// ProjectCompound compounds balance daily at annualRatePercent from today to
// target, whatever the account's accrual frequency. A target on or before
// today returns balance unchanged.
func ProjectCompound(balance, annualRatePercent decimal.Decimal, today, target core.Date) decimal.Decimal {
	days := today.DaysUntil(target)
	if days <= 0 {
		return balance
	}
	factor := decimal.NewFromInt(1).Add(annualRatePercent.Div(hundred).Div(daysPerYear))
	return balance.Mul(powRounded(factor, days))
}

// powRounded raises base to n by squaring, rounding each product so the
// digit count stays bounded over long horizons.
func powRounded(base decimal.Decimal, n int) decimal.Decimal {
	const places = 24
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(places)
		}
		base = base.Mul(base).Round(places)
		n >>= 1
	}
	return result
}

// SeriesPoint aggregates one day of a debit account's chart.
type SeriesPoint struct {
	Date           core.Date       `json:"date"`
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	SettledYield   decimal.Decimal `json:"settled_yield"`
	ProjectedYield decimal.Decimal `json:"projected_yield"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// SeriesTotals sums a series. Balance counts income and settled yield
// against expense; projected yield is display-only.
type SeriesTotals struct {
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	SettledYield   decimal.Decimal `json:"settled_yield"`
	ProjectedYield decimal.Decimal `json:"projected_yield"`
	Balance        decimal.Decimal `json:"balance"`
}

// DebitSeries is the yield time series of one account.
type DebitSeries struct {
	AccountID string        `json:"account_id"`
	Points    []SeriesPoint `json:"points"`
	Totals    SeriesTotals  `json:"totals"`
}

// DateFilter restricts a series to [From, To]; empty bounds are open.
type DateFilter struct {
	From core.Date
	To   core.Date
}

func (f DateFilter) Allows(d core.Date) bool {
	if !f.From.IsEmpty() && d.Before(f.From) {
		return false
	}
	if !f.To.IsEmpty() && d.After(f.To) {
		return false
	}
	return true
}

// BuildDebitSeries expands recurring debit movements into dated occurrences
// up to asOf, adds the projected yield, and aggregates per day. The running
// balance only moves with income, settled yield and expense, and is computed
// over the whole history before the filter is applied.
func BuildDebitSeries(acct core.DebitAccount, asOf core.Date, filter DateFilter) DebitSeries {
	points := make(map[core.Date]*SeriesPoint)
	point := func(d core.Date) *SeriesPoint {
		p, ok := points[d]
		if !ok {
			p = &SeriesPoint{Date: d}
			points[d] = p
		}
		return p
	}

	for _, m := range acct.Movements {
		var dates []core.Date
		if oneOff, ok := m.Schedule.(core.OneOff); ok {
			dates = []core.Date{oneOff.Date}
		} else {
			dates = Occurrences(m.Schedule, m.Schedule.Start(), asOf)
		}
		for _, d := range dates {
			p := point(d)
			switch {
			case m.IsYield:
				p.SettledYield = p.SettledYield.Add(m.Amount)
			case m.Kind == core.Income:
				p.Income = p.Income.Add(m.Amount)
			default:
				p.Expense = p.Expense.Add(m.Amount)
			}
		}
	}
	for _, e := range AccrueYield(acct, asOf) {
		p := point(e.Date)
		p.ProjectedYield = p.ProjectedYield.Add(e.Amount)
	}

	dates := make([]core.Date, 0, len(points))
	for d := range points {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	series := DebitSeries{AccountID: acct.ID}
	balance := decimal.Zero
	for _, d := range dates {
		p := points[d]
		balance = balance.Add(p.Income).Add(p.SettledYield).Sub(p.Expense)
		p.RunningBalance = balance
		if !filter.Allows(d) {
			continue
		}
		series.Points = append(series.Points, *p)
		series.Totals.Income = series.Totals.Income.Add(p.Income)
		series.Totals.Expense = series.Totals.Expense.Add(p.Expense)
		series.Totals.SettledYield = series.Totals.SettledYield.Add(p.SettledYield)
		series.Totals.ProjectedYield = series.Totals.ProjectedYield.Add(p.ProjectedYield)
	}
	series.Totals.Balance = series.Totals.Income.Add(series.Totals.SettledYield).Sub(series.Totals.Expense)
	return series
}
