// Package services provides the period engine: recurrence matching, card
// billing, installment plans, the period grid, debit yield and summaries.
//
// This file implements the Strategy Pattern for period membership. Each
// recurrence variant has its own matcher that decides whether a schedule
// lands in a period and how many times it counts there.

package services

import (
	"fmt"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

// AmountModel selects how a recurring movement is valued inside a period.
type AmountModel string

const (
	// AmountEnumerated counts the calendar occurrences inside the period.
	AmountEnumerated AmountModel = "enumerated"
	// AmountScaled is the legacy shortcut: daily x14, weekly x2, others x1.
	AmountScaled AmountModel = "scaled"
)

// ParseAmountModel returns the model named s; empty means AmountEnumerated.
func ParseAmountModel(s string) (AmountModel, error) {
	switch AmountModel(s) {
	case "", AmountEnumerated:
		return AmountEnumerated, nil
	case AmountScaled:
		return AmountScaled, nil
	}
	return "", fmt.Errorf("unknown period amount model: %q", s)
}

// PeriodMatcher is the strategy interface for one recurrence variant.
type PeriodMatcher interface {
	// Belongs reports whether the schedule is present in the period.
	Belongs(r core.Recurrence, p core.Period) bool
	// Scale is the legacy per-period multiplier.
	Scale() int64
	// Count is the number of occurrences the schedule has in the period,
	// assuming Belongs already returned true.
	Count(r core.Recurrence, p core.Period) int
}

// OneOffMatcher matches a single dated occurrence.
type OneOffMatcher struct{}

func (OneOffMatcher) Belongs(r core.Recurrence, p core.Period) bool {
	v, ok := r.(core.OneOff)
	return ok && p.Contains(v.Date)
}

func (OneOffMatcher) Scale() int64                          { return 1 }
func (OneOffMatcher) Count(core.Recurrence, core.Period) int { return 1 }

// DailyMatcher treats a started daily recurrence as present for the whole period.
type DailyMatcher struct{}

func (DailyMatcher) Belongs(r core.Recurrence, p core.Period) bool {
	return !r.Start().After(p.End)
}

func (DailyMatcher) Scale() int64 { return core.PeriodLength }

// Count returns the period days on or after the start date.
func (DailyMatcher) Count(r core.Recurrence, p core.Period) int {
	from := core.MaxDate(p.Start, r.Start())
	if from.After(p.End) {
		return 0
	}
	return from.DaysUntil(p.End) + 1
}

// WeeklyMatcher matches a period holding the weekday on or after the start date.
type WeeklyMatcher struct{}

func (m WeeklyMatcher) Belongs(r core.Recurrence, p core.Period) bool {
	return m.Count(r, p) > 0
}

func (WeeklyMatcher) Scale() int64 { return 2 }

func (WeeklyMatcher) Count(r core.Recurrence, p core.Period) int {
	v, ok := r.(core.WeeklyRecurrence)
	if !ok {
		return 0
	}
	n := 0
	first := core.FirstOccurrenceOnOrAfter(core.MaxDate(p.Start, v.StartDate), v.Weekday)
	for d := first; d.OnOrBefore(p.End); d = d.AddDays(7) {
		n++
	}
	return n
}

// BiweeklyMatcher matches periods whose start sits on the 14-day cadence.
type BiweeklyMatcher struct{}

func (BiweeklyMatcher) Belongs(r core.Recurrence, p core.Period) bool {
	diff := r.Start().DaysUntil(p.Start)
	return diff >= 0 && diff%core.PeriodLength == 0
}

func (BiweeklyMatcher) Scale() int64                          { return 1 }
func (BiweeklyMatcher) Count(core.Recurrence, core.Period) int { return 1 }

// MonthlyMatcher checks one candidate: the day of month in the month the
// period starts. A period that straddles two months only sees the first.
type MonthlyMatcher struct{}

func (MonthlyMatcher) Belongs(r core.Recurrence, p core.Period) bool {
	v, ok := r.(core.MonthlyRecurrence)
	if !ok {
		return false
	}
	candidate := core.MonthDate(p.Start.Year(), p.Start.Month(), v.DayOfMonth)
	return p.Contains(candidate) && candidate.OnOrAfter(v.StartDate)
}

func (MonthlyMatcher) Scale() int64                          { return 1 }
func (MonthlyMatcher) Count(core.Recurrence, core.Period) int { return 1 }

// periodMatchers maps recurrence frequencies to their matcher. The one-off
// variant is registered under the empty frequency.
var periodMatchers = map[core.Frequency]PeriodMatcher{
	"":            OneOffMatcher{},
	core.Daily:    DailyMatcher{},
	core.Weekly:   WeeklyMatcher{},
	core.Biweekly: BiweeklyMatcher{},
	core.Monthly:  MonthlyMatcher{},
}

// GetPeriodMatcher returns the matcher for a frequency.
func GetPeriodMatcher(frequency core.Frequency) (PeriodMatcher, error) {
	m, ok := periodMatchers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: no matcher for %q", core.ErrInvalidRecurrenceConfig, frequency)
	}
	return m, nil
}

// BelongsToPeriod reports whether a schedule is present in the period.
// A schedule never belongs to a period that ends before it starts.
func BelongsToPeriod(r core.Recurrence, p core.Period) bool {
	if r == nil || r.Start().After(p.End) {
		return false
	}
	m, err := GetPeriodMatcher(r.Frequency())
	if err != nil {
		return false
	}
	return m.Belongs(r, p)
}

// PeriodAmount is the legacy period-scaled amount: daily x14, weekly x2,
// everything else the raw amount.
func PeriodAmount(r core.Recurrence, amount decimal.Decimal) decimal.Decimal {
	m, err := GetPeriodMatcher(r.Frequency())
	if err != nil {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(m.Scale()))
}

// AmountInPeriod values a schedule inside p under the given model. It returns
// zero when the schedule does not belong to p.
func AmountInPeriod(r core.Recurrence, amount decimal.Decimal, p core.Period, model AmountModel) decimal.Decimal {
	if !BelongsToPeriod(r, p) {
		return decimal.Zero
	}
	if model == AmountScaled {
		return PeriodAmount(r, amount)
	}
	m, _ := GetPeriodMatcher(r.Frequency())
	return amount.Mul(decimal.NewFromInt(int64(m.Count(r, p))))
}

// Occurrences enumerates the calendar dates of r inside [from, to]. Monthly
// dates are computed from the day of month each time so clamping never drifts.
func Occurrences(r core.Recurrence, from, to core.Date) []core.Date {
	if r == nil || to.Before(from) {
		return nil
	}
	var out []core.Date
	switch v := r.(type) {
	case core.OneOff:
		if v.Date.Within(from, to) {
			out = append(out, v.Date)
		}
	case core.DailyRecurrence:
		for d := core.MaxDate(from, v.StartDate); d.OnOrBefore(to); d = d.AddDays(1) {
			out = append(out, d)
		}
	case core.WeeklyRecurrence:
		first := core.FirstOccurrenceOnOrAfter(core.MaxDate(from, v.StartDate), v.Weekday)
		for d := first; d.OnOrBefore(to); d = d.AddDays(7) {
			out = append(out, d)
		}
	case core.BiweeklyRecurrence:
		d := v.StartDate
		if gap := v.StartDate.DaysUntil(from); gap > 0 {
			d = d.AddDays((gap + core.PeriodLength - 1) / core.PeriodLength * core.PeriodLength)
		}
		for ; d.OnOrBefore(to); d = d.AddDays(core.PeriodLength) {
			out = append(out, d)
		}
	case core.MonthlyRecurrence:
		k := 0
		if months := (from.Year()-v.StartDate.Year())*12 + from.Month() - v.StartDate.Month(); months > 1 {
			k = months - 1
		}
		for ; ; k++ {
			d := core.MonthDate(v.StartDate.Year(), v.StartDate.Month()+k, v.DayOfMonth)
			if d.After(to) {
				break
			}
			if d.Before(v.StartDate) || d.Before(from) {
				continue
			}
			out = append(out, d)
		}
	}
	return out
}
