package services

import (
	"testing"
	"time"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

func date(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func period(start core.Date) core.Period { return core.NewPeriod(0, start) }

func TestBelongsToPeriod(t *testing.T) {
	jan10 := period(date(2025, 1, 10)) // Jan 10 - Jan 23
	jan24 := period(date(2025, 1, 24)) // Jan 24 - Feb 6

	tests := []struct {
		name     string
		schedule core.Recurrence
		period   core.Period
		want     bool
	}{
		{"one-off inside", core.OneOff{Date: date(2025, 1, 23)}, jan10, true},
		{"one-off outside", core.OneOff{Date: date(2025, 1, 24)}, jan10, false},
		{"biweekly aligned 28 days", core.BiweeklyRecurrence{StartDate: date(2025, 1, 10)}, period(date(2025, 2, 7)), true},
		{"biweekly misaligned 35 days", core.BiweeklyRecurrence{StartDate: date(2025, 1, 10)}, period(date(2025, 2, 14)), false},
		{"biweekly on its start", core.BiweeklyRecurrence{StartDate: date(2025, 1, 10)}, jan10, true},
		{"biweekly before start", core.BiweeklyRecurrence{StartDate: date(2025, 1, 24)}, jan10, false},
		{"monthly candidate inside", core.MonthlyRecurrence{StartDate: date(2025, 1, 1), DayOfMonth: 15}, jan10, true},
		{"monthly candidate before start", core.MonthlyRecurrence{StartDate: date(2025, 1, 20), DayOfMonth: 15}, jan10, false},
		{"monthly only checks the start month", core.MonthlyRecurrence{StartDate: date(2025, 1, 1), DayOfMonth: 5}, jan24, false},
		{"monthly clamps to february", core.MonthlyRecurrence{StartDate: date(2025, 1, 1), DayOfMonth: 31}, period(date(2025, 2, 21)), true},
		{"weekly weekday after start", core.WeeklyRecurrence{StartDate: date(2025, 1, 15), Weekday: time.Monday}, jan10, true},
		{"weekly weekday only before start", core.WeeklyRecurrence{StartDate: date(2025, 1, 21), Weekday: time.Monday}, jan10, false},
		{"daily started on last day", core.DailyRecurrence{StartDate: date(2025, 1, 23)}, jan10, true},
		{"daily not started", core.DailyRecurrence{StartDate: date(2025, 1, 24)}, jan10, false},
		{"nil schedule", nil, jan10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BelongsToPeriod(tt.schedule, tt.period); got != tt.want {
				t.Errorf("BelongsToPeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBelongsToPeriod_NeverBeforeStart(t *testing.T) {
	start := date(2025, 6, 18)
	schedules := []core.Recurrence{
		core.DailyRecurrence{StartDate: start},
		core.WeeklyRecurrence{StartDate: start, Weekday: time.Sunday},
		core.BiweeklyRecurrence{StartDate: start},
		core.MonthlyRecurrence{StartDate: start, DayOfMonth: 1},
		core.MonthlyRecurrence{StartDate: start, DayOfMonth: 31},
	}
	for _, year := range []int{2024, 2025, 2026} {
		for _, p := range GeneratePeriods(year) {
			if !p.End.Before(start) {
				continue
			}
			for _, s := range schedules {
				if BelongsToPeriod(s, p) {
					t.Errorf("%T belongs to %s which ends before %s", s, p, start)
				}
			}
		}
	}
}

func TestAmountInPeriod(t *testing.T) {
	jan10 := period(date(2025, 1, 10))
	ten := dec("10")

	tests := []struct {
		name       string
		schedule   core.Recurrence
		enumerated string
		scaled     string
	}{
		{"daily full period", core.DailyRecurrence{StartDate: date(2025, 1, 1)}, "140", "140"},
		{"daily started mid period", core.DailyRecurrence{StartDate: date(2025, 1, 15)}, "90", "140"},
		{"weekly two fridays", core.WeeklyRecurrence{StartDate: date(2025, 1, 1), Weekday: time.Friday}, "20", "20"},
		{"weekly one monday after start", core.WeeklyRecurrence{StartDate: date(2025, 1, 15), Weekday: time.Monday}, "10", "20"},
		{"biweekly", core.BiweeklyRecurrence{StartDate: date(2025, 1, 10)}, "10", "10"},
		{"monthly", core.MonthlyRecurrence{StartDate: date(2025, 1, 1), DayOfMonth: 12}, "10", "10"},
		{"one-off", core.OneOff{Date: date(2025, 1, 11)}, "10", "10"},
		{"not in period", core.OneOff{Date: date(2025, 3, 1)}, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountInPeriod(tt.schedule, ten, jan10, AmountEnumerated); !got.Equal(dec(tt.enumerated)) {
				t.Errorf("enumerated = %s, want %s", got, tt.enumerated)
			}
			if got := AmountInPeriod(tt.schedule, ten, jan10, AmountScaled); !got.Equal(dec(tt.scaled)) {
				t.Errorf("scaled = %s, want %s", got, tt.scaled)
			}
		})
	}
}

func TestParseAmountModel(t *testing.T) {
	for in, want := range map[string]AmountModel{"": AmountEnumerated, "enumerated": AmountEnumerated, "scaled": AmountScaled} {
		got, err := ParseAmountModel(in)
		if err != nil || got != want {
			t.Errorf("ParseAmountModel(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAmountModel("x14"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestOccurrences(t *testing.T) {
	tests := []struct {
		name     string
		schedule core.Recurrence
		from, to core.Date
		want     []core.Date
	}{
		{
			name:     "monthly clamps each month from the day of month",
			schedule: core.MonthlyRecurrence{StartDate: date(2025, 1, 31), DayOfMonth: 31},
			from:     date(2025, 1, 1),
			to:       date(2025, 5, 31),
			want:     []core.Date{date(2025, 1, 31), date(2025, 2, 28), date(2025, 3, 31), date(2025, 4, 30), date(2025, 5, 31)},
		},
		{
			name:     "monthly skips the day before start",
			schedule: core.MonthlyRecurrence{StartDate: date(2025, 1, 20), DayOfMonth: 5},
			from:     date(2025, 1, 1),
			to:       date(2025, 3, 10),
			want:     []core.Date{date(2025, 2, 5), date(2025, 3, 5)},
		},
		{
			name:     "monthly window far after start",
			schedule: core.MonthlyRecurrence{StartDate: date(2020, 1, 1), DayOfMonth: 15},
			from:     date(2025, 6, 1),
			to:       date(2025, 7, 31),
			want:     []core.Date{date(2025, 6, 15), date(2025, 7, 15)},
		},
		{
			name:     "biweekly stays on cadence",
			schedule: core.BiweeklyRecurrence{StartDate: date(2025, 1, 10)},
			from:     date(2025, 2, 1),
			to:       date(2025, 3, 1),
			want:     []core.Date{date(2025, 2, 7), date(2025, 2, 21)},
		},
		{
			name:     "weekly",
			schedule: core.WeeklyRecurrence{StartDate: date(2025, 1, 1), Weekday: time.Friday},
			from:     date(2025, 1, 1),
			to:       date(2025, 1, 17),
			want:     []core.Date{date(2025, 1, 3), date(2025, 1, 10), date(2025, 1, 17)},
		},
		{
			name:     "daily from start",
			schedule: core.DailyRecurrence{StartDate: date(2025, 1, 30)},
			from:     date(2025, 1, 1),
			to:       date(2025, 2, 1),
			want:     []core.Date{date(2025, 1, 30), date(2025, 1, 31), date(2025, 2, 1)},
		},
		{
			name:     "empty window",
			schedule: core.DailyRecurrence{StartDate: date(2025, 1, 1)},
			from:     date(2025, 2, 1),
			to:       date(2025, 1, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Occurrences(tt.schedule, tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("occurrence %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
