package services

import (
	"testing"

	"catorcena/internal/core"
)

func TestGeneratePeriods_Coverage(t *testing.T) {
	for _, year := range SupportedYears() {
		periods := GeneratePeriods(year)
		if len(periods) != PeriodsPerYear {
			t.Fatalf("%d: got %d periods", year, len(periods))
		}
		if !periods[0].Start.Equal(PeriodAnchor(year)) {
			t.Errorf("%d: first period starts %s, want anchor %s", year, periods[0].Start, PeriodAnchor(year))
		}
		for i, p := range periods {
			if p.Index != i {
				t.Errorf("%d: period %d has index %d", year, i, p.Index)
			}
			if got := p.Start.DaysUntil(p.End) + 1; got != core.PeriodLength {
				t.Errorf("%d/%d: %d days long", year, i, got)
			}
			if i > 0 && !periods[i-1].End.AddDays(1).Equal(p.Start) {
				t.Errorf("%d/%d: gap or overlap after %s", year, i, periods[i-1].End)
			}
		}
	}
}

func TestGeneratePeriods_ContinuousAcrossYears(t *testing.T) {
	years := SupportedYears()
	for i := 0; i < len(years)-1; i++ {
		last := GeneratePeriods(years[i])[PeriodsPerYear-1]
		next := PeriodAnchor(years[i+1])
		if !last.End.AddDays(1).Equal(next) {
			t.Errorf("%d ends %s but %d starts %s", years[i], last.End, years[i+1], next)
		}
	}
}

func TestPeriodAnchor_DefaultsToJanuaryTenth(t *testing.T) {
	if got := PeriodAnchor(2040); !got.Equal(core.NewDate(2040, 1, 10)) {
		t.Errorf("PeriodAnchor(2040) = %s", got)
	}
}

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		name      string
		date      core.Date
		wantYear  int
		wantIndex int
		wantOK    bool
	}{
		{"anchor day", core.NewDate(2025, 1, 10), 2025, 0, true},
		{"second period", core.NewDate(2025, 1, 24), 2025, 1, true},
		{"before anchor belongs to previous grid", core.NewDate(2025, 1, 5), 2024, 25, true},
		{"last day of grid", core.NewDate(2026, 1, 8), 2025, 25, true},
		{"late december", core.NewDate(2025, 12, 31), 2025, 25, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, p, ok := PeriodFor(tt.date)
			if ok != tt.wantOK || year != tt.wantYear || p.Index != tt.wantIndex {
				t.Fatalf("PeriodFor(%s) = %d/%d %v, want %d/%d %v", tt.date, year, p.Index, ok, tt.wantYear, tt.wantIndex, tt.wantOK)
			}
			if !p.Contains(tt.date) {
				t.Errorf("period %s does not contain %s", p, tt.date)
			}
		})
	}
}
