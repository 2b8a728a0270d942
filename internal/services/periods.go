package services

import "catorcena/internal/core"

// PeriodsPerYear is the number of periods in one year's grid.
const PeriodsPerYear = 26

// periodAnchors holds the first period start of each supported year. Each
// anchor is the previous one plus 26 periods, so the cycle never breaks at a
// year boundary.
var periodAnchors = map[int]core.Date{
	2023: core.NewDate(2023, 1, 13),
	2024: core.NewDate(2024, 1, 12),
	2025: core.NewDate(2025, 1, 10),
	2026: core.NewDate(2026, 1, 9),
	2027: core.NewDate(2027, 1, 8),
	2028: core.NewDate(2028, 1, 7),
	2029: core.NewDate(2029, 1, 5),
	2030: core.NewDate(2030, 1, 4),
}

// PeriodAnchor returns the first period start of year. Years outside the
// table start on January 10.
func PeriodAnchor(year int) core.Date {
	if a, ok := periodAnchors[year]; ok {
		return a
	}
	return core.NewDate(year, 1, 10)
}

// SupportedYears lists the years with a fixed anchor, ascending.
func SupportedYears() []int {
	return []int{2023, 2024, 2025, 2026, 2027, 2028, 2029, 2030}
}

// GeneratePeriods returns the 26 contiguous 14-day periods of year.
func GeneratePeriods(year int) []core.Period {
	anchor := PeriodAnchor(year)
	periods := make([]core.Period, PeriodsPerYear)
	for i := range periods {
		periods[i] = core.NewPeriod(i, anchor.AddDays(core.PeriodLength*i))
	}
	return periods
}

// PeriodFor finds the grid period containing d. Dates before the year's
// anchor belong to the previous year's grid. ok is false when d falls in a
// gap between two grids.
func PeriodFor(d core.Date) (year int, p core.Period, ok bool) {
	for _, y := range []int{d.Year(), d.Year() - 1} {
		anchor := PeriodAnchor(y)
		offset := anchor.DaysUntil(d)
		if offset < 0 {
			continue
		}
		idx := offset / core.PeriodLength
		if idx >= PeriodsPerYear {
			continue
		}
		return y, core.NewPeriod(idx, anchor.AddDays(core.PeriodLength*idx)), true
	}
	return 0, core.Period{}, false
}
