package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// Frequency is how often a recurring movement or charge repeats.
type Frequency string

var ErrInvalidRecurrenceConfig = errors.New("invalid recurrence config")

var frequencyAliases = map[string]Frequency{
	"daily":      Daily,
	"diario":     Daily,
	"weekly":     Weekly,
	"semanal":    Weekly,
	"biweekly":   Biweekly,
	"catorcenal": Biweekly,
	"monthly":    Monthly,
	"mensual":    Monthly,
}

// ParseFrequency accepts the English names and the legacy Spanish ones
// ("diario", "semanal", "catorcenal", "mensual").
func ParseFrequency(s string) (Frequency, error) {
	f, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrenceConfig, s)
	}
	return f, nil
}

// Recurrence is the schedule of a movement or charge. It is one of OneOff,
// DailyRecurrence, WeeklyRecurrence, BiweeklyRecurrence or MonthlyRecurrence;
// each variant carries only the fields valid for it.
type Recurrence interface {
	// Frequency returns the variant's frequency; OneOff returns "".
	Frequency() Frequency
	// Start is the first date the schedule can produce.
	Start() Date
	isRecurrence()
}

type (
	OneOff struct {
		Date Date
	}

	DailyRecurrence struct {
		StartDate Date
	}

	WeeklyRecurrence struct {
		StartDate Date
		Weekday   time.Weekday
	}

	BiweeklyRecurrence struct {
		StartDate Date
	}

	MonthlyRecurrence struct {
		StartDate  Date
		DayOfMonth int
	}
)

func (OneOff) Frequency() Frequency             { return "" }
func (DailyRecurrence) Frequency() Frequency    { return Daily }
func (WeeklyRecurrence) Frequency() Frequency   { return Weekly }
func (BiweeklyRecurrence) Frequency() Frequency { return Biweekly }
func (MonthlyRecurrence) Frequency() Frequency  { return Monthly }

func (r OneOff) Start() Date             { return r.Date }
func (r DailyRecurrence) Start() Date    { return r.StartDate }
func (r WeeklyRecurrence) Start() Date   { return r.StartDate }
func (r BiweeklyRecurrence) Start() Date { return r.StartDate }
func (r MonthlyRecurrence) Start() Date  { return r.StartDate }

func (OneOff) isRecurrence()             {}
func (DailyRecurrence) isRecurrence()    {}
func (WeeklyRecurrence) isRecurrence()   {}
func (BiweeklyRecurrence) isRecurrence() {}
func (MonthlyRecurrence) isRecurrence()  {}

// IsRecurring reports whether r repeats.
func IsRecurring(r Recurrence) bool {
	_, oneOff := r.(OneOff)
	return r != nil && !oneOff
}

// RecurrenceSpec is the flat shape schedules are stored in. Dates are
// YYYY-MM-DD strings so malformed data can be reported instead of dropped.
type RecurrenceSpec struct {
	Recurring  bool   `json:"recurring"`
	Date       string `json:"date,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	DayOfMonth int    `json:"day_of_month,omitempty"`
	DayOfWeek  string `json:"day_of_week,omitempty"`
}

// Decode turns the flat spec into a typed Recurrence. fallbackStart is used
// as the start date of a recurring spec with no StartDate (card charges start
// at their purchase date).
func (s RecurrenceSpec) Decode(fallbackStart string) (Recurrence, error) {
	if !s.Recurring {
		d, err := ParseDate(s.Date)
		if err != nil {
			return nil, err
		}
		return OneOff{Date: d}, nil
	}

	startStr := s.StartDate
	if strings.TrimSpace(startStr) == "" {
		startStr = fallbackStart
	}
	start, err := ParseDate(startStr)
	if err != nil {
		return nil, fmt.Errorf("start date: %w", err)
	}

	freq, err := ParseFrequency(s.Frequency)
	if err != nil {
		return nil, err
	}

	switch freq {
	case Daily:
		return DailyRecurrence{StartDate: start}, nil
	case Weekly:
		if strings.TrimSpace(s.DayOfWeek) == "" {
			return nil, fmt.Errorf("%w: weekly without day of week", ErrInvalidRecurrenceConfig)
		}
		wd, err := ResolveWeekday(s.DayOfWeek)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrenceConfig, err)
		}
		return WeeklyRecurrence{StartDate: start, Weekday: wd}, nil
	case Biweekly:
		return BiweeklyRecurrence{StartDate: start}, nil
	case Monthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return nil, fmt.Errorf("%w: monthly day of month %d", ErrInvalidRecurrenceConfig, s.DayOfMonth)
		}
		return MonthlyRecurrence{StartDate: start, DayOfMonth: s.DayOfMonth}, nil
	}
	return nil, fmt.Errorf("%w: unhandled frequency %q", ErrInvalidRecurrenceConfig, freq)
}

// Encode flattens a typed Recurrence back into its stored shape.
func Encode(r Recurrence) RecurrenceSpec {
	switch v := r.(type) {
	case OneOff:
		return RecurrenceSpec{Date: v.Date.String()}
	case DailyRecurrence:
		return RecurrenceSpec{Recurring: true, Frequency: string(Daily), StartDate: v.StartDate.String()}
	case WeeklyRecurrence:
		return RecurrenceSpec{Recurring: true, Frequency: string(Weekly), StartDate: v.StartDate.String(), DayOfWeek: strings.ToLower(v.Weekday.String())}
	case BiweeklyRecurrence:
		return RecurrenceSpec{Recurring: true, Frequency: string(Biweekly), StartDate: v.StartDate.String()}
	case MonthlyRecurrence:
		return RecurrenceSpec{Recurring: true, Frequency: string(Monthly), StartDate: v.StartDate.String(), DayOfMonth: v.DayOfMonth}
	}
	return RecurrenceSpec{}
}
