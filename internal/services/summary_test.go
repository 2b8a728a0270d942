package services

import (
	"context"
	"errors"
	"testing"

	"catorcena/internal/core"
)

func testLedger() Ledger {
	return Ledger{
		Movements: []core.Movement{
			{ID: "m1", Kind: core.Income, Amount: dec("15000"), Description: "Sueldo", Schedule: core.BiweeklyRecurrence{StartDate: date(2025, 1, 10)}},
			{ID: "m2", Kind: core.Expense, Amount: dec("8000"), Description: "Renta", Schedule: core.MonthlyRecurrence{StartDate: date(2025, 1, 1), DayOfMonth: 25}},
			{ID: "m3", Kind: core.Expense, Amount: dec("600"), Description: "Cena", Schedule: core.OneOff{Date: date(2025, 1, 12)}},
			{ID: "m4", Kind: core.Expense, Amount: dec("50"), Description: "Café", Schedule: core.DailyRecurrence{StartDate: date(2025, 1, 20)}},
		},
		Cards: []core.CardAccount{cardWithCharges()},
		Warnings: []core.Warning{
			{Source: "movement", ItemID: "bad", Err: core.ErrInvalidDate},
		},
	}
}

func TestSummaryEngine_Period(t *testing.T) {
	periods := GeneratePeriods(2025)

	tests := []struct {
		name      string
		model     AmountModel
		index     int
		income    string
		expense   string
		card      string
		balance   string
		recurring int
	}{
		{"first period enumerated", AmountEnumerated, 0, "15000", "800", "0", "14200", 1},
		{"first period scaled", AmountScaled, 0, "15000", "1300", "0", "13700", 1},
		{"second period with rent", AmountEnumerated, 1, "15000", "8700", "199", "6101", 2},
		{"period without rent", AmountEnumerated, 4, "15000", "700", "0", "14300", 1},
		{"card heavy period", AmountEnumerated, 3, "15000", "8700", "1699", "4601", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSummaryEngine(tt.model, nil)
			s, warnings := e.Period(testLedger(), 2025, periods[tt.index], nil)
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings %v", warnings)
			}
			if !s.IncomeTotal.Equal(dec(tt.income)) || !s.ExpenseTotal.Equal(dec(tt.expense)) ||
				!s.CardChargeTotal.Equal(dec(tt.card)) || !s.Balance.Equal(dec(tt.balance)) {
				t.Errorf("income %s expense %s card %s balance %s", s.IncomeTotal, s.ExpenseTotal, s.CardChargeTotal, s.Balance)
			}
			if len(s.RecurringExpenses) != tt.recurring {
				t.Errorf("%d recurring expense lines, want %d", len(s.RecurringExpenses), tt.recurring)
			}
		})
	}
}

func TestSummaryEngine_PaidOverlay(t *testing.T) {
	e := NewSummaryEngine(AmountEnumerated, nil)
	p1 := GeneratePeriods(2025)[1]
	paid := PaidSet{
		{Year: 2025, PeriodIndex: 1, ItemID: "c1-1-0"}: true,
		{Year: 2025, PeriodIndex: 0, ItemID: "m1"}:     true,
	}

	s, _ := e.Period(testLedger(), 2025, p1, paid)
	if len(s.CardDues) != 1 || !s.CardDues[0].Paid {
		t.Fatalf("expected the streaming due marked paid, got %+v", s.CardDues)
	}
	if s.Income[0].Paid {
		t.Error("paid flag of another period leaked into this one")
	}
	if len(s.CardTotals) != 1 || s.CardTotals[0].Name != "Oro" {
		t.Errorf("unexpected card totals %+v", s.CardTotals)
	}
}

func TestSummaryEngine_InstallmentLabel(t *testing.T) {
	e := NewSummaryEngine(AmountEnumerated, nil)
	s, _ := e.Period(testLedger(), 2025, GeneratePeriods(2025)[3], nil)
	var label string
	for _, it := range s.CardDues {
		if it.ItemID == "c1-0-0" {
			label = it.Installment
		}
	}
	if label != "1/3" {
		t.Errorf("installment label = %q, want 1/3", label)
	}
}

func TestSummaryEngine_Year(t *testing.T) {
	e := NewSummaryEngine("", nil)
	if e.Model() != AmountEnumerated {
		t.Fatalf("default model %q", e.Model())
	}

	ys, err := e.Year(context.Background(), testLedger(), 2025, nil)
	if err != nil {
		t.Fatalf("Year: %v", err)
	}
	if len(ys.Periods) != PeriodsPerYear {
		t.Fatalf("got %d periods", len(ys.Periods))
	}
	running := dec("0")
	for i, p := range ys.Periods {
		running = running.Add(p.Balance)
		if !p.RunningBalance.Equal(running) {
			t.Fatalf("period %d running balance %s, want %s", i, p.RunningBalance, running)
		}
		if p.Period.Index != i {
			t.Fatalf("period %d out of order", i)
		}
	}
	if len(ys.Warnings) != 1 || !errors.Is(ys.Warnings[0], core.ErrInvalidDate) {
		t.Errorf("unexpected warnings %v", ys.Warnings)
	}
}

func TestSummaryEngine_YearCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSummaryEngine(AmountEnumerated, nil).Year(ctx, testLedger(), 2025, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	snap := core.Snapshot{
		Movements: []core.MovementRecord{
			{ID: "ok", Kind: "gasto", Amount: dec("10"), Description: "Taxi", RecurrenceSpec: core.RecurrenceSpec{Date: "2025-01-15"}},
			{ID: "bad-date", Kind: "gasto", Amount: dec("10"), Description: "Taxi", RecurrenceSpec: core.RecurrenceSpec{Date: "15/01/2025"}},
			{ID: "bad-freq", Kind: "ingreso", Amount: dec("10"), Description: "Bono", RecurrenceSpec: core.RecurrenceSpec{Recurring: true, Frequency: "anual", StartDate: "2025-01-01"}},
		},
		Cards: []core.CardRecord{
			{ID: "c1", Name: "Oro", CutOffDay: 10, GracePeriodDays: 20},
			{ID: "c2", Name: "", CutOffDay: 10},
		},
	}

	l := DecodeSnapshot(snap)
	if len(l.Movements) != 1 || l.Movements[0].ID != "ok" {
		t.Errorf("unexpected movements %+v", l.Movements)
	}
	if len(l.Cards) != 1 {
		t.Errorf("expected the invalid card to be dropped, got %d cards", len(l.Cards))
	}
	if len(l.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", l.Warnings)
	}
	if !errors.Is(l.Warnings[1], core.ErrInvalidRecurrenceConfig) {
		t.Errorf("unknown frequency should be an invalid recurrence config, got %v", l.Warnings[1])
	}
	if _, err := l.Card("c2"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Card(c2) error = %v", err)
	}
}
