package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "catorcena.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_SchemaVersion(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catorcena.db")

	tests := []struct {
		name string
		seed bool
	}{
		{"fresh ledger", true},
		{"already migrated", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := NewSQLiteRepository(path)
			if err != nil {
				t.Fatalf("open repository: %v", err)
			}
			defer repo.Close()

			if got := repo.SchemaVersion(); got != 1 {
				t.Errorf("schema version = %d, want 1", got)
			}
			if tt.seed {
				if _, err := repo.SaveCard(ctx, core.CardRecord{ID: "c1", Name: "Oro", CutOffDay: 10}); err != nil {
					t.Fatalf("save card: %v", err)
				}
				return
			}
			snap, err := repo.Snapshot(ctx)
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			if len(snap.Cards) != 1 {
				t.Errorf("reopening lost data: %d cards", len(snap.Cards))
			}
		})
	}
}

func TestSQLiteRepository_Movements(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.SaveMovement(ctx, core.MovementRecord{
		Kind:           "expense",
		Amount:         decimal.RequireFromString("1250.50"),
		Description:    "Renta",
		RecurrenceSpec: core.RecurrenceSpec{Recurring: true, Frequency: "monthly", StartDate: "2025-01-01", DayOfMonth: 5},
	})
	if err != nil || id == "" {
		t.Fatalf("save movement: id=%q err=%v", id, err)
	}

	// Saving with the same id replaces the row.
	_, err = repo.SaveMovement(ctx, core.MovementRecord{
		ID:             id,
		Kind:           "expense",
		Amount:         decimal.RequireFromString("1300"),
		Description:    "Renta",
		RecurrenceSpec: core.RecurrenceSpec{Recurring: true, Frequency: "monthly", StartDate: "2025-01-01", DayOfMonth: 5},
	})
	if err != nil {
		t.Fatalf("update movement: %v", err)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(snap.Movements))
	}
	m := snap.Movements[0]
	if !m.Amount.Equal(decimal.NewFromInt(1300)) || !m.Recurring || m.DayOfMonth != 5 {
		t.Fatalf("unexpected movement %+v", m)
	}

	if err := repo.DeleteMovement(ctx, id); err != nil {
		t.Fatalf("delete movement: %v", err)
	}
	if err := repo.DeleteMovement(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteRepository_ChargesKeepOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cardID, err := repo.SaveCard(ctx, core.CardRecord{Name: "Oro", CutOffDay: 10, GracePeriodDays: 20, CreditLimit: decimal.NewFromInt(50000)})
	if err != nil {
		t.Fatalf("save card: %v", err)
	}
	for _, desc := range []string{"a", "b", "c"} {
		if _, err := repo.AddCharge(ctx, cardID, core.ChargeRecord{Description: desc, Amount: decimal.NewFromInt(10), PurchaseDate: "2025-01-15"}); err != nil {
			t.Fatalf("add charge %s: %v", desc, err)
		}
	}
	if err := repo.DeleteCharge(ctx, cardID, 0); err != nil {
		t.Fatalf("delete charge: %v", err)
	}
	idx, err := repo.AddCharge(ctx, cardID, core.ChargeRecord{
		Description:      "d",
		Amount:           decimal.NewFromInt(3000),
		PurchaseDate:     "2025-01-15",
		IsInstallment:    true,
		InstallmentCount: 3,
	})
	if err != nil || idx != 2 {
		t.Fatalf("expected new charge at index 2, got %d (err=%v)", idx, err)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	var got []string
	for _, ch := range snap.Cards[0].Charges {
		got = append(got, ch.Description)
	}
	if len(got) != 3 || got[0] != "b" || got[1] != "c" || got[2] != "d" {
		t.Fatalf("unexpected charge order %v", got)
	}
	if last := snap.Cards[0].Charges[2]; !last.IsInstallment || last.InstallmentCount != 3 {
		t.Fatalf("installment fields lost: %+v", last)
	}

	if _, err := repo.AddCharge(ctx, "missing", core.ChargeRecord{Description: "x", Amount: decimal.NewFromInt(1), PurchaseDate: "2025-01-01"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown card, got %v", err)
	}
}

func TestSQLiteRepository_YieldEntriesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acctID, err := repo.SaveDebitAccount(ctx, core.DebitAccountRecord{
		Name: "Nomina",
		Yield: core.YieldConfigRecord{
			Enabled:           true,
			AnnualRatePercent: decimal.NewFromInt(10),
			AccrualFrequency:  "daily",
			LastAccrualDate:   "2025-01-01",
		},
	})
	if err != nil {
		t.Fatalf("save account: %v", err)
	}
	entries := []core.YieldEntry{
		{Date: core.NewDate(2025, 1, 1), Amount: decimal.RequireFromString("0.27"), State: core.YieldSettled},
		{Date: core.NewDate(2025, 1, 2), Amount: decimal.RequireFromString("0.27"), State: core.YieldSettled},
	}
	written, err := repo.AppendYieldEntries(ctx, acctID, entries[1:])
	if err != nil || len(written) != 1 {
		t.Fatalf("expected 1 written, got %d (err=%v)", len(written), err)
	}
	// Jan 2 is already settled; only Jan 1 is new.
	written, err = repo.AppendYieldEntries(ctx, acctID, entries)
	if err != nil || len(written) != 1 || !written[0].Date.Equal(entries[0].Date) {
		t.Fatalf("expected only Jan 1 written, got %+v (err=%v)", written, err)
	}
	written, err = repo.AppendYieldEntries(ctx, acctID, entries)
	if err != nil || len(written) != 0 {
		t.Fatalf("expected third append to write nothing, got %d (err=%v)", len(written), err)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	acct := snap.DebitAccounts[0]
	if !acct.Yield.Enabled || acct.Yield.LastAccrualDate != "2025-01-01" {
		t.Fatalf("yield config lost: %+v", acct.Yield)
	}
	if len(acct.Movements) != 2 || !acct.Movements[0].IsYield || acct.Movements[0].Description != core.YieldDescription {
		t.Fatalf("unexpected movements %+v", acct.Movements)
	}
}

func TestSQLiteRepository_PaidFlags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	key := core.PaidKey{Year: 2025, PeriodIndex: 3, ItemID: "card-0-1"}

	if paid, err := repo.IsPaid(ctx, key); err != nil || paid {
		t.Fatalf("new key should be unpaid (err=%v)", err)
	}
	if err := repo.SetPaid(ctx, key, true); err != nil {
		t.Fatalf("set paid: %v", err)
	}
	if err := repo.SetPaid(ctx, key, true); err != nil {
		t.Fatalf("set paid twice: %v", err)
	}
	other := key
	other.PeriodIndex = 4
	if paid, _ := repo.IsPaid(ctx, other); paid {
		t.Fatalf("flag leaked into another period")
	}
	keys, err := repo.PaidKeys(ctx, 2025)
	if err != nil || len(keys) != 1 || keys[0] != key {
		t.Fatalf("unexpected keys %v (err=%v)", keys, err)
	}
	if err := repo.SetPaid(ctx, key, false); err != nil {
		t.Fatalf("clear paid: %v", err)
	}
	if paid, _ := repo.IsPaid(ctx, key); paid {
		t.Fatalf("flag should be cleared")
	}
}
