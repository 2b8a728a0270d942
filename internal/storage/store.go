package storage

import (
	"context"

	"catorcena/internal/core"
)

// Store is the persistence boundary of the period engine. Records cross it
// in their flat form; decoding and validation happen in the engine.
type Store interface {
	// Snapshot reads every movement, card and debit account at once.
	Snapshot(ctx context.Context) (core.Snapshot, error)

	// SaveMovement inserts the movement, or replaces it when its id exists.
	// An empty id gets a new one, which is returned.
	SaveMovement(ctx context.Context, m core.MovementRecord) (string, error)
	DeleteMovement(ctx context.Context, id string) error

	// SaveCard upserts the card's own fields; its charges are left alone.
	SaveCard(ctx context.Context, c core.CardRecord) (string, error)
	DeleteCard(ctx context.Context, id string) error
	// AddCharge appends a charge and returns its index within the card.
	AddCharge(ctx context.Context, cardID string, ch core.ChargeRecord) (int, error)
	// DeleteCharge removes the charge at index; later charges shift down.
	DeleteCharge(ctx context.Context, cardID string, index int) error

	// SaveDebitAccount upserts the account and its yield config; its
	// movements are left alone.
	SaveDebitAccount(ctx context.Context, a core.DebitAccountRecord) (string, error)
	DeleteDebitAccount(ctx context.Context, id string) error
	AddDebitMovement(ctx context.Context, accountID string, m core.DebitMovementRecord) (string, error)
	DeleteDebitMovement(ctx context.Context, accountID, movementID string) error
	// AppendYieldEntries persists settled yield as one-off income. Dates
	// that already hold a settled entry are skipped. It returns the entries
	// actually written, in input order and with their ids assigned.
	AppendYieldEntries(ctx context.Context, accountID string, entries []core.YieldEntry) ([]core.YieldEntry, error)

	IsPaid(ctx context.Context, key core.PaidKey) (bool, error)
	// SetPaid records the flag; false removes the record.
	SetPaid(ctx context.Context, key core.PaidKey, paid bool) error
	PaidKeys(ctx context.Context, year int) ([]core.PaidKey, error)

	Close() error
}

// YieldMovement converts a settled yield entry into the debit movement
// record it is stored as.
func YieldMovement(e core.YieldEntry) core.DebitMovementRecord {
	return core.DebitMovementRecord{
		ID:             e.ID,
		Kind:           string(core.Income),
		Amount:         e.Amount,
		Description:    core.YieldDescription,
		IsYield:        true,
		RecurrenceSpec: core.Encode(core.OneOff{Date: e.Date}),
	}
}
