package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catorcena/internal/core"
)

var ErrInvalidPaidKey = errors.New("invalid paid key")

// ValidatePaidKey checks that key addresses a period of the grid.
func ValidatePaidKey(key core.PaidKey) error {
	if key.PeriodIndex < 0 || key.PeriodIndex >= PeriodsPerYear {
		return fmt.Errorf("%w: period index %d", ErrInvalidPaidKey, key.PeriodIndex)
	}
	if strings.TrimSpace(key.ItemID) == "" {
		return fmt.Errorf("%w: empty item id", ErrInvalidPaidKey)
	}
	return nil
}

// TogglePaid flips the paid flag of one item occurrence in one period and
// returns the new state. The flag is read before it is written; concurrent
// toggles of the same key resolve as last write wins.
func (s *PeriodService) TogglePaid(ctx context.Context, key core.PaidKey) (bool, error) {
	if err := ValidatePaidKey(key); err != nil {
		return false, err
	}
	paid, err := s.store.IsPaid(ctx, key)
	if err != nil {
		return false, fmt.Errorf("toggle paid: %w", err)
	}
	if err := s.store.SetPaid(ctx, key, !paid); err != nil {
		return false, fmt.Errorf("toggle paid: %w", err)
	}
	s.Invalidate()

	s.events.LogPaidToggled(ctx, key.Year, key.PeriodIndex, key.ItemID, !paid)
	return !paid, nil
}
