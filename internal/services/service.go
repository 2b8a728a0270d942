package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"catorcena/internal/cache"
	"catorcena/internal/core"
	applog "catorcena/internal/log"
	"catorcena/internal/storage"
)

// PeriodService orchestrates the store, the summary engine and the summary
// cache. Every write invalidates the cached summaries.
type PeriodService struct {
	store  storage.Store
	engine *SummaryEngine
	cache  cache.Cache[YearSummary]
	today  func() core.Date
	logger *slog.Logger
	events *applog.StructuredLogger

	// generation counts invalidations; a summary computed across one is
	// not cached.
	mu         sync.Mutex
	generation uint64
}

// NewPeriodService wires the service. summaries may be nil to disable caching.
func NewPeriodService(store storage.Store, engine *SummaryEngine, summaries cache.Cache[YearSummary], logger *slog.Logger) *PeriodService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PeriodService{
		store:  store,
		engine: engine,
		cache:  summaries,
		today:  core.Today,
		logger: logger,
		events: applog.NewStructuredLogger(applog.Wrap(logger, applog.ComponentEngine)),
	}
}

// SetClock replaces the source of "today".
func (s *PeriodService) SetClock(today func() core.Date) { s.today = today }

// Today returns the service's current date.
func (s *PeriodService) Today() core.Date { return s.today() }

// Ledger reads and decodes a fresh snapshot.
func (s *PeriodService) Ledger(ctx context.Context) (Ledger, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return Ledger{}, fmt.Errorf("read snapshot: %w", err)
	}
	return DecodeSnapshot(snap), nil
}

func (s *PeriodService) paidSet(ctx context.Context, year int) (PaidSet, error) {
	keys, err := s.store.PaidKeys(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("read paid flags: %w", err)
	}
	set := make(PaidSet, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set, nil
}

// YearSummary returns the summaries of every period of year, from cache
// when possible.
func (s *PeriodService) YearSummary(ctx context.Context, year int) (YearSummary, error) {
	key := strconv.Itoa(year)
	if s.cache != nil {
		if ys, ok := s.cache.Get(key); ok {
			return ys, nil
		}
	}

	gen := s.currentGeneration()
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return YearSummary{}, err
	}
	paid, err := s.paidSet(ctx, year)
	if err != nil {
		return YearSummary{}, err
	}
	ys, err := s.engine.Year(ctx, ledger, year, paid)
	if err != nil {
		return YearSummary{}, err
	}
	if s.cache != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.cache.Set(key, ys)
		}
		s.mu.Unlock()
	}
	return ys, nil
}

func (s *PeriodService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// PeriodSummary returns one period of year.
func (s *PeriodService) PeriodSummary(ctx context.Context, year, index int) (PeriodSummary, error) {
	if index < 0 || index >= PeriodsPerYear {
		return PeriodSummary{}, fmt.Errorf("period %d of %d: %w", index, year, core.ErrNotFound)
	}
	ys, err := s.YearSummary(ctx, year)
	if err != nil {
		return PeriodSummary{}, err
	}
	return ys.Periods[index], nil
}

// Invalidate drops every cached summary.
func (s *PeriodService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cache != nil {
		s.cache.Purge()
	}
}

// InstallmentStatuses reports every MSI plan of a card as of today.
func (s *PeriodService) InstallmentStatuses(ctx context.Context, cardID string) ([]InstallmentStatus, error) {
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	card, err := ledger.Card(cardID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	var out []InstallmentStatus
	for _, ch := range card.Charges {
		if !ch.IsInstallment {
			continue
		}
		st, err := GetInstallmentStatus(ch, card, today)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid installment plan",
				"card_id", card.ID, "charge_index", ch.Index, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// DebitSeries builds the chart series of one account as of asOf.
func (s *PeriodService) DebitSeries(ctx context.Context, accountID string, asOf core.Date, filter DateFilter) (DebitSeries, error) {
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return DebitSeries{}, err
	}
	acct, err := ledger.DebitAccount(accountID)
	if err != nil {
		return DebitSeries{}, err
	}
	return BuildDebitSeries(acct, asOf, filter), nil
}

// SettleYield persists the projected yield of an account up to asOf and
// returns the entries actually written.
func (s *PeriodService) SettleYield(ctx context.Context, accountID string, asOf core.Date) ([]core.YieldEntry, error) {
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	acct, err := ledger.DebitAccount(accountID)
	if err != nil {
		return nil, err
	}
	entries := SettleYield(acct, asOf)
	if len(entries) == 0 {
		return nil, nil
	}
	written, err := s.store.AppendYieldEntries(ctx, accountID, entries)
	if err != nil {
		return nil, fmt.Errorf("settle yield: %w", err)
	}
	s.Invalidate()
	s.events.LogYieldSettled(ctx, accountID, len(written))
	return written, nil
}

// SaveMovement validates and stores a movement.
func (s *PeriodService) SaveMovement(ctx context.Context, m core.MovementRecord) (string, error) {
	if _, err := m.Decode(); err != nil {
		return "", err
	}
	id, err := s.store.SaveMovement(ctx, m)
	if err != nil {
		return "", err
	}
	s.Invalidate()
	return id, nil
}

func (s *PeriodService) DeleteMovement(ctx context.Context, id string) error {
	if err := s.store.DeleteMovement(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// SaveCard validates and stores a card's own fields.
func (s *PeriodService) SaveCard(ctx context.Context, c core.CardRecord) (string, error) {
	c.Charges = nil
	if _, _, err := c.Decode(); err != nil {
		return "", err
	}
	id, err := s.store.SaveCard(ctx, c)
	if err != nil {
		return "", err
	}
	s.Invalidate()
	return id, nil
}

func (s *PeriodService) DeleteCard(ctx context.Context, id string) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// AddCharge validates and appends a charge to a card.
func (s *PeriodService) AddCharge(ctx context.Context, cardID string, ch core.ChargeRecord) (int, error) {
	_, warnings, err := ch.Decode(cardID, 0)
	if err != nil {
		return 0, err
	}
	// Reads tolerate an unknown frequency; writes reject it.
	if len(warnings) > 0 {
		return 0, warnings[0]
	}
	idx, err := s.store.AddCharge(ctx, cardID, ch)
	if err != nil {
		return 0, err
	}
	s.Invalidate()
	return idx, nil
}

func (s *PeriodService) DeleteCharge(ctx context.Context, cardID string, index int) error {
	if err := s.store.DeleteCharge(ctx, cardID, index); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// SaveDebitAccount validates and stores an account and its yield config.
func (s *PeriodService) SaveDebitAccount(ctx context.Context, a core.DebitAccountRecord) (string, error) {
	if _, err := a.Yield.Decode(); err != nil {
		return "", err
	}
	a.Movements = nil
	id, err := s.store.SaveDebitAccount(ctx, a)
	if err != nil {
		return "", err
	}
	s.Invalidate()
	return id, nil
}

func (s *PeriodService) DeleteDebitAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteDebitAccount(ctx, id); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// AddDebitMovement validates and stores a user movement. Yield entries are
// only created by SettleYield.
func (s *PeriodService) AddDebitMovement(ctx context.Context, accountID string, m core.DebitMovementRecord) (string, error) {
	m.IsYield = false
	if _, err := m.Decode(); err != nil {
		return "", err
	}
	id, err := s.store.AddDebitMovement(ctx, accountID, m)
	if err != nil {
		return "", err
	}
	s.Invalidate()
	return id, nil
}

func (s *PeriodService) DeleteDebitMovement(ctx context.Context, accountID, movementID string) error {
	if err := s.store.DeleteDebitMovement(ctx, accountID, movementID); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}
