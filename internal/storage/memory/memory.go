package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"catorcena/internal/core"
	"catorcena/internal/storage"

	"github.com/google/uuid"
)

// SeedFile is the file NewFromFiles reads inside the data directory.
const SeedFile = "seed.json"

// Store keeps every collection in memory. Reads return deep copies.
type Store struct {
	mu       sync.Mutex
	movs     []core.MovementRecord
	cards    []core.CardRecord
	accounts []core.DebitAccountRecord
	paid     map[core.PaidKey]struct{}
}

var _ storage.Store = (*Store)(nil)

func New(seed core.Snapshot) *Store {
	c := cloneSnapshot(seed)
	return &Store{
		movs:     c.Movements,
		cards:    c.Cards,
		accounts: c.DebitAccounts,
		paid:     make(map[core.PaidKey]struct{}),
	}
}

// NewFromFiles seeds the store from base/seed.json. A missing file gives an
// empty store; a malformed one is an error.
func NewFromFiles(base string) (*Store, error) {
	b, err := os.ReadFile(filepath.Join(base, SeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return New(core.Snapshot{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed core.Snapshot
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", SeedFile, err)
	}
	return New(seed), nil
}

func cloneSnapshot(s core.Snapshot) core.Snapshot {
	out := core.Snapshot{
		Movements:     append([]core.MovementRecord(nil), s.Movements...),
		Cards:         make([]core.CardRecord, len(s.Cards)),
		DebitAccounts: make([]core.DebitAccountRecord, len(s.DebitAccounts)),
	}
	for i, c := range s.Cards {
		c.Charges = append([]core.ChargeRecord(nil), c.Charges...)
		out.Cards[i] = c
	}
	for i, a := range s.DebitAccounts {
		a.Movements = append([]core.DebitMovementRecord(nil), a.Movements...)
		out.DebitAccounts[i] = a
	}
	return out
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (s *Store) Snapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(core.Snapshot{Movements: s.movs, Cards: s.cards, DebitAccounts: s.accounts}), nil
}

func (s *Store) SaveMovement(_ context.Context, m core.MovementRecord) (string, error) {
	m.ID = newID(m.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.movs {
		if s.movs[i].ID == m.ID {
			s.movs[i] = m
			return m.ID, nil
		}
	}
	s.movs = append(s.movs, m)
	return m.ID, nil
}

func (s *Store) DeleteMovement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.movs {
		if s.movs[i].ID == id {
			s.movs = append(s.movs[:i], s.movs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("movement %s: %w", id, core.ErrNotFound)
}

func (s *Store) cardIndex(id string) (int, error) {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
}

func (s *Store) SaveCard(_ context.Context, c core.CardRecord) (string, error) {
	c.ID = newID(c.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, err := s.cardIndex(c.ID); err == nil {
		c.Charges = s.cards[i].Charges
		s.cards[i] = c
		return c.ID, nil
	}
	c.Charges = nil
	s.cards = append(s.cards, c)
	return c.ID, nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.cardIndex(id)
	if err != nil {
		return err
	}
	s.cards = append(s.cards[:i], s.cards[i+1:]...)
	return nil
}

func (s *Store) AddCharge(_ context.Context, cardID string, ch core.ChargeRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.cardIndex(cardID)
	if err != nil {
		return 0, err
	}
	s.cards[i].Charges = append(s.cards[i].Charges, ch)
	return len(s.cards[i].Charges) - 1, nil
}

func (s *Store) DeleteCharge(_ context.Context, cardID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.cardIndex(cardID)
	if err != nil {
		return err
	}
	charges := s.cards[i].Charges
	if index < 0 || index >= len(charges) {
		return fmt.Errorf("charge %s/%d: %w", cardID, index, core.ErrNotFound)
	}
	s.cards[i].Charges = append(charges[:index:index], charges[index+1:]...)
	return nil
}

func (s *Store) accountIndex(id string) (int, error) {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("debit account %s: %w", id, core.ErrNotFound)
}

func (s *Store) SaveDebitAccount(_ context.Context, a core.DebitAccountRecord) (string, error) {
	a.ID = newID(a.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, err := s.accountIndex(a.ID); err == nil {
		a.Movements = s.accounts[i].Movements
		s.accounts[i] = a
		return a.ID, nil
	}
	a.Movements = nil
	s.accounts = append(s.accounts, a)
	return a.ID, nil
}

func (s *Store) DeleteDebitAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.accountIndex(id)
	if err != nil {
		return err
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	return nil
}

func (s *Store) AddDebitMovement(_ context.Context, accountID string, m core.DebitMovementRecord) (string, error) {
	m.ID = newID(m.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.accountIndex(accountID)
	if err != nil {
		return "", err
	}
	s.accounts[i].Movements = append(s.accounts[i].Movements, m)
	return m.ID, nil
}

func (s *Store) DeleteDebitMovement(_ context.Context, accountID, movementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.accountIndex(accountID)
	if err != nil {
		return err
	}
	movs := s.accounts[i].Movements
	for j := range movs {
		if movs[j].ID == movementID {
			s.accounts[i].Movements = append(movs[:j:j], movs[j+1:]...)
			return nil
		}
	}
	return fmt.Errorf("debit movement %s: %w", movementID, core.ErrNotFound)
}

func (s *Store) AppendYieldEntries(_ context.Context, accountID string, entries []core.YieldEntry) ([]core.YieldEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.accountIndex(accountID)
	if err != nil {
		return nil, err
	}
	settled := make(map[string]bool)
	for _, m := range s.accounts[i].Movements {
		if m.IsYield {
			settled[m.Date] = true
		}
	}
	var written []core.YieldEntry
	for _, e := range entries {
		date := e.Date.String()
		if settled[date] {
			continue
		}
		e.ID = newID(e.ID)
		s.accounts[i].Movements = append(s.accounts[i].Movements, storage.YieldMovement(e))
		settled[date] = true
		written = append(written, e)
	}
	return written, nil
}

func (s *Store) IsPaid(_ context.Context, key core.PaidKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paid[key]
	return ok, nil
}

func (s *Store) SetPaid(_ context.Context, key core.PaidKey, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if paid {
		s.paid[key] = struct{}{}
	} else {
		delete(s.paid, key)
	}
	return nil
}

func (s *Store) PaidKeys(_ context.Context, year int) ([]core.PaidKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []core.PaidKey
	for k := range s.paid {
		if k.Year == year {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PeriodIndex != keys[j].PeriodIndex {
			return keys[i].PeriodIndex < keys[j].PeriodIndex
		}
		return keys[i].ItemID < keys[j].ItemID
	})
	return keys, nil
}

func (s *Store) Close() error { return nil }
