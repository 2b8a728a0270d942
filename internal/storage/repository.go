package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"catorcena/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the ledger was opened at.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schemaVersion }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// recurrenceColumns is the column order of a stored RecurrenceSpec.
const recurrenceColumns = "recurring, date, frequency, start_date, day_of_month, day_of_week"

func recurrenceArgs(s core.RecurrenceSpec) []any {
	return []any{boolInt(s.Recurring), s.Date, s.Frequency, s.StartDate, s.DayOfMonth, s.DayOfWeek}
}

func recurrenceDest(s *core.RecurrenceSpec, recurring *int64) []any {
	return []any{recurring, &s.Date, &s.Frequency, &s.StartDate, &s.DayOfMonth, &s.DayOfWeek}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

// Snapshot reads all collections inside one read transaction.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if snap.Movements, err = listMovements(ctx, tx); err != nil {
			return err
		}
		if snap.Cards, err = listCards(ctx, tx); err != nil {
			return err
		}
		snap.DebitAccounts, err = listDebitAccounts(ctx, tx)
		return err
	})
	if err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func listMovements(ctx context.Context, tx *sql.Tx) ([]core.MovementRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, kind, amount, description, `+recurrenceColumns+` FROM movements ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []core.MovementRecord
	for rows.Next() {
		var (
			m         core.MovementRecord
			recurring int64
		)
		dest := append([]any{&m.ID, &m.Kind, &m.Amount, &m.Description}, recurrenceDest(&m.RecurrenceSpec, &recurring)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Recurring = recurring == 1
		out = append(out, m)
	}
	return out, rows.Err()
}

func listCards(ctx context.Context, tx *sql.Tx) ([]core.CardRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, cut_off_day, grace_period_days, credit_limit FROM cards ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	var cards []core.CardRecord
	index := make(map[string]int)
	for rows.Next() {
		var c core.CardRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.CutOffDay, &c.GracePeriodDays, &c.CreditLimit); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan card: %w", err)
		}
		index[c.ID] = len(cards)
		cards = append(cards, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT card_id, description, amount, purchase_date, is_installment, installment_count, `+recurrenceColumns+`
		FROM card_charges ORDER BY card_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cardID        string
			ch            core.ChargeRecord
			isInstallment int64
			recurring     int64
		)
		dest := append([]any{&cardID, &ch.Description, &ch.Amount, &ch.PurchaseDate, &isInstallment, &ch.InstallmentCount},
			recurrenceDest(&ch.RecurrenceSpec, &recurring)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		ch.IsInstallment = isInstallment == 1
		ch.Recurring = recurring == 1
		if i, ok := index[cardID]; ok {
			cards[i].Charges = append(cards[i].Charges, ch)
		}
	}
	return cards, rows.Err()
}

func listDebitAccounts(ctx context.Context, tx *sql.Tx) ([]core.DebitAccountRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, yield_enabled, annual_rate_percent, capped, cap, accrual_frequency, last_accrual_date
		FROM debit_accounts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list debit accounts: %w", err)
	}
	var accounts []core.DebitAccountRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			a               core.DebitAccountRecord
			enabled, capped int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &enabled, &a.Yield.AnnualRatePercent, &capped, &a.Yield.Cap,
			&a.Yield.AccrualFrequency, &a.Yield.LastAccrualDate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan debit account: %w", err)
		}
		a.Yield.Enabled = enabled == 1
		a.Yield.Capped = capped == 1
		index[a.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `SELECT account_id, id, kind, amount, description, is_yield, `+recurrenceColumns+`
		FROM debit_movements ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list debit movements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			accountID          string
			m                  core.DebitMovementRecord
			isYield, recurring int64
		)
		dest := append([]any{&accountID, &m.ID, &m.Kind, &m.Amount, &m.Description, &isYield},
			recurrenceDest(&m.RecurrenceSpec, &recurring)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan debit movement: %w", err)
		}
		m.IsYield = isYield == 1
		m.Recurring = recurring == 1
		if i, ok := index[accountID]; ok {
			accounts[i].Movements = append(accounts[i].Movements, m)
		}
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) SaveMovement(ctx context.Context, m core.MovementRecord) (string, error) {
	m.ID = newID(m.ID)
	args := append([]any{m.ID, m.Kind, m.Amount, m.Description}, recurrenceArgs(m.RecurrenceSpec)...)
	_, err := r.db.ExecContext(ctx, `INSERT INTO movements (id, kind, amount, description, `+recurrenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, amount = excluded.amount, description = excluded.description,
			recurring = excluded.recurring, date = excluded.date, frequency = excluded.frequency,
			start_date = excluded.start_date, day_of_month = excluded.day_of_month, day_of_week = excluded.day_of_week`,
		args...)
	if err != nil {
		return "", fmt.Errorf("save movement: %w", err)
	}

	slog.InfoContext(ctx, "Movement saved to SQLite",
		"id", m.ID,
		"kind", m.Kind,
		"description", m.Description,
		"recurring", m.Recurring)
	return m.ID, nil
}

func (r *SQLiteRepository) DeleteMovement(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	return requireAffected(res, "delete movement "+id)
}

func (r *SQLiteRepository) SaveCard(ctx context.Context, c core.CardRecord) (string, error) {
	c.ID = newID(c.ID)
	_, err := r.db.ExecContext(ctx, `INSERT INTO cards (id, name, cut_off_day, grace_period_days, credit_limit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, cut_off_day = excluded.cut_off_day,
			grace_period_days = excluded.grace_period_days, credit_limit = excluded.credit_limit`,
		c.ID, c.Name, c.CutOffDay, c.GracePeriodDays, c.CreditLimit)
	if err != nil {
		return "", fmt.Errorf("save card: %w", err)
	}
	return c.ID, nil
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM card_charges WHERE card_id = ?`, id); err != nil {
			return fmt.Errorf("delete card charges: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		return requireAffected(res, "delete card "+id)
	})
}

func (r *SQLiteRepository) AddCharge(ctx context.Context, cardID string, ch core.ChargeRecord) (int, error) {
	var position int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE id = ?`, cardID).Scan(&exists); err != nil {
			return fmt.Errorf("find card: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("card %s: %w", cardID, core.ErrNotFound)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_charges WHERE card_id = ?`, cardID).Scan(&position); err != nil {
			return fmt.Errorf("count charges: %w", err)
		}
		args := append([]any{cardID, position, ch.Description, ch.Amount, ch.PurchaseDate, boolInt(ch.IsInstallment), ch.InstallmentCount},
			recurrenceArgs(ch.RecurrenceSpec)...)
		_, err := tx.ExecContext(ctx, `INSERT INTO card_charges
			(card_id, position, description, amount, purchase_date, is_installment, installment_count, `+recurrenceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return fmt.Errorf("insert charge: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (r *SQLiteRepository) DeleteCharge(ctx context.Context, cardID string, index int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM card_charges WHERE card_id = ? AND position = ?`, cardID, index)
		if err != nil {
			return fmt.Errorf("delete charge: %w", err)
		}
		if err := requireAffected(res, fmt.Sprintf("delete charge %s/%d", cardID, index)); err != nil {
			return err
		}
		// Shift in ascending order so the primary key never collides.
		rows, err := tx.QueryContext(ctx, `SELECT position FROM card_charges WHERE card_id = ? AND position > ? ORDER BY position`, cardID, index)
		if err != nil {
			return fmt.Errorf("list later charges: %w", err)
		}
		var later []int
		for rows.Next() {
			var p int
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return fmt.Errorf("scan position: %w", err)
			}
			later = append(later, p)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		for _, p := range later {
			if _, err := tx.ExecContext(ctx, `UPDATE card_charges SET position = ? WHERE card_id = ? AND position = ?`, p-1, cardID, p); err != nil {
				return fmt.Errorf("renumber charge: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) SaveDebitAccount(ctx context.Context, a core.DebitAccountRecord) (string, error) {
	a.ID = newID(a.ID)
	y := a.Yield
	_, err := r.db.ExecContext(ctx, `INSERT INTO debit_accounts
		(id, name, yield_enabled, annual_rate_percent, capped, cap, accrual_frequency, last_accrual_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, yield_enabled = excluded.yield_enabled,
			annual_rate_percent = excluded.annual_rate_percent, capped = excluded.capped, cap = excluded.cap,
			accrual_frequency = excluded.accrual_frequency, last_accrual_date = excluded.last_accrual_date`,
		a.ID, a.Name, boolInt(y.Enabled), y.AnnualRatePercent, boolInt(y.Capped), y.Cap, y.AccrualFrequency, y.LastAccrualDate)
	if err != nil {
		return "", fmt.Errorf("save debit account: %w", err)
	}
	return a.ID, nil
}

func (r *SQLiteRepository) DeleteDebitAccount(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM debit_movements WHERE account_id = ?`, id); err != nil {
			return fmt.Errorf("delete debit movements: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM debit_accounts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete debit account: %w", err)
		}
		return requireAffected(res, "delete debit account "+id)
	})
}

func insertDebitMovement(ctx context.Context, tx *sql.Tx, accountID string, m core.DebitMovementRecord) error {
	args := append([]any{m.ID, accountID, m.Kind, m.Amount, m.Description, boolInt(m.IsYield)}, recurrenceArgs(m.RecurrenceSpec)...)
	_, err := tx.ExecContext(ctx, `INSERT INTO debit_movements
		(id, account_id, kind, amount, description, is_yield, `+recurrenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	return err
}

func debitAccountExists(ctx context.Context, tx *sql.Tx, id string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM debit_accounts WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("find debit account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("debit account %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AddDebitMovement(ctx context.Context, accountID string, m core.DebitMovementRecord) (string, error) {
	m.ID = newID(m.ID)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := debitAccountExists(ctx, tx, accountID); err != nil {
			return err
		}
		if err := insertDebitMovement(ctx, tx, accountID, m); err != nil {
			return fmt.Errorf("insert debit movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (r *SQLiteRepository) DeleteDebitMovement(ctx context.Context, accountID, movementID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debit_movements WHERE account_id = ? AND id = ?`, accountID, movementID)
	if err != nil {
		return fmt.Errorf("delete debit movement: %w", err)
	}
	return requireAffected(res, "delete debit movement "+movementID)
}

func (r *SQLiteRepository) AppendYieldEntries(ctx context.Context, accountID string, entries []core.YieldEntry) ([]core.YieldEntry, error) {
	var written []core.YieldEntry
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := debitAccountExists(ctx, tx, accountID); err != nil {
			return err
		}
		for _, e := range entries {
			var n int
			err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM debit_movements WHERE account_id = ? AND is_yield = 1 AND date = ?`,
				accountID, e.Date.String()).Scan(&n)
			if err != nil {
				return fmt.Errorf("check settled yield: %w", err)
			}
			if n > 0 {
				continue
			}
			e.ID = newID(e.ID)
			if err := insertDebitMovement(ctx, tx, accountID, YieldMovement(e)); err != nil {
				return fmt.Errorf("insert yield entry: %w", err)
			}
			written = append(written, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Yield entries settled",
		"account_id", accountID,
		"requested", len(entries),
		"written", len(written))
	return written, nil
}

func (r *SQLiteRepository) IsPaid(ctx context.Context, key core.PaidKey) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM marked_paid WHERE year = ? AND period_index = ? AND item_id = ?`,
		key.Year, key.PeriodIndex, key.ItemID).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read paid flag: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) SetPaid(ctx context.Context, key core.PaidKey, paid bool) error {
	var err error
	if paid {
		_, err = r.db.ExecContext(ctx, `INSERT INTO marked_paid (year, period_index, item_id) VALUES (?, ?, ?)
			ON CONFLICT(year, period_index, item_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
			key.Year, key.PeriodIndex, key.ItemID)
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM marked_paid WHERE year = ? AND period_index = ? AND item_id = ?`,
			key.Year, key.PeriodIndex, key.ItemID)
	}
	if err != nil {
		return fmt.Errorf("write paid flag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PaidKeys(ctx context.Context, year int) ([]core.PaidKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT year, period_index, item_id FROM marked_paid WHERE year = ? ORDER BY period_index, item_id`, year)
	if err != nil {
		return nil, fmt.Errorf("list paid flags: %w", err)
	}
	defer rows.Close()

	var keys []core.PaidKey
	for rows.Next() {
		var k core.PaidKey
		if err := rows.Scan(&k.Year, &k.PeriodIndex, &k.ItemID); err != nil {
			return nil, fmt.Errorf("scan paid flag: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
