package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	YieldProjected YieldState = "projected"
	YieldSettled   YieldState = "settled"
)

// YieldDescription labels system-generated yield income.
const YieldDescription = "Rendimiento"

type (
	// Kind tells income from expense.
	Kind string

	// YieldState is the lifecycle of a yield entry: projected entries are
	// display-only, settled ones are persisted and count toward the balance.
	YieldState string

	Movement struct {
		ID          string
		Kind        Kind
		Amount      decimal.Decimal
		Description string
		Schedule    Recurrence
	}

	CardAccount struct {
		ID              string
		Name            string
		CutOffDay       int
		GracePeriodDays int
		CreditLimit     decimal.Decimal
		Charges         []Charge
	}

	// Charge is one purchase on a card. Installment charges are always
	// amortized monthly from the purchase date and their Schedule is a OneOff.
	Charge struct {
		Index            int // position within the card
		Description      string
		Amount           decimal.Decimal
		PurchaseDate     Date
		IsInstallment    bool
		InstallmentCount int
		Schedule         Recurrence
	}

	DebitAccount struct {
		ID        string
		Name      string
		Yield     YieldConfig
		Movements []DebitMovement
	}

	YieldConfig struct {
		Enabled           bool
		AnnualRatePercent decimal.Decimal
		Capped            bool
		Cap               decimal.Decimal
		Accrual           Frequency // Daily or Monthly
		LastAccrualDate   Date
	}

	DebitMovement struct {
		ID          string
		Kind        Kind
		Amount      decimal.Decimal
		Description string
		Schedule    Recurrence
		IsYield     bool // settled, system-generated yield income
	}

	YieldEntry struct {
		ID        string          `json:"id"`
		AccountID string          `json:"account_id"`
		Date      Date            `json:"date"`
		Amount    decimal.Decimal `json:"amount"`
		State     YieldState      `json:"state"`
	}

	// PaidKey addresses one item occurrence inside one period.
	PaidKey struct {
		Year        int    `json:"year"`
		PeriodIndex int    `json:"period_index"`
		ItemID      string `json:"item_id"`
	}
)

var (
	ErrEmptyDescription       = errors.New("empty description")
	ErrDescriptionTooLong     = errors.New("description too long")
	ErrInvalidKind            = errors.New("invalid movement kind")
	ErrInvalidCard            = errors.New("invalid card")
	ErrInvalidInstallmentPlan = errors.New("invalid installment plan")
	ErrInvalidYieldConfig     = errors.New("invalid yield config")
	ErrNotFound               = errors.New("not found")
)

// ParseKind accepts "income"/"expense" and the legacy "ingreso"/"gasto".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "ingreso":
		return Income, nil
	case "expense", "gasto":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Signed returns the amount as a balance delta: positive for income.
func (k Kind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == Expense {
		return amount.Neg()
	}
	return amount
}

func (c CardAccount) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCard)
	}
	if c.CutOffDay < 1 || c.CutOffDay > 31 {
		return fmt.Errorf("%w: cut-off day %d", ErrInvalidCard, c.CutOffDay)
	}
	if c.GracePeriodDays < 0 {
		return fmt.Errorf("%w: grace period %d", ErrInvalidCard, c.GracePeriodDays)
	}
	return nil
}

// ChargeItemID builds the overlay id of one card charge occurrence.
func ChargeItemID(cardID string, chargeIndex, occurrence int) string {
	return fmt.Sprintf("%s-%d-%d", cardID, chargeIndex, occurrence)
}

// Period is one 14-day accounting cycle ("catorcena").
type Period struct {
	Index int  `json:"index"`
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// PeriodLength is the number of days in a period.
const PeriodLength = 14

// NewPeriod builds the period starting at start.
func NewPeriod(index int, start Date) Period {
	return Period{Index: index, Start: start, End: start.AddDays(PeriodLength - 1)}
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.Within(p.Start, p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	days := make([]Date, 0, PeriodLength)
	for d := p.Start; d.OnOrBefore(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Warning is a data-quality signal: a record was left out of a computation
// or read in a degraded form.
type Warning struct {
	Source string
	ItemID string
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s %s: %v", w.Source, w.ItemID, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

func (w Warning) MarshalJSON() ([]byte, error) {
	msg := ""
	if w.Err != nil {
		msg = w.Err.Error()
	}
	return json.Marshal(struct {
		Source  string `json:"source"`
		ItemID  string `json:"item_id"`
		Message string `json:"message"`
	}{w.Source, w.ItemID, msg})
}
