package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Flat records as they cross the persistence boundary. Dates are kept as
// strings so that malformed values survive to be reported as warnings.
type (
	MovementRecord struct {
		ID          string          `json:"id"`
		Kind        string          `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		RecurrenceSpec
	}

	CardRecord struct {
		ID              string          `json:"id"`
		Name            string          `json:"name"`
		CutOffDay       int             `json:"cut_off_day"`
		GracePeriodDays int             `json:"grace_period_days"`
		CreditLimit     decimal.Decimal `json:"credit_limit"`
		Charges         []ChargeRecord  `json:"charges"`
	}

	ChargeRecord struct {
		Description      string          `json:"description"`
		Amount           decimal.Decimal `json:"amount"`
		PurchaseDate     string          `json:"purchase_date"`
		IsInstallment    bool            `json:"is_installment"`
		InstallmentCount int             `json:"installment_count,omitempty"`
		RecurrenceSpec
	}

	DebitAccountRecord struct {
		ID        string                `json:"id"`
		Name      string                `json:"name"`
		Yield     YieldConfigRecord     `json:"yield"`
		Movements []DebitMovementRecord `json:"movements"`
	}

	YieldConfigRecord struct {
		Enabled           bool            `json:"enabled"`
		AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
		Capped            bool            `json:"capped"`
		Cap               decimal.Decimal `json:"cap"`
		AccrualFrequency  string          `json:"accrual_frequency"`
		LastAccrualDate   string          `json:"last_accrual_date"`
	}

	DebitMovementRecord struct {
		ID          string          `json:"id"`
		Kind        string          `json:"kind"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		IsYield     bool            `json:"is_yield,omitempty"`
		RecurrenceSpec
	}

	// Snapshot is one consistent read of every collection the engine needs.
	Snapshot struct {
		Movements     []MovementRecord     `json:"movements"`
		Cards         []CardRecord         `json:"cards"`
		DebitAccounts []DebitAccountRecord `json:"debit_accounts"`
	}
)

func validateEntry(amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	if len(description) > 200 {
		return fmt.Errorf("%w (max 200 characters)", ErrDescriptionTooLong)
	}
	return nil
}

// Decode validates the record and builds the typed movement.
func (r MovementRecord) Decode() (Movement, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return Movement{}, err
	}
	if err := validateEntry(r.Amount, r.Description); err != nil {
		return Movement{}, err
	}
	sched, err := r.RecurrenceSpec.Decode("")
	if err != nil {
		return Movement{}, err
	}
	return Movement{
		ID:          r.ID,
		Kind:        kind,
		Amount:      r.Amount,
		Description: r.Description,
		Schedule:    sched,
	}, nil
}

// Decode validates the record and builds the typed charge at position index
// of card cardID. A recurring charge with an unknown frequency is kept as a
// single purchase at its purchase date and reported as a warning.
func (r ChargeRecord) Decode(cardID string, index int) (Charge, []Warning, error) {
	if err := validateEntry(r.Amount, r.Description); err != nil {
		return Charge{}, nil, err
	}
	purchase, err := ParseDate(r.PurchaseDate)
	if err != nil {
		return Charge{}, nil, fmt.Errorf("purchase date: %w", err)
	}

	ch := Charge{
		Index:            index,
		Description:      r.Description,
		Amount:           r.Amount,
		PurchaseDate:     purchase,
		IsInstallment:    r.IsInstallment,
		InstallmentCount: r.InstallmentCount,
	}
	if r.IsInstallment {
		if r.InstallmentCount <= 0 {
			return Charge{}, nil, fmt.Errorf("%w: %d installments", ErrInvalidInstallmentPlan, r.InstallmentCount)
		}
		ch.Schedule = OneOff{Date: purchase}
		return ch, nil, nil
	}

	spec := r.RecurrenceSpec
	if spec.Recurring {
		freq, err := ParseFrequency(spec.Frequency)
		if err != nil {
			ch.Schedule = OneOff{Date: purchase}
			return ch, []Warning{{Source: "charge", ItemID: ChargeItemID(cardID, index, 0), Err: fmt.Errorf("%w; billed once at purchase date", err)}}, nil
		}
		// monthly charges without a day repeat on the purchase day
		if freq == Monthly && spec.DayOfMonth == 0 {
			spec.DayOfMonth = purchase.Day()
		}
	} else if strings.TrimSpace(spec.Date) == "" {
		spec.Date = r.PurchaseDate
	}
	sched, err := spec.Decode(r.PurchaseDate)
	if err != nil {
		return Charge{}, nil, err
	}
	ch.Schedule = sched
	return ch, nil, nil
}

// Decode builds the typed card. Charges that fail to decode are skipped and
// returned as warnings; an invalid card itself is an error.
func (r CardRecord) Decode() (CardAccount, []Warning, error) {
	card := CardAccount{
		ID:              r.ID,
		Name:            r.Name,
		CutOffDay:       r.CutOffDay,
		GracePeriodDays: r.GracePeriodDays,
		CreditLimit:     r.CreditLimit,
	}
	if err := card.Validate(); err != nil {
		return CardAccount{}, nil, err
	}
	var warnings []Warning
	for i, cr := range r.Charges {
		ch, chWarnings, err := cr.Decode(r.ID, i)
		if err != nil {
			warnings = append(warnings, Warning{Source: "charge", ItemID: ChargeItemID(r.ID, i, 0), Err: err})
			continue
		}
		warnings = append(warnings, chWarnings...)
		card.Charges = append(card.Charges, ch)
	}
	return card, warnings, nil
}

// Decode validates the record and builds the typed debit movement.
func (r DebitMovementRecord) Decode() (DebitMovement, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return DebitMovement{}, err
	}
	if err := validateEntry(r.Amount, r.Description); err != nil {
		return DebitMovement{}, err
	}
	sched, err := r.RecurrenceSpec.Decode("")
	if err != nil {
		return DebitMovement{}, err
	}
	if r.IsYield && (kind != Income || IsRecurring(sched)) {
		return DebitMovement{}, fmt.Errorf("%w: yield entry must be one-off income", ErrInvalidYieldConfig)
	}
	return DebitMovement{
		ID:          r.ID,
		Kind:        kind,
		Amount:      r.Amount,
		Description: r.Description,
		Schedule:    sched,
		IsYield:     r.IsYield,
	}, nil
}

// Decode builds the yield config. A disabled config is accepted as is.
func (r YieldConfigRecord) Decode() (YieldConfig, error) {
	cfg := YieldConfig{
		Enabled:           r.Enabled,
		AnnualRatePercent: r.AnnualRatePercent,
		Capped:            r.Capped,
		Cap:               r.Cap,
		Accrual:           Daily,
	}
	if !r.Enabled {
		return cfg, nil
	}
	if r.AnnualRatePercent.IsNegative() {
		return YieldConfig{}, fmt.Errorf("%w: negative rate", ErrInvalidYieldConfig)
	}
	if r.Capped && r.Cap.IsNegative() {
		return YieldConfig{}, fmt.Errorf("%w: negative cap", ErrInvalidYieldConfig)
	}
	if strings.TrimSpace(r.AccrualFrequency) != "" {
		freq, err := ParseFrequency(r.AccrualFrequency)
		if err != nil || (freq != Daily && freq != Monthly) {
			return YieldConfig{}, fmt.Errorf("%w: accrual frequency %q", ErrInvalidYieldConfig, r.AccrualFrequency)
		}
		cfg.Accrual = freq
	}
	last, err := ParseDate(r.LastAccrualDate)
	if err != nil {
		return YieldConfig{}, fmt.Errorf("%w: last accrual date: %v", ErrInvalidYieldConfig, err)
	}
	cfg.LastAccrualDate = last
	return cfg, nil
}

// Decode builds the typed debit account. Broken movements become warnings;
// a broken yield config disables yield and is reported as a warning too.
func (r DebitAccountRecord) Decode() (DebitAccount, []Warning) {
	acct := DebitAccount{ID: r.ID, Name: r.Name}
	var warnings []Warning

	cfg, err := r.Yield.Decode()
	if err != nil {
		warnings = append(warnings, Warning{Source: "debit_account", ItemID: r.ID, Err: err})
		cfg = YieldConfig{}
	}
	acct.Yield = cfg

	for _, mr := range r.Movements {
		m, err := mr.Decode()
		if err != nil {
			warnings = append(warnings, Warning{Source: "debit_movement", ItemID: mr.ID, Err: err})
			continue
		}
		acct.Movements = append(acct.Movements, m)
	}
	return acct, warnings
}
