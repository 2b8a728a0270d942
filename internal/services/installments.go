package services

import (
	"fmt"

	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

// InstallmentDue is one monthly payment of an MSI plan.
type InstallmentDue struct {
	Index              int             `json:"index"` // 0-based
	PurchaseOccurrence core.Date       `json:"purchase_occurrence"`
	DueDate            core.Date       `json:"due_date"`
	Amount             decimal.Decimal `json:"amount"`
}

// InstallmentStatus summarises an MSI plan as of a given day.
type InstallmentStatus struct {
	CardID           string          `json:"card_id"`
	ChargeIndex      int             `json:"charge_index"`
	Description      string          `json:"description"`
	Total            decimal.Decimal `json:"total"`
	Cuota            decimal.Decimal `json:"cuota"`
	InstallmentCount int             `json:"installment_count"`
	PaymentsMade     int             `json:"payments_made"`
	PaymentsLeft     int             `json:"payments_left"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	AmountLeft       decimal.Decimal `json:"amount_left"`
	NextPayment      core.Date       `json:"next_payment"`
	FinalDueDate     core.Date       `json:"final_due_date"`
}

// splitInstallments divides amount into n cuotas truncated to cents; the
// last one absorbs the remainder so the plan sums to amount exactly.
func splitInstallments(amount decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d installments", core.ErrInvalidInstallmentPlan, n)
	}
	cuota := amount.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	out := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		out[i] = cuota
	}
	out[n-1] = amount.Sub(cuota.Mul(decimal.NewFromInt(int64(n - 1))))
	return out, nil
}

// InstallmentDues expands an MSI charge into exactly InstallmentCount dues.
// Installment i is bought on purchase date + i months (clamped) and due per
// the card's billing cycle.
func InstallmentDues(ch core.Charge, card core.CardAccount) ([]InstallmentDue, error) {
	amounts, err := splitInstallments(ch.Amount, ch.InstallmentCount)
	if err != nil {
		return nil, err
	}
	dues := make([]InstallmentDue, len(amounts))
	for i, amt := range amounts {
		occ := ch.PurchaseDate.AddMonthsClamped(i)
		dues[i] = InstallmentDue{
			Index:              i,
			PurchaseOccurrence: occ,
			DueDate:            DueDate(occ, card),
			Amount:             amt,
		}
	}
	return dues, nil
}

// InstallmentsInPeriod returns the dues of an MSI charge that fall inside p.
func InstallmentsInPeriod(ch core.Charge, card core.CardAccount, p core.Period) ([]InstallmentDue, error) {
	dues, err := InstallmentDues(ch, card)
	if err != nil {
		return nil, err
	}
	var out []InstallmentDue
	for _, d := range dues {
		if p.Contains(d.DueDate) {
			out = append(out, d)
		}
	}
	return out, nil
}

// GetInstallmentStatus partitions a plan around today: installments bought
// strictly before today are made, the rest are left. The next payment is
// the earliest due date on or after today, or the last one when all are past.
func GetInstallmentStatus(ch core.Charge, card core.CardAccount, today core.Date) (InstallmentStatus, error) {
	dues, err := InstallmentDues(ch, card)
	if err != nil {
		return InstallmentStatus{}, err
	}
	st := InstallmentStatus{
		CardID:           card.ID,
		ChargeIndex:      ch.Index,
		Description:      ch.Description,
		Total:            ch.Amount,
		Cuota:            dues[0].Amount,
		InstallmentCount: len(dues),
		AmountPaid:       decimal.Zero,
		AmountLeft:       decimal.Zero,
		FinalDueDate:     dues[len(dues)-1].DueDate,
	}
	for _, d := range dues {
		if d.PurchaseOccurrence.Before(today) {
			st.PaymentsMade++
			st.AmountPaid = st.AmountPaid.Add(d.Amount)
		} else {
			st.PaymentsLeft++
			st.AmountLeft = st.AmountLeft.Add(d.Amount)
		}
		if st.NextPayment.IsEmpty() && d.DueDate.OnOrAfter(today) {
			st.NextPayment = d.DueDate
		}
	}
	if st.NextPayment.IsEmpty() {
		st.NextPayment = st.FinalDueDate
	}
	return st, nil
}
