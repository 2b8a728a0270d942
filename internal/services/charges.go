package services

import (
	"catorcena/internal/core"

	"github.com/shopspring/decimal"
)

// ChargeDue is one card obligation inside a period: an MSI cuota or one
// purchase occurrence of a plain or recurring charge.
type ChargeDue struct {
	CardID            string          `json:"card_id"`
	CardName          string          `json:"card_name"`
	ChargeIndex       int             `json:"charge_index"`
	Occurrence        int             `json:"occurrence"`
	ItemID            string          `json:"item_id"`
	Description       string          `json:"description"`
	PurchaseDate      core.Date       `json:"purchase_date"`
	DueDate           core.Date       `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	Installment       bool            `json:"installment"`
	InstallmentNumber int             `json:"installment_number,omitempty"` // 1-based
	InstallmentCount  int             `json:"installment_count,omitempty"`
}

// ChargeDuesInPeriod returns the due dates inside p of every purchase
// occurrence of a non-installment charge, in purchase order.
func ChargeDuesInPeriod(ch core.Charge, card core.CardAccount, p core.Period) []core.Date {
	occ := chargeOccurrencesDueIn(ch, card, p)
	out := make([]core.Date, len(occ))
	for i, o := range occ {
		out[i] = o.due
	}
	return out
}

type chargeOccurrence struct {
	ordinal  int
	purchase core.Date
	due      core.Date
}

func chargeOccurrencesDueIn(ch core.Charge, card core.CardAccount, p core.Period) []chargeOccurrence {
	// The due date never precedes the purchase, and trails it by at most
	// one statement month plus the grace days.
	from := p.Start.AddDays(-dueLookbackDays(card))
	var out []chargeOccurrence
	for _, d := range Occurrences(ch.Schedule, from, p.End) {
		due := DueDate(d, card)
		if p.Contains(due) {
			out = append(out, chargeOccurrence{ordinal: occurrenceOrdinal(ch.Schedule, d), purchase: d, due: due})
		}
	}
	return out
}

// occurrenceOrdinal numbers d within its schedule, starting at 0, so that an
// occurrence keeps the same item id whichever period it is listed in.
func occurrenceOrdinal(r core.Recurrence, d core.Date) int {
	switch v := r.(type) {
	case core.DailyRecurrence:
		return v.StartDate.DaysUntil(d)
	case core.WeeklyRecurrence:
		return core.FirstOccurrenceOnOrAfter(v.StartDate, v.Weekday).DaysUntil(d) / 7
	case core.BiweeklyRecurrence:
		return v.StartDate.DaysUntil(d) / core.PeriodLength
	case core.MonthlyRecurrence:
		n := (d.Year()-v.StartDate.Year())*12 + d.Month() - v.StartDate.Month()
		if core.MonthDate(v.StartDate.Year(), v.StartDate.Month(), v.DayOfMonth).Before(v.StartDate) {
			n--
		}
		return n
	}
	return 0
}

// CardDuesInPeriod lists every obligation of the card that falls due in p.
// Charges with a broken installment plan are skipped and reported.
func CardDuesInPeriod(card core.CardAccount, p core.Period) ([]ChargeDue, []core.Warning) {
	var (
		dues     []ChargeDue
		warnings []core.Warning
	)
	for _, ch := range card.Charges {
		if ch.IsInstallment {
			inst, err := InstallmentsInPeriod(ch, card, p)
			if err != nil {
				warnings = append(warnings, core.Warning{Source: "charge", ItemID: core.ChargeItemID(card.ID, ch.Index, 0), Err: err})
				continue
			}
			for _, d := range inst {
				dues = append(dues, ChargeDue{
					CardID:            card.ID,
					CardName:          card.Name,
					ChargeIndex:       ch.Index,
					Occurrence:        d.Index,
					ItemID:            core.ChargeItemID(card.ID, ch.Index, d.Index),
					Description:       ch.Description,
					PurchaseDate:      d.PurchaseOccurrence,
					DueDate:           d.DueDate,
					Amount:            d.Amount,
					Installment:       true,
					InstallmentNumber: d.Index + 1,
					InstallmentCount:  ch.InstallmentCount,
				})
			}
			continue
		}
		for _, o := range chargeOccurrencesDueIn(ch, card, p) {
			dues = append(dues, ChargeDue{
				CardID:       card.ID,
				CardName:     card.Name,
				ChargeIndex:  ch.Index,
				Occurrence:   o.ordinal,
				ItemID:       core.ChargeItemID(card.ID, ch.Index, o.ordinal),
				Description:  ch.Description,
				PurchaseDate: o.purchase,
				DueDate:      o.due,
				Amount:       ch.Amount,
			})
		}
	}
	return dues, warnings
}

// CardPeriodTotal sums the card's obligations falling due in p: the monthly
// cuota for installment charges and the full amount per occurrence otherwise.
func CardPeriodTotal(card core.CardAccount, p core.Period) decimal.Decimal {
	dues, _ := CardDuesInPeriod(card, p)
	total := decimal.Zero
	for _, d := range dues {
		total = total.Add(d.Amount)
	}
	return total
}
