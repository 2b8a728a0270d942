package services

import "catorcena/internal/core"

// DueDate returns the payment date of a purchase: the purchase is billed on
// the first statement cut-off on or after it, and is due GracePeriodDays
// after that cut-off. Cut-off days past the end of a month clamp to its
// last day.
func DueDate(purchase core.Date, card core.CardAccount) core.Date {
	cut := core.MonthDate(purchase.Year(), purchase.Month(), card.CutOffDay)
	if purchase.Day() > card.CutOffDay {
		cut = core.MonthDate(purchase.Year(), purchase.Month()+1, card.CutOffDay)
	}
	return cut.AddDays(card.GracePeriodDays)
}

// dueLookbackDays bounds how far before a period a purchase can be and
// still fall due inside it: at most one statement month plus the grace days.
func dueLookbackDays(card core.CardAccount) int {
	return card.GracePeriodDays + 62
}
