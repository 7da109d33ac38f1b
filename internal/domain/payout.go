package domain

import (
	"github.com/shopspring/decimal"
)

// Odds bounds used when an admin authors or edits a ticket option. The payout
// calculator itself only requires odds >= 1.
var (
	MinAuthoringOdds = decimal.RequireFromString("1.01")
	MaxAuthoringOdds = decimal.NewFromInt(100)
)

// MoneyPlaces is the most decimal places a stake, balance or authored odds
// value may carry. A stake times odds then fits the 4-place money columns
// without rounding.
const MoneyPlaces = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Payout returns the gross amount credited to a winning bet:
//
//	payout = stake × odds
//
// The result keeps full precision; use RoundMoney only when presenting it.
func Payout(stake, odds decimal.Decimal) (decimal.Decimal, error) {
	if odds.LessThan(one) {
		return decimal.Zero, ErrInvalidOdds
	}
	if !stake.IsPositive() || !WithinPlaces(stake, MoneyPlaces) {
		return decimal.Zero, ErrInvalidStake
	}
	return stake.Mul(odds), nil
}

// WithinPlaces reports whether d has no significant digits beyond places
// decimal places. Trailing zeros do not count, so 2.500 is within 2.
func WithinPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// ValidateOdds checks that odds fall within the authoring range [1.01, 100]
// with at most MoneyPlaces decimal places.
func ValidateOdds(odds decimal.Decimal) error {
	if odds.LessThan(MinAuthoringOdds) || odds.GreaterThan(MaxAuthoringOdds) ||
		!WithinPlaces(odds, MoneyPlaces) {
		return ErrInvalidOdds
	}
	return nil
}

// RoundMoney rounds a money value to two decimal places for display.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ──────────────────────────────────────────────────────────────────────────────
// American odds (display only)
// ──────────────────────────────────────────────────────────────────────────────

// AmericanToDecimal converts American odds to a decimal multiplier.
//
//	+150 → 2.50
//	-150 → 1.6667
//
// Returns ErrInvalidOdds for 0.
func AmericanToDecimal(american int64) (decimal.Decimal, error) {
	if american == 0 {
		return decimal.Zero, ErrInvalidOdds
	}
	a := decimal.NewFromInt(american)
	if american > 0 {
		return a.Div(hundred).Add(one), nil
	}
	return hundred.Div(a.Neg()).Add(one), nil
}

// DecimalToAmerican converts a decimal multiplier to American odds, rounded
// to the nearest integer. Odds of exactly 1.0 have no American equivalent and
// report ok=false.
func DecimalToAmerican(odds decimal.Decimal) (american int64, ok bool) {
	if odds.LessThanOrEqual(one) {
		return 0, false
	}
	if odds.GreaterThanOrEqual(decimal.NewFromInt(2)) {
		return odds.Sub(one).Mul(hundred).Round(0).IntPart(), true
	}
	return hundred.Neg().Div(odds.Sub(one)).Round(0).IntPart(), true
}
