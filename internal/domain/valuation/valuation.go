// Package valuation holds the pure inventory valuation rules: weighted average
// cost on receipt, value capture on issue, locked-price variance and manday cost.
package valuation

import (
	"errors"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/types"
)

// ErrNonPositiveQuantity is returned when a receipt quantity is zero or negative.
var ErrNonPositiveQuantity = errors.New("received quantity must be positive")

var hundred = decimal.NewFromInt(100)

// WAC returns the weighted average cost after receiving qty units at unitCost
// into a balance holding onHand units valued at currentWAC.
//
// An empty or negative balance takes the receipt cost as is.
func WAC(onHand types.Quantity, currentWAC types.Money, qty types.Quantity, unitCost types.Money) (types.Money, error) {
	if !qty.IsPositive() {
		return decimal.Zero, ErrNonPositiveQuantity
	}
	if !onHand.IsPositive() {
		return types.RoundCost(unitCost), nil
	}

	oldQty := onHand.Decimal()
	inQty := qty.Decimal()

	total := oldQty.Mul(currentWAC).Add(inQty.Mul(unitCost))
	return types.RoundCost(total.Div(oldQty.Add(inQty))), nil
}

// IssueValue is the value captured when qty leaves stock at wac.
func IssueValue(qty types.Quantity, wac types.Money) types.Money {
	return types.RoundMoney(qty.Decimal().Mul(wac))
}

// LineValue is the extended value of a priced line.
func LineValue(qty types.Quantity, price types.Money) types.Money {
	return types.RoundMoney(qty.Decimal().Mul(price))
}

// Variance describes how an actual delivery price deviates from the locked price.
type Variance struct {
	Expected types.Money `json:"expected"`
	Actual   types.Money `json:"actual"`
	UnitDiff types.Money `json:"unitDiff"`
	Amount   types.Money `json:"amount"`
	Percent  types.Money `json:"percent"`
	Exceeds  bool        `json:"exceeds"`
}

// DetectVariance compares actual against locked for a line of qty units.
// Exceeds is set when the absolute percentage deviation is above tolerancePct;
// a zero tolerance flags any deviation. A zero locked price flags any non-zero
// actual price.
func DetectVariance(locked, actual types.Money, qty types.Quantity, tolerancePct types.Money) Variance {
	diff := actual.Sub(locked)
	v := Variance{
		Expected: locked,
		Actual:   actual,
		UnitDiff: types.RoundCost(diff),
		Amount:   types.RoundMoney(diff.Mul(qty.Decimal())),
		Percent:  decimal.Zero,
	}

	if diff.IsZero() {
		return v
	}

	if locked.IsZero() {
		v.Percent = hundred
		v.Exceeds = true
		return v
	}

	v.Percent = diff.Div(locked).Mul(hundred).Round(types.MoneyPlaces)
	v.Exceeds = diff.Abs().Div(locked).Mul(hundred).GreaterThan(tolerancePct)
	return v
}

// MandayCost divides total consumption cost by the number of mandays.
// ok is false when there are no mandays to spread the cost over.
func MandayCost(totalCost types.Money, mandays int64) (cost types.Money, ok bool) {
	if mandays <= 0 {
		return decimal.Zero, false
	}
	return types.RoundMoney(totalCost.Div(decimal.NewFromInt(mandays))), true
}
