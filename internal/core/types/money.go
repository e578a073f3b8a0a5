// Package types holds the numeric types used for stock quantities and values.
package types

import "github.com/shopspring/decimal"

// Money is an exact decimal amount: prices, WAC and extended values.
type Money = decimal.Decimal

const (
	// CostPlaces is the precision of unit costs and weighted average costs.
	CostPlaces int32 = 4
	// MoneyPlaces is the precision of extended values and document totals.
	MoneyPlaces int32 = 2
)

// NewMoney converts f. Prefer MustMoney or parsing for exact literals.
func NewMoney(f float64) Money { return decimal.NewFromFloat(f) }

// MustMoney parses s and panics when it is not a decimal.
func MustMoney(s string) Money { return decimal.RequireFromString(s) }

// Zero is the zero amount.
func Zero() Money { return decimal.Zero }

// RoundCost rounds a unit cost to CostPlaces.
func RoundCost(m Money) Money { return m.Round(CostPlaces) }

// RoundMoney rounds an extended value to MoneyPlaces.
func RoundMoney(m Money) Money { return m.Round(MoneyPlaces) }
