package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the number of fractional digits a Quantity keeps.
const QuantityPlaces = 4

var (
	maxScaled = decimal.NewFromInt(math.MaxInt64)
	minScaled = decimal.NewFromInt(math.MinInt64)
)

// Quantity counts stock in ten-thousandths of a unit, stored as BIGINT.
type Quantity int64

// ParseQuantity reads a decimal string such as "12.5" or "1e3". Digits past
// QuantityPlaces are truncated; values that do not fit a Quantity are
// rejected.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	scaled := d.Shift(QuantityPlaces).Truncate(0)
	if scaled.GreaterThan(maxScaled) || scaled.LessThan(minScaled) {
		return 0, fmt.Errorf("quantity %q out of range", s)
	}
	return Quantity(scaled.IntPart()), nil
}

// MustQuantity is ParseQuantity for literals; it panics on bad input.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityFromDecimal truncates d to QuantityPlaces. d must be in range;
// untrusted input goes through ParseQuantity.
func QuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Shift(QuantityPlaces).Truncate(0).IntPart())
}

// Decimal returns q as an exact decimal for cost arithmetic.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -QuantityPlaces) }

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }
func (q Quantity) Neg() Quantity    { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

func (q Quantity) Min(other Quantity) Quantity {
	return min(q, other)
}

// String formats q with exactly QuantityPlaces fractional digits.
func (q Quantity) String() string {
	return q.Decimal().StringFixed(QuantityPlaces)
}

// MarshalJSON writes q as a bare JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a JSON number, a quoted decimal or null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	parsed, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
