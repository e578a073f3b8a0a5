package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/types"
)

func TestWAC(t *testing.T) {
	tests := []struct {
		name     string
		onHand   string
		wac      string
		qty      string
		cost     string
		expected string
	}{
		{name: "empty balance takes receipt cost", onHand: "0", wac: "0", qty: "10", cost: "12.5", expected: "12.5"},
		{name: "blends with existing stock", onHand: "10", wac: "10", qty: "10", cost: "20", expected: "15"},
		{name: "weights by quantity", onHand: "30", wac: "2", qty: "10", cost: "6", expected: "3"},
		{name: "rounds to four places", onHand: "3", wac: "1", qty: "3", cost: "1.00005", expected: "1.0000"},
		{name: "fractional quantities", onHand: "2.5", wac: "4", qty: "0.5", cost: "10", expected: "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WAC(
				types.MustQuantity(tt.onHand), types.MustMoney(tt.wac),
				types.MustQuantity(tt.qty), types.MustMoney(tt.cost),
			)
			require.NoError(t, err)
			assert.True(t, got.Equal(types.MustMoney(tt.expected)), "got %s", got)
		})
	}
}

func TestWAC_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := WAC(types.MustQuantity("5"), types.MustMoney("1"), 0, types.MustMoney("1"))
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = WAC(types.MustQuantity("5"), types.MustMoney("1"), types.MustQuantity("-1"), types.MustMoney("1"))
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)
}

func TestIssueValue(t *testing.T) {
	got := IssueValue(types.MustQuantity("3"), types.MustMoney("2.3333"))
	assert.Equal(t, "7.00", got.StringFixed(2))
}

func TestDetectVariance(t *testing.T) {
	t.Run("no deviation", func(t *testing.T) {
		v := DetectVariance(types.MustMoney("10"), types.MustMoney("10"), types.MustQuantity("5"), types.Zero())
		assert.False(t, v.Exceeds)
		assert.True(t, v.Amount.IsZero())
	})

	t.Run("any deviation exceeds zero tolerance", func(t *testing.T) {
		v := DetectVariance(types.MustMoney("10"), types.MustMoney("10.01"), types.MustQuantity("100"), types.Zero())
		assert.True(t, v.Exceeds)
		assert.Equal(t, "1.00", v.Amount.StringFixed(2))
		assert.Equal(t, "0.10", v.Percent.StringFixed(2))
	})

	t.Run("within tolerance", func(t *testing.T) {
		v := DetectVariance(types.MustMoney("10"), types.MustMoney("10.4"), types.MustQuantity("1"), types.MustMoney("5"))
		assert.False(t, v.Exceeds)
		assert.Equal(t, "4.00", v.Percent.StringFixed(2))
	})

	t.Run("below locked price is still a variance", func(t *testing.T) {
		v := DetectVariance(types.MustMoney("10"), types.MustMoney("8"), types.MustQuantity("2"), types.MustMoney("5"))
		assert.True(t, v.Exceeds)
		assert.Equal(t, "-4.00", v.Amount.StringFixed(2))
		assert.Equal(t, "-20.00", v.Percent.StringFixed(2))
	})

	t.Run("zero locked price", func(t *testing.T) {
		v := DetectVariance(types.Zero(), types.MustMoney("1"), types.MustQuantity("1"), types.MustMoney("50"))
		assert.True(t, v.Exceeds)
	})
}

func TestMandayCost(t *testing.T) {
	cost, ok := MandayCost(types.MustMoney("1000"), 30)
	require.True(t, ok)
	assert.Equal(t, "33.33", cost.StringFixed(2))

	_, ok = MandayCost(types.MustMoney("1000"), 0)
	assert.False(t, ok)
}
