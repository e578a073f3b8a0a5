package numerator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march2026 = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func TestConfig_KeyAndFormat(t *testing.T) {
	cfg := DefaultConfig(PrefixDelivery)
	assert.Equal(t, "DLV-2026-00042", cfg.Format(march2026, 42))
	assert.Equal(t, "DLV_2026", cfg.Key(march2026))

	cfg = Config{Prefix: "TRF", PadWidth: 3, Reset: ResetNever}
	assert.Equal(t, "TRF-042", cfg.Format(march2026, 42))
	assert.Equal(t, "TRF", cfg.Key(march2026))

	cfg.Reset = ResetMonthly
	assert.Equal(t, "TRF_2026_03", cfg.Key(march2026))
}

func TestSequence_Next(t *testing.T) {
	seq := NewSequence(PrefixStockTake, StrategyCached)
	gen := &MockGenerator{}

	first, err := seq.Next(context.Background(), gen, march2026)
	require.NoError(t, err)
	second, err := seq.Next(context.Background(), gen, march2026)
	require.NoError(t, err)
	nextYear, err := seq.Next(context.Background(), gen, march2026.AddDate(1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, "STK-2026-00001", first)
	assert.Equal(t, "STK-2026-00002", second)
	assert.Equal(t, "STK-2027-00001", nextYear)
}

func TestSequence_NextPassesStrategy(t *testing.T) {
	seq := NewSequence(PrefixIssue, StrategyCached)
	gen := &MockGenerator{
		GetNextNumberFunc: func(_ context.Context, cfg Config, opts *Options, _ time.Time) (string, error) {
			assert.Equal(t, StrategyCached, opts.Strategy)
			assert.Equal(t, PrefixIssue, cfg.Prefix)
			return "", errors.New("sequence table locked")
		},
	}

	_, err := seq.Next(context.Background(), gen, march2026)
	assert.ErrorContains(t, err, "generate ISS number")
}
