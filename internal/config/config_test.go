package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "stockledger", cfg.App.Name)
		assert.True(t, cfg.App.IsDevelopment())
		assert.Equal(t, "8080", cfg.HTTP.Port)
		assert.True(t, cfg.HTTP.IdempotencyEnabled)
		assert.Equal(t, 24*time.Hour, cfg.HTTP.IdempotencyTTL)
		assert.Equal(t, int32(25), cfg.Database.MaxConns)
		assert.Equal(t, 30*time.Second, cfg.Database.StatementTimeout)
		assert.Equal(t, 6379, cfg.Redis.Port)
		assert.False(t, cfg.Approvals.AllowSelfApproval)
		assert.True(t, cfg.Valuation.VarianceTolerancePct.IsZero())
		assert.Equal(t, 100, cfg.Worker.BatchSize)
		assert.False(t, cfg.Worker.AutoClosePeriods)
	})

	t.Run("loads values from environment variables with STOCKLEDGER prefix", func(t *testing.T) {
		t.Setenv("STOCKLEDGER_HTTP_PORT", "9090")
		t.Setenv("STOCKLEDGER_DATABASE_URL", "postgres://u:p@db:5432/stock")
		t.Setenv("STOCKLEDGER_DATABASE_MAX_CONNS", "40")
		t.Setenv("STOCKLEDGER_REDIS_ENABLED", "false")
		t.Setenv("STOCKLEDGER_VALUATION_VARIANCE_TOLERANCE_PCT", "2.5")
		t.Setenv("STOCKLEDGER_WORKER_AUTO_CLOSE_PERIODS", "true")
		t.Setenv("STOCKLEDGER_WORKER_POLL_INTERVAL", "2s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.HTTP.Port)
		assert.Equal(t, "postgres://u:p@db:5432/stock", cfg.Database.URL)
		assert.Equal(t, int32(40), cfg.Database.MaxConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.True(t, cfg.Valuation.VarianceTolerancePct.Equal(decimal.RequireFromString("2.5")))
		assert.True(t, cfg.Worker.AutoClosePeriods)
		assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	})

	t.Run("rejects malformed tolerance", func(t *testing.T) {
		t.Setenv("STOCKLEDGER_VALUATION_VARIANCE_TOLERANCE_PCT", "abc")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "variance_tolerance_pct")
	})

	t.Run("production requires a strong jwt secret", func(t *testing.T) {
		t.Setenv("STOCKLEDGER_APP_ENV", "production")
		t.Setenv("STOCKLEDGER_AUTH_JWT_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_secret")
	})
}

func TestFromViper_AutoApproveRules(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
approvals:
  allow_self_approval: true
  auto_approve:
    transfer: 'total_value < 500.0'
valuation:
  variance_tolerance_pct: "1"
`)))

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.Approvals.AllowSelfApproval)
	assert.Equal(t, map[string]string{"TRANSFER": "total_value < 500.0"}, cfg.Approvals.AutoApprove)
	assert.True(t, cfg.Valuation.VarianceTolerancePct.Equal(decimal.NewFromInt(1)))
}

func TestValidate(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg, err := fromViper(v)
	require.NoError(t, err)

	cfg.Database.MinConns = cfg.Database.MaxConns + 1
	assert.Error(t, cfg.validate())

	cfg.Database.MinConns = 1
	cfg.Valuation.VarianceTolerancePct = decimal.NewFromInt(-1)
	assert.Error(t, cfg.validate())
}
