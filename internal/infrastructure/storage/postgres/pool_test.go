package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfig_WithDefaults(t *testing.T) {
	cfg := PoolConfig{DSN: "postgres://localhost/stockledger", MaxConns: 4, MinConns: 10}.withDefaults()

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnIdleTime)
	assert.Equal(t, time.Minute, cfg.HealthCheckPeriod)
	assert.Equal(t, "stockledger", cfg.ApplicationName)

	keep := PoolConfig{MaxConns: 10, MinConns: 2, ApplicationName: "stockctl", MaxConnIdleTime: time.Second}.withDefaults()
	assert.Equal(t, int32(2), keep.MinConns)
	assert.Equal(t, "stockctl", keep.ApplicationName)
	assert.Equal(t, time.Second, keep.MaxConnIdleTime)
}
