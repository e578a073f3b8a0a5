package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "stockledger/internal/core/numerator"
)

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// fakeQuerier keeps counters in memory and mimics the two statements of
// the service: increment by $2, or set to $2.
type fakeQuerier struct {
	mu       sync.Mutex
	counters map[string]int64
	calls    int
	err      error
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{counters: make(map[string]int64)}
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return fakeRow{err: q.err}
	}

	key := args[0].(string)
	n := args[1].(int64)
	if strings.Contains(sql, "current_val + EXCLUDED.current_val") {
		q.counters[key] += n
	} else {
		q.counters[key] = n
	}
	return fakeRow{val: q.counters[key]}
}

var march2026 = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig(corenumerator.PrefixDelivery)

	num, err := svc.GetNextNumber(ctx, cfg, nil, march2026)
	require.NoError(t, err)
	assert.Equal(t, "DLV-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, march2026)
	require.NoError(t, err)
	assert.Equal(t, "DLV-2026-00002", num)

	// A new year restarts the sequence.
	num, err = svc.GetNextNumber(ctx, cfg, nil, march2026.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "DLV-2027-00001", num)
	assert.Equal(t, 3, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig(corenumerator.PrefixStockTake)
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	for i := 1; i <= 10; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, march2026)
		require.NoError(t, err)
		assert.Equal(t, cfg.Format(march2026, int64(i)), num)
	}
	assert.Equal(t, 1, q.calls, "one range reservation serves ten numbers")

	num, err := svc.GetNextNumber(ctx, cfg, opts, march2026)
	require.NoError(t, err)
	assert.Equal(t, "STK-2026-00011", num)
	assert.Equal(t, 2, q.calls)
	assert.Equal(t, int64(20), q.counters["STK_2026"])
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig(corenumerator.PrefixNonConformance)
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(ctx, cfg, opts, march2026)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(ctx, cfg, march2026, 100))

	num, err := svc.GetNextNumber(ctx, cfg, opts, march2026)
	require.NoError(t, err)
	assert.Equal(t, "NCR-2026-00100", num)

	assert.Error(t, svc.SetNextNumber(ctx, cfg, march2026, 0))
}

func TestGetNextNumber_QueryError(t *testing.T) {
	q := newFakeQuerier()
	q.err = errors.New("connection refused")
	svc := New(q)

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("PO"), nil, march2026)
	assert.ErrorContains(t, err, "connection refused")
}
