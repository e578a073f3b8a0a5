// Package numerator is the PostgreSQL-backed document numbering service.
// Counters live in sys_numerators, one row per prefix and reset window.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "stockledger/internal/core/numerator"
)

// Querier is the subset of pgx used by the service.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierProvider resolves the querier for a call, so that strict numbers
// are taken inside the caller's transaction.
type QuerierProvider func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering.
type Service struct {
	querier QuerierProvider

	// cacheMu protects ranges
	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator that always uses q.
func New(q Querier) *Service {
	return NewWithProvider(func(context.Context) Querier { return q })
}

// NewWithProvider creates a numerator that resolves its querier per call.
func NewWithProvider(p QuerierProvider) *Service {
	return &Service{
		querier: p,
		ranges:  make(map[string]*cachedRange),
	}
}

// GetNextNumber generates the next document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., DLV-2026-00001)
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := cfg.Key(period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, key, opts)
	default:
		num, err = s.reserve(ctx, key, 1)
	}
	if err != nil {
		return "", err
	}

	return cfg.Format(period, num), nil
}

// reserve advances the counter by n and returns its new value.
func (s *Service) reserve(ctx context.Context, key string, n int64) (int64, error) {
	var current int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_numerators (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_numerators.current_val + EXCLUDED.current_val
		RETURNING current_val
	`, key, n).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("reserve number %s: %w", key, err)
	}
	return current, nil
}

// getNextCached serves numbers from an in-memory range, reserving the next
// range from the database when the current one is used up.
func (s *Service) getNextCached(ctx context.Context, key string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		newMax, err := s.reserve(ctx, key, size)
		if err != nil {
			return 0, err
		}
		// The reserved range is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber makes value the next number issued for cfg in period.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next number must be positive, got %d", value)
	}
	key := cfg.Key(period)

	var current int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_numerators (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = EXCLUDED.current_val
		RETURNING current_val
	`, key, value-1).Scan(&current)
	if err != nil {
		return fmt.Errorf("set next number %s: %w", key, err)
	}

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()

	return nil
}
