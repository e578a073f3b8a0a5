// Package stocktest provides an in-memory stock.Repository for unit tests.
package stocktest

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/stock"
)

type key struct {
	location id.ID
	item     id.ID
}

// MemoryRepository is a map-backed stock.Repository. Locks are no-ops.
type MemoryRepository struct {
	mu        sync.Mutex
	balances  map[key]stock.Balance
	movements []stock.Movement
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{balances: make(map[key]stock.Balance)}
}

// Seed sets a balance directly.
func (r *MemoryRepository) Seed(locationID, itemID id.ID, qty types.Quantity, wac types.Money) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[key{locationID, itemID}] = stock.Balance{
		LocationID: locationID,
		ItemID:     itemID,
		Quantity:   qty,
		WAC:        wac,
	}
}

// Movements returns a copy of all recorded movements in insertion order.
func (r *MemoryRepository) Movements() []stock.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stock.Movement(nil), r.movements...)
}

func (r *MemoryRepository) GetBalance(_ context.Context, locationID, itemID id.ID) (stock.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.balances[key{locationID, itemID}]; ok {
		return b, nil
	}
	return stock.Balance{LocationID: locationID, ItemID: itemID, WAC: decimal.Zero}, nil
}

func (r *MemoryRepository) LockBalance(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error) {
	return r.GetBalance(ctx, locationID, itemID)
}

func (r *MemoryRepository) SaveBalance(_ context.Context, b stock.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[key{b.LocationID, b.ItemID}] = b
	return nil
}

func (r *MemoryRepository) InsertMovements(_ context.Context, movements []stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *MemoryRepository) ListBalances(_ context.Context, filter stock.BalanceFilter) ([]stock.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []stock.Balance
	for k, b := range r.balances {
		if filter.LocationID != nil && k.location != *filter.LocationID {
			continue
		}
		if filter.ExcludeZero && b.Quantity.IsZero() {
			continue
		}
		if len(filter.ItemIDs) > 0 && !containsID(filter.ItemIDs, k.item) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ItemID.String() < out[j].ItemID.String()
	})
	return out, nil
}

func (r *MemoryRepository) ListMovements(_ context.Context, filter stock.MovementFilter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []stock.Movement
	for _, m := range r.movements {
		if matches(m, filter) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepository) SumByKind(ctx context.Context, filter stock.MovementFilter) ([]stock.KindTotal, error) {
	movements, _ := r.ListMovements(ctx, filter)

	totals := make(map[stock.MovementKind]*stock.KindTotal)
	var kinds []stock.MovementKind
	for _, m := range movements {
		t, ok := totals[m.Kind]
		if !ok {
			t = &stock.KindTotal{Kind: m.Kind, Value: decimal.Zero}
			totals[m.Kind] = t
			kinds = append(kinds, m.Kind)
		}
		t.Quantity += m.Quantity
		t.Value = t.Value.Add(m.Value)
	}

	out := make([]stock.KindTotal, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, *totals[k])
	}
	return out, nil
}

func matches(m stock.Movement, f stock.MovementFilter) bool {
	switch {
	case f.LocationID != nil && m.LocationID != *f.LocationID:
		return false
	case f.ItemID != nil && m.ItemID != *f.ItemID:
		return false
	case f.PeriodID != nil && m.PeriodID != *f.PeriodID:
		return false
	case f.Kind != nil && m.Kind != *f.Kind:
		return false
	case f.SourceID != nil && m.SourceID != *f.SourceID:
		return false
	}
	return true
}

func containsID(ids []id.ID, v id.ID) bool {
	for _, x := range ids {
		if x == v {
			return true
		}
	}
	return false
}

var _ stock.Repository = (*MemoryRepository)(nil)
