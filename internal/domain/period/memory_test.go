package period

import (
	"context"
	"sort"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

type memoryRepo struct {
	periods   map[id.ID]*Period
	states    map[id.ID]map[id.ID]LocationState
	prices    map[id.ID]map[id.ID]LockedPrice
	snapshots []Snapshot
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periods: make(map[id.ID]*Period),
		states:  make(map[id.ID]map[id.ID]LocationState),
		prices:  make(map[id.ID]map[id.ID]LockedPrice),
	}
}

func (r *memoryRepo) Create(_ context.Context, p *Period) error {
	cp := *p
	r.periods[p.ID] = &cp
	return nil
}

func (r *memoryRepo) Update(_ context.Context, p *Period) error {
	stored, ok := r.periods[p.ID]
	if !ok {
		return apperror.NewNotFound("period", p.ID.String())
	}
	if stored.Version != p.Version {
		return apperror.NewConcurrentModification("period", p.ID.String())
	}
	p.Version++
	cp := *p
	r.periods[p.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, periodID id.ID) (*Period, error) {
	p, ok := r.periods[periodID]
	if !ok {
		return nil, apperror.NewNotFound("period", periodID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, periodID id.ID) (*Period, error) {
	return r.GetByID(ctx, periodID)
}

func (r *memoryRepo) List(_ context.Context, f ListFilter) ([]*Period, int64, error) {
	var out []*Period
	for _, p := range r.periods {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, int64(len(out)), nil
}

func (r *memoryRepo) HasOverlap(_ context.Context, start, end time.Time, excludeID *id.ID) (bool, error) {
	for _, p := range r.periods {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if !start.After(p.EndDate) && !end.Before(p.StartDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) FindByDate(_ context.Context, date time.Time) (*Period, error) {
	for _, p := range r.periods {
		if p.Contains(date) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) FindOpen(_ context.Context) (*Period, error) {
	for _, p := range r.periods {
		if p.Status == StatusOpen {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) PreviousClosed(_ context.Context, before time.Time) (*Period, error) {
	var best *Period
	for _, p := range r.periods {
		if p.Status != StatusClosed || !p.EndDate.Before(before) {
			continue
		}
		if best == nil || p.EndDate.After(best.EndDate) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *memoryRepo) CreateLocationStates(_ context.Context, states []LocationState) error {
	for _, st := range states {
		if r.states[st.PeriodID] == nil {
			r.states[st.PeriodID] = make(map[id.ID]LocationState)
		}
		r.states[st.PeriodID][st.LocationID] = st
	}
	return nil
}

func (r *memoryRepo) ListLocationStates(_ context.Context, periodID id.ID) ([]LocationState, error) {
	var out []LocationState
	for _, st := range r.states[periodID] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID.String() < out[j].LocationID.String() })
	return out, nil
}

func (r *memoryRepo) GetLocationState(_ context.Context, periodID, locationID id.ID, _ LockMode) (*LocationState, error) {
	st, ok := r.states[periodID][locationID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *memoryRepo) UpdateLocationState(_ context.Context, s LocationState) error {
	r.states[s.PeriodID][s.LocationID] = s
	return nil
}

func (r *memoryRepo) UpsertPrices(_ context.Context, prices []LockedPrice) error {
	for _, p := range prices {
		if r.prices[p.PeriodID] == nil {
			r.prices[p.PeriodID] = make(map[id.ID]LockedPrice)
		}
		r.prices[p.PeriodID][p.ItemID] = p
	}
	return nil
}

func (r *memoryRepo) ListPrices(_ context.Context, periodID id.ID) ([]LockedPrice, error) {
	var out []LockedPrice
	for _, p := range r.prices[periodID] {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) GetPrice(_ context.Context, periodID, itemID id.ID) (*LockedPrice, error) {
	p, ok := r.prices[periodID][itemID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memoryRepo) CopyPrices(_ context.Context, fromID, toID id.ID) (int64, error) {
	var n int64
	for itemID, p := range r.prices[fromID] {
		if r.prices[toID] == nil {
			r.prices[toID] = make(map[id.ID]LockedPrice)
		}
		p.PeriodID = toID
		r.prices[toID][itemID] = p
		n++
	}
	return n, nil
}

func (r *memoryRepo) InsertSnapshots(_ context.Context, snapshots []Snapshot) error {
	r.snapshots = append(r.snapshots, snapshots...)
	return nil
}

func (r *memoryRepo) ListSnapshots(_ context.Context, periodID id.ID, locationID *id.ID) ([]Snapshot, error) {
	var out []Snapshot
	for _, s := range r.snapshots {
		if s.PeriodID != periodID {
			continue
		}
		if locationID != nil && s.LocationID != *locationID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

var _ Repository = (*memoryRepo)(nil)
