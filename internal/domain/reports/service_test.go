package reports_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/stock/stocktest"
)

type fakePeriods struct {
	periods   map[id.ID]*period.Period
	previous  *period.Period
	snapshots []period.Snapshot
}

func (f *fakePeriods) Get(_ context.Context, periodID id.ID) (*period.Period, error) {
	p, ok := f.periods[periodID]
	if !ok {
		return nil, apperror.NewNotFound("period", periodID.String())
	}
	return p, nil
}

func (f *fakePeriods) PreviousClosed(context.Context, *period.Period) (*period.Period, error) {
	return f.previous, nil
}

func (f *fakePeriods) ListSnapshots(_ context.Context, periodID id.ID, locationID *id.ID) ([]period.Snapshot, error) {
	var out []period.Snapshot
	for _, s := range f.snapshots {
		if s.PeriodID == periodID && (locationID == nil || s.LocationID == *locationID) {
			out = append(out, s)
		}
	}
	return out, nil
}

type scenario struct {
	svc     *reports.Service
	stock   *stock.Service
	repo    *stocktest.MemoryRepository
	periods *fakePeriods
	current *period.Period
	loc     id.ID
	item    id.ID
}

// newScenario opens a period with 10 units at 10.00 carried over from the
// previous close, then receives 10 at 20.00 and issues 5.
func newScenario(t *testing.T) *scenario {
	t.Helper()
	ctx := context.Background()
	s := &scenario{
		repo:    stocktest.NewMemoryRepository(),
		current: &period.Period{ID: id.New(), Name: "2026-10", Status: period.StatusOpen},
		loc:     id.New(),
		item:    id.New(),
	}
	prev := &period.Period{ID: id.New(), Name: "2026-09", Status: period.StatusClosed}
	s.periods = &fakePeriods{
		periods:  map[id.ID]*period.Period{s.current.ID: s.current, prev.ID: prev},
		previous: prev,
		snapshots: []period.Snapshot{
			{PeriodID: prev.ID, LocationID: s.loc, ItemID: s.item, Quantity: types.MustQuantity("10"), WAC: types.MustMoney("10"), Value: types.MustMoney("100")},
			{PeriodID: prev.ID, LocationID: id.New(), ItemID: s.item, Quantity: types.MustQuantity("1"), WAC: types.MustMoney("10"), Value: types.MustMoney("10")},
		},
	}
	s.stock = stock.NewService(s.repo)
	s.svc = reports.NewService(nil, s.periods, s.stock)

	s.repo.Seed(s.loc, s.item, types.MustQuantity("10"), types.MustMoney("10"))
	src := stock.Source{Type: stock.SourceDelivery, ID: id.New(), PeriodID: s.current.ID}
	_, err := s.stock.Receive(ctx, stock.ReceiveInput{
		LocationID: s.loc, ItemID: s.item, Quantity: types.MustQuantity("10"), UnitCost: types.MustMoney("20"), Source: src,
	})
	require.NoError(t, err)
	_, err = s.stock.Issue(ctx, stock.IssueInput{
		LocationID: s.loc, ItemID: s.item, Quantity: types.MustQuantity("5"),
		Source: stock.Source{Type: stock.SourceIssue, ID: id.New(), PeriodID: s.current.ID},
	})
	require.NoError(t, err)
	return s
}

func TestValueReport_OpenPeriodReconciles(t *testing.T) {
	s := newScenario(t)

	r, err := s.svc.ValueReport(context.Background(), s.current.ID, s.loc)
	require.NoError(t, err)

	assert.Equal(t, "100.00", r.Opening.StringFixed(2))
	require.NotNil(t, r.OpeningPeriodID)
	assert.Equal(t, "200.00", r.Inbound.StringFixed(2))
	assert.Equal(t, "75.00", r.Outbound.StringFixed(2))
	assert.Equal(t, "225.00", r.ComputedClosing.StringFixed(2))
	assert.Equal(t, reports.ActualFromBalances, r.ActualSource)
	assert.Equal(t, "225.00", r.Actual.StringFixed(2))
	assert.True(t, r.Balanced)
	assert.Len(t, r.Movements, 2)
}

func TestValueReport_ReportsDiscrepancy(t *testing.T) {
	s := newScenario(t)
	s.repo.Seed(s.loc, s.item, types.MustQuantity("14"), types.MustMoney("15"))

	r, err := s.svc.ValueReport(context.Background(), s.current.ID, s.loc)
	require.NoError(t, err)
	assert.False(t, r.Balanced)
	assert.Equal(t, "-15.00", r.Discrepancy.StringFixed(2))
}

func TestValueReport_ClosedPeriodUsesSnapshot(t *testing.T) {
	s := newScenario(t)
	s.current.Status = period.StatusClosed
	s.periods.snapshots = append(s.periods.snapshots, period.Snapshot{
		PeriodID: s.current.ID, LocationID: s.loc, ItemID: s.item,
		Quantity: types.MustQuantity("15"), WAC: types.MustMoney("15"), Value: types.MustMoney("225"),
	})
	s.repo.Seed(s.loc, s.item, types.MustQuantity("0"), types.MustMoney("15"))

	r, err := s.svc.ValueReport(context.Background(), s.current.ID, s.loc)
	require.NoError(t, err)
	assert.Equal(t, reports.ActualFromSnapshot, r.ActualSource)
	assert.True(t, r.Balanced)
}

func TestValueReport_NoPreviousPeriodOpensAtZero(t *testing.T) {
	s := newScenario(t)
	s.periods.previous = nil

	r, err := s.svc.ValueReport(context.Background(), s.current.ID, s.loc)
	require.NoError(t, err)
	assert.Nil(t, r.OpeningPeriodID)
	assert.True(t, r.Opening.IsZero())
	assert.Equal(t, "125.00", r.ComputedClosing.StringFixed(2))
	assert.False(t, r.Balanced)
}
