package period

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/stock/stocktest"
)

type staticLocations []id.ID

func (l staticLocations) ActiveLocationIDs(context.Context) ([]id.ID, error) { return l, nil }

// fakeApprovals records requests and optionally approves them at once.
type fakeApprovals struct {
	requests []approval.RequestInput
	handler  approval.Handler
	auto     bool
}

func (f *fakeApprovals) Request(ctx context.Context, in approval.RequestInput) (*approval.Approval, error) {
	f.requests = append(f.requests, in)
	a := &approval.Approval{ID: id.New(), EntityType: in.EntityType, EntityID: in.EntityID, Status: approval.StatusPending}
	if f.auto {
		a.Status = approval.StatusApproved
		if err := f.handler.OnApproved(ctx, a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

type fixture struct {
	svc       *Service
	repo      *memoryRepo
	stock     *stocktest.MemoryRepository
	approvals *fakeApprovals
	locA      id.ID
	locB      id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMemoryRepo(),
		stock:     stocktest.NewMemoryRepository(),
		approvals: &fakeApprovals{},
		locA:      id.New(),
		locB:      id.New(),
	}
	f.svc = NewService(Deps{
		Repo:      f.repo,
		Locations: staticLocations{f.locA, f.locB},
		Balances:  stock.NewService(f.stock),
		Approvals: f.approvals,
		TxManager: &tx.MockManager{},
	})
	f.approvals.handler = f.svc
	return f
}

func ctxAs(user string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: user})
}

func date(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) openPeriod(t *testing.T, name, start, end string) *Period {
	t.Helper()
	ctx := context.Background()
	p, err := f.svc.Create(ctx, CreateInput{Name: name, StartDate: date(start), EndDate: date(end)})
	require.NoError(t, err)
	p, err = f.svc.Open(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func TestService_CreateRejectsOverlapAndBadRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Name: "Jan", StartDate: date("2026-01-01"), EndDate: date("2026-01-31")})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateInput{Name: "Overlap", StartDate: date("2026-01-31"), EndDate: date("2026-02-27")})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	_, err = f.svc.Create(ctx, CreateInput{Name: "Backwards", StartDate: date("2026-03-31"), EndDate: date("2026-03-01")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_OpenCreatesLocationRowsAndAllowsOneOpenPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jan := f.openPeriod(t, "Jan", "2026-01-01", "2026-01-31")
	assert.Equal(t, StatusOpen, jan.Status)
	assert.NotNil(t, jan.OpenedAt)

	states, err := f.svc.ListLocationStates(ctx, jan.ID)
	require.NoError(t, err)
	require.Len(t, states, 2)
	for _, st := range states {
		assert.Equal(t, LocationOpen, st.Status)
	}

	feb, err := f.svc.Create(ctx, CreateInput{Name: "Feb", StartDate: date("2026-02-01"), EndDate: date("2026-02-28")})
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, feb.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	_, err = f.svc.Open(ctx, jan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestService_PricesLockOnceOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := id.New()

	p, err := f.svc.Create(ctx, CreateInput{Name: "Jan", StartDate: date("2026-01-01"), EndDate: date("2026-01-31")})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetPrices(ctx, p.ID, []PriceInput{{ItemID: item, Price: types.MustMoney("12.5")}}))
	require.NoError(t, f.svc.SetPrices(ctx, p.ID, []PriceInput{{ItemID: item, Price: types.MustMoney("13")}}))

	price, err := f.svc.GetLockedPrice(ctx, p.ID, item)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Price.Equal(types.MustMoney("13")))

	prices, err := f.svc.ListPrices(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 1)

	_, err = f.svc.Open(ctx, p.ID)
	require.NoError(t, err)

	err = f.svc.SetPrices(ctx, p.ID, []PriceInput{{ItemID: item, Price: types.MustMoney("14")}})
	assert.True(t, apperror.HasCode(err, apperror.CodePriceAlreadyLocked))

	missing, err := f.svc.GetLockedPrice(ctx, p.ID, id.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestService_SetPricesValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := id.New()
	p, err := f.svc.Create(ctx, CreateInput{Name: "Jan", StartDate: date("2026-01-01"), EndDate: date("2026-01-31")})
	require.NoError(t, err)

	err = f.svc.SetPrices(ctx, p.ID, []PriceInput{{ItemID: item, Price: types.MustMoney("-1")}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = f.svc.SetPrices(ctx, p.ID, []PriceInput{
		{ItemID: item, Price: types.MustMoney("1")},
		{ItemID: item, Price: types.MustMoney("2")},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_CopyPricesIntoDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := id.New()

	jan, err := f.svc.Create(ctx, CreateInput{Name: "Jan", StartDate: date("2026-01-01"), EndDate: date("2026-01-31")})
	require.NoError(t, err)
	require.NoError(t, f.svc.SetPrices(ctx, jan.ID, []PriceInput{{ItemID: item, Price: types.MustMoney("4")}}))

	feb, err := f.svc.Create(ctx, CreateInput{
		Name: "Feb", StartDate: date("2026-02-01"), EndDate: date("2026-02-28"), CopyPricesFrom: &jan.ID,
	})
	require.NoError(t, err)
	price, err := f.svc.GetLockedPrice(ctx, feb.ID, item)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Price.Equal(types.MustMoney("4")))

	mar, err := f.svc.Create(ctx, CreateInput{Name: "Mar", StartDate: date("2026-03-01"), EndDate: date("2026-03-31")})
	require.NoError(t, err)
	n, err := f.svc.CopyPrices(ctx, jan.ID, mar.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.svc.Open(ctx, mar.ID)
	require.NoError(t, err)
	_, err = f.svc.CopyPrices(ctx, jan.ID, mar.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodePriceAlreadyLocked))
}

func TestService_ResolveOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResolveOpen(ctx, date("2026-01-10"), f.locA)
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodNotOpen))

	jan := f.openPeriod(t, "Jan", "2026-01-01", "2026-01-31")

	got, err := f.svc.ResolveOpen(ctx, date("2026-01-10").Add(15*time.Hour), f.locA)
	require.NoError(t, err)
	assert.Equal(t, jan.ID, got.ID)

	_, err = f.svc.ResolveOpen(ctx, date("2026-01-10"), id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeLocationNotOpen))

	_, err = f.svc.MarkLocationReady(ctx, jan.ID, f.locA)
	require.NoError(t, err)
	_, err = f.svc.ResolveOpen(ctx, date("2026-01-10"), f.locA)
	assert.True(t, apperror.HasCode(err, apperror.CodeLocationNotOpen))

	_, err = f.svc.ReopenLocation(ctx, jan.ID, f.locA)
	require.NoError(t, err)
	_, err = f.svc.ResolveOpen(ctx, date("2026-01-10"), f.locA)
	assert.NoError(t, err)
}

func TestService_RequestCloseNeedsEveryLocationReady(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs("controller")
	jan := f.openPeriod(t, "Jan", "2026-01-01", "2026-01-31")

	_, err := f.svc.MarkLocationReady(ctx, jan.ID, f.locA)
	require.NoError(t, err)

	_, err = f.svc.RequestClose(ctx, jan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
	assert.Empty(t, f.approvals.requests)

	_, err = f.svc.MarkLocationReady(ctx, jan.ID, f.locB)
	require.NoError(t, err)

	p, err := f.svc.RequestClose(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingClose, p.Status)
	require.Len(t, f.approvals.requests, 1)
	assert.Equal(t, approval.EntityPeriodClose, f.approvals.requests[0].EntityType)
	assert.Equal(t, jan.ID, f.approvals.requests[0].EntityID)

	_, err = f.svc.ReopenLocation(ctx, jan.ID, f.locA)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestService_RejectedCloseReturnsToOpen(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs("controller")
	jan := f.openPeriod(t, "Jan", "2026-01-01", "2026-01-31")
	for _, loc := range []id.ID{f.locA, f.locB} {
		_, err := f.svc.MarkLocationReady(ctx, jan.ID, loc)
		require.NoError(t, err)
	}
	_, err := f.svc.RequestClose(ctx, jan.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.OnRejected(ctx, &approval.Approval{EntityID: jan.ID}))

	p, err := f.svc.Get(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, p.Status)

	_, err = f.svc.Close(ctx, jan.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestService_CloseSnapshotsEveryLocation(t *testing.T) {
	f := newFixture(t)
	f.approvals.auto = true
	ctx := ctxAs("controller")

	itemX, itemY := id.New(), id.New()
	f.stock.Seed(f.locA, itemX, types.MustQuantity("10"), types.MustMoney("2.5"))
	f.stock.Seed(f.locB, itemX, types.MustQuantity("4"), types.MustMoney("3"))
	f.stock.Seed(f.locB, itemY, types.MustQuantity("1"), types.MustMoney("100"))

	jan := f.openPeriod(t, "Jan", "2026-01-01", "2026-01-31")
	for _, loc := range []id.ID{f.locA, f.locB} {
		_, err := f.svc.MarkLocationReady(ctx, jan.ID, loc)
		require.NoError(t, err)
	}

	p, err := f.svc.RequestClose(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, p.Status)

	closed, err := f.svc.Close(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, "controller", closed.ClosedBy)
	assert.NotNil(t, closed.ClosedAt)

	all, err := f.svc.ListSnapshots(ctx, jan.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	atB, err := f.svc.ListSnapshots(ctx, jan.ID, &f.locB)
	require.NoError(t, err)
	require.Len(t, atB, 2)
	total := types.Zero()
	for _, s := range atB {
		total = total.Add(s.Value)
	}
	assert.Equal(t, "112.00", total.StringFixed(2))

	states, err := f.svc.ListLocationStates(ctx, jan.ID)
	require.NoError(t, err)
	for _, st := range states {
		assert.Equal(t, LocationClosed, st.Status)
	}

	_, err = f.svc.ResolveOpen(ctx, date("2026-01-15"), f.locA)
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodClosed))

	prev, err := f.svc.PreviousClosed(ctx, &Period{StartDate: date("2026-02-01")})
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, jan.ID, prev.ID)
}

func TestService_CloseApprovedClosesAll(t *testing.T) {
	f := newFixture(t)
	f.approvals.auto = true
	ctx := context.Background()

	jan := f.openPeriod(t, "Jan", "2026-01-01", "2026-01-31")
	for _, loc := range []id.ID{f.locA, f.locB} {
		_, err := f.svc.MarkLocationReady(ctx, jan.ID, loc)
		require.NoError(t, err)
	}
	_, err := f.svc.RequestClose(ctx, jan.ID)
	require.NoError(t, err)

	n, err := f.svc.CloseApproved(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := f.svc.Get(ctx, jan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, p.Status)
	assert.Equal(t, appctx.SystemActor, p.ClosedBy)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusOpen))
	assert.True(t, CanTransition(StatusPendingClose, StatusOpen))
	assert.False(t, CanTransition(StatusClosed, StatusOpen))
	assert.False(t, CanTransition(StatusOpen, StatusClosed))
	assert.False(t, CanTransition(StatusApproved, StatusOpen))
}
