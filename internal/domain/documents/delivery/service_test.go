package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/domain/documents/purchase_order"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/stock/stocktest"
)

type memoryRepo struct {
	docs  map[id.ID]*delivery.Delivery
	lines map[id.ID][]delivery.Line
}

func (r *memoryRepo) Create(_ context.Context, d *delivery.Delivery) error {
	cp := *d
	cp.Lines = nil
	r.docs[d.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, docID id.ID) (*delivery.Delivery, error) {
	d, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("delivery", docID.String())
	}
	cp := *d
	return &cp, nil
}

func (r *memoryRepo) List(context.Context, delivery.ListFilter) ([]*delivery.Delivery, int64, error) {
	return nil, 0, nil
}

func (r *memoryRepo) GetLines(_ context.Context, docID id.ID) ([]delivery.Line, error) {
	return r.lines[docID], nil
}

func (r *memoryRepo) SaveLines(_ context.Context, docID id.ID, lines []delivery.Line) error {
	r.lines[docID] = append([]delivery.Line(nil), lines...)
	return nil
}

type fakePeriods struct {
	period *period.Period
	prices map[id.ID]types.Money
	err    error
}

func (f *fakePeriods) ResolveOpen(context.Context, time.Time, id.ID) (*period.Period, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.period, nil
}

func (f *fakePeriods) GetLockedPrice(_ context.Context, periodID, itemID id.ID) (*period.LockedPrice, error) {
	p, ok := f.prices[itemID]
	if !ok {
		return nil, nil
	}
	return &period.LockedPrice{PeriodID: periodID, ItemID: itemID, Price: p}, nil
}

type fakeOrders struct {
	calls  int
	target purchase_order.ReceiptTarget
	err    error
}

func (f *fakeOrders) RegisterReceipt(_ context.Context, _ id.ID, target purchase_order.ReceiptTarget, lines []purchase_order.ReceiptLine) (*purchase_order.PurchaseOrder, []id.ID, error) {
	f.calls++
	f.target = target
	if f.err != nil {
		return nil, nil, f.err
	}
	matched := make([]id.ID, len(lines))
	for i := range lines {
		matched[i] = id.New()
	}
	return &purchase_order.PurchaseOrder{}, matched, nil
}

type fakeNCRs struct {
	raised []ncr.VarianceInput
}

func (f *fakeNCRs) CreateAutoFromVariance(_ context.Context, in ncr.VarianceInput) (*ncr.NCR, error) {
	f.raised = append(f.raised, in)
	return &ncr.NCR{}, nil
}

type fixture struct {
	svc     *delivery.Service
	repo    *memoryRepo
	stock   *stocktest.MemoryRepository
	periods *fakePeriods
	orders  *fakeOrders
	ncrs    *fakeNCRs
}

func newFixture(tolerance string) *fixture {
	f := &fixture{
		repo:    &memoryRepo{docs: map[id.ID]*delivery.Delivery{}, lines: map[id.ID][]delivery.Line{}},
		stock:   stocktest.NewMemoryRepository(),
		periods: &fakePeriods{period: &period.Period{ID: id.New(), Status: period.StatusOpen}, prices: map[id.ID]types.Money{}},
		orders:  &fakeOrders{},
		ncrs:    &fakeNCRs{},
	}
	f.svc = delivery.NewService(delivery.Deps{
		Repo:      f.repo,
		Numerator: &numerator.MockGenerator{},
		TxManager: &tx.MockManager{},
		Periods:   f.periods,
		Stock:     stock.NewService(f.stock),
		Orders:    f.orders,
		NCRs:      f.ncrs,
	}, delivery.Config{VarianceTolerancePct: types.MustMoney(tolerance)})
	return f
}

func TestService_CreateReceivesStockAndRecordsWAC(t *testing.T) {
	f := newFixture("0")
	ctx := context.Background()
	supplier, location, item := id.New(), id.New(), id.New()
	f.stock.Seed(location, item, types.MustQuantity("10"), types.MustMoney("4"))

	doc := delivery.NewDelivery(supplier, location)
	doc.AddLine(item, types.MustQuantity("10"), types.MustMoney("6"), nil)
	require.NoError(t, f.svc.Create(ctx, doc))

	assert.Equal(t, f.periods.period.ID, doc.PeriodID)
	assert.Contains(t, doc.Number, "DLV-")
	assert.Equal(t, "60.00", doc.TotalAmount.StringFixed(2))
	assert.True(t, doc.Lines[0].WACBefore.Equal(types.MustMoney("4")))
	assert.True(t, doc.Lines[0].WACAfter.Equal(types.MustMoney("5")))
	assert.Nil(t, doc.Lines[0].LockedPrice)
	assert.False(t, doc.HasVariance)
	assert.Empty(t, f.ncrs.raised)
	assert.Zero(t, f.orders.calls)

	movements := f.stock.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, stock.SourceDelivery, movements[0].SourceType)
	assert.Equal(t, doc.ID, movements[0].SourceID)
	assert.Equal(t, doc.PeriodID, movements[0].PeriodID)

	stored, err := f.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
}

func TestService_CreateRaisesNCROnPriceVariance(t *testing.T) {
	f := newFixture("0")
	ctx := context.Background()
	supplier, location := id.New(), id.New()
	onPrice, offPrice, unlocked := id.New(), id.New(), id.New()
	f.periods.prices[onPrice] = types.MustMoney("2")
	f.periods.prices[offPrice] = types.MustMoney("10")

	doc := delivery.NewDelivery(supplier, location)
	doc.AddLine(onPrice, types.MustQuantity("5"), types.MustMoney("2"), nil)
	doc.AddLine(offPrice, types.MustQuantity("3"), types.MustMoney("10.5"), nil)
	doc.AddLine(unlocked, types.MustQuantity("1"), types.MustMoney("99"), nil)
	require.NoError(t, f.svc.Create(ctx, doc))

	assert.True(t, doc.HasVariance)
	assert.Equal(t, 1, doc.VarianceCount)
	assert.False(t, doc.Lines[0].HasVariance)
	require.NotNil(t, doc.Lines[0].LockedPrice)
	assert.True(t, doc.Lines[1].HasVariance)
	assert.Equal(t, "1.50", doc.Lines[1].VarianceAmount.StringFixed(2))
	assert.Equal(t, "5.00", doc.Lines[1].VariancePct.StringFixed(2))
	assert.Nil(t, doc.Lines[2].LockedPrice)

	require.Len(t, f.ncrs.raised, 1)
	raised := f.ncrs.raised[0]
	assert.Equal(t, offPrice, raised.ItemID)
	assert.Equal(t, doc.ID, raised.DeliveryID)
	assert.Equal(t, doc.Lines[1].LineID, raised.DeliveryLineID)
	assert.Equal(t, doc.Number, raised.DeliveryNumber)
}

func TestService_ToleranceSuppressesSmallVariance(t *testing.T) {
	f := newFixture("5")
	item := id.New()
	f.periods.prices[item] = types.MustMoney("10")

	doc := delivery.NewDelivery(id.New(), id.New())
	doc.AddLine(item, types.MustQuantity("1"), types.MustMoney("10.5"), nil)
	require.NoError(t, f.svc.Create(context.Background(), doc))

	assert.False(t, doc.HasVariance)
	assert.Equal(t, "5.00", doc.Lines[0].VariancePct.StringFixed(2))
	assert.Empty(t, f.ncrs.raised)
}

func TestService_CreateAgainstPurchaseOrder(t *testing.T) {
	f := newFixture("0")
	supplier, location, item := id.New(), id.New(), id.New()
	poID := id.New()

	doc := delivery.NewDelivery(supplier, location)
	doc.POID = &poID
	doc.AddLine(item, types.MustQuantity("2"), types.MustMoney("1"), nil)
	require.NoError(t, f.svc.Create(context.Background(), doc))

	assert.Equal(t, 1, f.orders.calls)
	assert.Equal(t, purchase_order.ReceiptTarget{SupplierID: supplier, LocationID: location}, f.orders.target)
	assert.NotNil(t, doc.Lines[0].POLineID)
}

func TestService_CreateFailsBeforeTouchingStock(t *testing.T) {
	f := newFixture("0")
	poID := id.New()
	f.orders.err = apperror.NewOverReceipt("line", "1.0000", "1.0000", "1.0000")

	doc := delivery.NewDelivery(id.New(), id.New())
	doc.POID = &poID
	doc.AddLine(id.New(), types.MustQuantity("1"), types.MustMoney("1"), nil)
	err := f.svc.Create(context.Background(), doc)
	assert.True(t, apperror.HasCode(err, apperror.CodeOverReceipt))
	assert.Empty(t, f.stock.Movements())

	f.orders.err = nil
	f.periods.err = apperror.NewPeriodNotOpen("2026-01-01")
	err = f.svc.Create(context.Background(), doc)
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodNotOpen))
	assert.Empty(t, f.stock.Movements())
}

func TestService_CreateValidates(t *testing.T) {
	f := newFixture("0")

	empty := delivery.NewDelivery(id.New(), id.New())
	err := f.svc.Create(context.Background(), empty)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	orphan := delivery.NewDelivery(id.New(), id.New())
	lineID := id.New()
	orphan.AddLine(id.New(), types.MustQuantity("1"), types.MustMoney("1"), &lineID)
	err = f.svc.Create(context.Background(), orphan)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	zero := delivery.NewDelivery(id.New(), id.New())
	zero.AddLine(id.New(), 0, types.MustMoney("1"), nil)
	err = f.svc.Create(context.Background(), zero)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
