package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/pkg/logger"
)

// BalanceTolerance absorbs per-row rounding of balance values.
var BalanceTolerance = decimal.New(1, -2)

// PeriodReader is the part of the period service used by reports.
type PeriodReader interface {
	Get(ctx context.Context, periodID id.ID) (*period.Period, error)
	PreviousClosed(ctx context.Context, p *period.Period) (*period.Period, error)
	ListSnapshots(ctx context.Context, periodID id.ID, locationID *id.ID) ([]period.Snapshot, error)
}

// StockReader aggregates the movement ledger and balances.
type StockReader interface {
	SumByKind(ctx context.Context, filter stock.MovementFilter) ([]stock.KindTotal, error)
	ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.Balance, error)
}

// Service provides report generation operations.
type Service struct {
	repo    Repository
	periods PeriodReader
	stock   StockReader
	now     func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository, periods PeriodReader, stockReader StockReader) *Service {
	return &Service{
		repo:    repo,
		periods: periods,
		stock:   stockReader,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ValueReport reconciles the value of a location over a period.
func (s *Service) ValueReport(ctx context.Context, periodID, locationID id.ID) (*ValueReport, error) {
	p, err := s.periods.Get(ctx, periodID)
	if err != nil {
		return nil, err
	}

	r := &ValueReport{
		PeriodID:    p.ID,
		PeriodName:  p.Name,
		LocationID:  locationID,
		Opening:     decimal.Zero,
		Inbound:     decimal.Zero,
		Outbound:    decimal.Zero,
		Movements:   []KindLine{},
		GeneratedAt: s.now(),
	}

	prev, err := s.periods.PreviousClosed(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("previous closed period: %w", err)
	}
	if prev != nil {
		r.OpeningPeriodID = &prev.ID
		if r.Opening, err = s.snapshotValue(ctx, prev.ID, locationID); err != nil {
			return nil, err
		}
	}

	totals, err := s.stock.SumByKind(ctx, stock.MovementFilter{PeriodID: &p.ID, LocationID: &locationID})
	if err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}
	for _, t := range totals {
		line := KindLine{Kind: t.Kind, Inbound: t.Kind.Inbound(), Quantity: t.Quantity, Value: t.Value}
		if line.Inbound {
			r.Inbound = r.Inbound.Add(t.Value)
		} else {
			r.Outbound = r.Outbound.Add(t.Value)
		}
		r.Movements = append(r.Movements, line)
	}
	r.ComputedClosing = types.RoundMoney(r.Opening.Add(r.Inbound).Sub(r.Outbound))

	if p.Status == period.StatusClosed {
		r.ActualSource = ActualFromSnapshot
		r.Actual, err = s.snapshotValue(ctx, p.ID, locationID)
	} else {
		r.ActualSource = ActualFromBalances
		r.Actual, err = s.balanceValue(ctx, locationID)
	}
	if err != nil {
		return nil, err
	}

	r.Discrepancy = r.Actual.Sub(r.ComputedClosing)
	r.Balanced = r.Discrepancy.Abs().LessThanOrEqual(BalanceTolerance)

	if !r.Balanced {
		logger.Warn(ctx, "period value does not reconcile",
			"period_id", p.ID,
			"location_id", locationID,
			"computed", r.ComputedClosing,
			"actual", r.Actual)
	}
	return r, nil
}

func (s *Service) snapshotValue(ctx context.Context, periodID, locationID id.ID) (types.Money, error) {
	rows, err := s.periods.ListSnapshots(ctx, periodID, &locationID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list snapshots: %w", err)
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value)
	}
	return total, nil
}

func (s *Service) balanceValue(ctx context.Context, locationID id.ID) (types.Money, error) {
	balances, err := s.stock.ListBalances(ctx, stock.BalanceFilter{LocationID: &locationID, ExcludeZero: true})
	if err != nil {
		return decimal.Zero, fmt.Errorf("list balances: %w", err)
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Value())
	}
	return total, nil
}

// GetStockValuation generates the stock valuation report.
func (s *Service) GetStockValuation(ctx context.Context, filter StockValuationFilter) (*StockValuation, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	report, err := s.repo.GetStockValuation(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get stock valuation: %w", err)
	}
	report.AsOf = s.now()
	return report, nil
}
