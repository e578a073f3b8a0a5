package pob

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/valuation"
	"stockledger/pkg/logger"
)

// PeriodReader loads the period whose window bounds the manday calculation.
type PeriodReader interface {
	Get(ctx context.Context, periodID id.ID) (*period.Period, error)
}

// IssueSummer aggregates the movement ledger.
type IssueSummer interface {
	SumByKind(ctx context.Context, filter stock.MovementFilter) ([]stock.KindTotal, error)
}

// Service records headcounts and computes manday cost.
type Service struct {
	repo    Repository
	periods PeriodReader
	stock   IssueSummer
	now     func() time.Time
}

// NewService creates a new POB service.
func NewService(repo Repository, periods PeriodReader, stockSummer IssueSummer) *Service {
	return &Service{
		repo:    repo,
		periods: periods,
		stock:   stockSummer,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordInput is the headcount of a location on a day.
type RecordInput struct {
	LocationID id.ID
	Date       time.Time
	Count      int64
}

// Record stores the headcount, replacing an earlier entry for the same day.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Entry, error) {
	now := s.now()
	e := &Entry{
		ID:         id.New(),
		LocationID: in.LocationID,
		EntryDate:  truncateDay(in.Date),
		Count:      in.Count,
		RecordedBy: appctx.ActorOrSystem(ctx),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, e); err != nil {
		return nil, fmt.Errorf("upsert pob: %w", err)
	}

	logger.Info(ctx, "pob recorded",
		"location_id", e.LocationID,
		"date", e.EntryDate.Format(time.DateOnly),
		"count", e.Count)
	return e, nil
}

// List returns POB entries matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[Entry], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[Entry]{}, err
	}
	return domain.ListResult[Entry]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// MandayCost divides the issue value of a location in a period by the
// headcount recorded over the period window. CostPerManday is nil when no
// mandays were recorded.
func (s *Service) MandayCost(ctx context.Context, locationID, periodID id.ID) (*MandayCost, error) {
	p, err := s.periods.Get(ctx, periodID)
	if err != nil {
		return nil, err
	}

	kind := stock.KindIssue
	totals, err := s.stock.SumByKind(ctx, stock.MovementFilter{
		LocationID: &locationID,
		PeriodID:   &p.ID,
		Kind:       &kind,
	})
	if err != nil {
		return nil, fmt.Errorf("sum issues: %w", err)
	}
	cost := decimal.Zero
	for _, t := range totals {
		if t.Kind == stock.KindIssue {
			cost = cost.Add(t.Value)
		}
	}

	mandays, days, err := s.repo.Sum(ctx, locationID, p.StartDate, p.EndDate)
	if err != nil {
		return nil, fmt.Errorf("sum pob: %w", err)
	}

	res := &MandayCost{
		LocationID:   locationID,
		PeriodID:     p.ID,
		From:         p.StartDate,
		To:           p.EndDate,
		TotalCost:    cost,
		Mandays:      mandays,
		DaysRecorded: days,
	}
	if perManday, ok := valuation.MandayCost(cost, mandays); ok {
		res.CostPerManday = &perManday
	}
	return res, nil
}
