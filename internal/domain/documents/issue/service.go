package issue

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/pkg/logger"
)

// PeriodResolver finds the open period for a posting.
type PeriodResolver interface {
	ResolveOpen(ctx context.Context, date time.Time, locationID id.ID) (*period.Period, error)
}

// StockIssuer books outgoing stock.
type StockIssuer interface {
	Issue(ctx context.Context, in stock.IssueInput) (stock.Movement, error)
}

// Service provides business operations for issues.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	periods   PeriodResolver
	stock     StockIssuer
	events    domain.EventPublisher
	hooks     *domain.HookRegistry[*Issue]
}

// NewService creates a new issue service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	periods PeriodResolver,
	stockIssuer StockIssuer,
	events domain.EventPublisher,
) *Service {
	s := &Service{
		repo:      repo,
		numerator: numerator,
		txManager: txManager,
		periods:   periods,
		stock:     stockIssuer,
		events:    events,
		hooks:     domain.NewHookRegistry[*Issue](),
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*Issue])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Issue] {
	return s.hooks
}

// Create posts an issue. Each line is valued at the current WAC; the whole
// issue fails if any line would take stock below zero.
func (s *Service) Create(ctx context.Context, doc *Issue) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.periods.ResolveOpen(ctx, doc.Date, doc.LocationID)
		if err != nil {
			return err
		}
		doc.PeriodID = p.ID

		if doc.Number == "" {
			number, err := Numbering.Next(ctx, s.numerator, doc.Date)
			if err != nil {
				return err
			}
			doc.Number = number
		}

		src := stock.Source{Type: stock.SourceIssue, ID: doc.ID, PeriodID: p.ID}
		for i := range doc.Lines {
			line := &doc.Lines[i]
			m, err := s.stock.Issue(ctx, stock.IssueInput{
				LocationID: doc.LocationID,
				ItemID:     line.ItemID,
				Quantity:   line.Quantity,
				Source:     src,
			})
			if err != nil {
				return err
			}
			line.WACAtIssue = m.UnitCost
			line.LineValue = m.Value
		}
		doc.recalculateTotals()

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "issue",
			AggregateID:   doc.ID,
			EventType:     "issue.created",
			Payload:       doc,
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "issue created",
		"id", doc.ID,
		"number", doc.Number,
		"location_id", doc.LocationID,
		"total_value", doc.TotalValue)
	return nil
}

// GetByID retrieves an issue with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Issue, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List retrieves issues with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Issue], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Issue]{}, err
	}
	return domain.ListResult[*Issue]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}
