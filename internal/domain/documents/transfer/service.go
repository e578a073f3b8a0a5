package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/valuation"
	"stockledger/pkg/logger"
)

// ApprovalRequester opens the transfer approval.
type ApprovalRequester interface {
	Request(ctx context.Context, in approval.RequestInput) (*approval.Approval, error)
}

// PeriodResolver finds the open period for a posting.
type PeriodResolver interface {
	ResolveOpen(ctx context.Context, date time.Time, locationID id.ID) (*period.Period, error)
}

// StockMover is the part of the stock service used by transfers.
type StockMover interface {
	CheckAvailability(ctx context.Context, locationID id.ID, reqs []stock.Requirement) error
	GetBalance(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error)
	Transfer(ctx context.Context, in stock.TransferInput) (stock.Movement, stock.Movement, error)
}

// Service provides business operations for transfers.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	approvals ApprovalRequester
	periods   PeriodResolver
	stock     StockMover
	events    domain.EventPublisher
	hooks     *domain.HookRegistry[*Transfer]
	now       func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Numerator numerator.Generator
	TxManager tx.Manager
	Approvals ApprovalRequester
	Periods   PeriodResolver
	Stock     StockMover
	Events    domain.EventPublisher
}

// NewService creates a new transfer service.
func NewService(d Deps) *Service {
	events := d.Events
	if events == nil {
		events = domain.NopPublisher{}
	}
	s := &Service{
		repo:      d.Repo,
		numerator: d.Numerator,
		txManager: d.TxManager,
		approvals: d.Approvals,
		periods:   d.Periods,
		stock:     d.Stock,
		events:    events,
		hooks:     domain.NewHookRegistry[*Transfer](),
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*Transfer])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Transfer] {
	return s.hooks
}

// Create validates stock at the source, stores the transfer as
// PENDING_APPROVAL and requests approval. Stock is not reserved.
func (s *Service) Create(ctx context.Context, doc *Transfer) (*Transfer, error) {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return nil, err
	}
	doc.Status = StatusPendingApproval
	doc.RequestedBy = appctx.ActorOrSystem(ctx)
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	reqs := make([]stock.Requirement, len(doc.Lines))
	for i, l := range doc.Lines {
		reqs[i] = stock.Requirement{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	if err := s.stock.CheckAvailability(ctx, doc.FromLocationID, reqs); err != nil {
		return nil, err
	}

	var result *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if doc.Number == "" {
			number, err := Numbering.Next(ctx, s.numerator, doc.Date)
			if err != nil {
				return err
			}
			doc.Number = number
		}

		estimate := decimal.Zero
		for _, l := range doc.Lines {
			bal, err := s.stock.GetBalance(ctx, doc.FromLocationID, l.ItemID)
			if err != nil {
				return fmt.Errorf("get balance: %w", err)
			}
			estimate = estimate.Add(valuation.IssueValue(l.Quantity, bal.WAC))
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		total, _ := estimate.Float64()
		if _, err := s.approvals.Request(ctx, approval.RequestInput{
			EntityType: approval.EntityTransfer,
			EntityID:   doc.ID,
			Summary: approval.Summary{
				TotalValue: total,
				LineCount:  len(doc.Lines),
				LocationID: doc.FromLocationID.String(),
			},
		}); err != nil {
			return fmt.Errorf("request approval: %w", err)
		}

		var err error
		result, err = s.GetByID(ctx, doc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer requested",
		"id", result.ID,
		"number", result.Number,
		"from_location_id", result.FromLocationID,
		"to_location_id", result.ToLocationID,
		"status", result.Status)
	return result, nil
}

// OnApproved implements approval.Handler: the transfer is executed at the
// source WAC and completed.
func (s *Service) OnApproved(ctx context.Context, a *approval.Approval) error {
	doc, err := s.getForUpdate(ctx, a.EntityID)
	if err != nil {
		return err
	}
	if err := doc.TransitionTo(StatusApproved); err != nil {
		return err
	}

	executedAt := s.now()
	p, err := s.periods.ResolveOpen(ctx, executedAt, doc.FromLocationID)
	if err != nil {
		return err
	}
	if _, err := s.periods.ResolveOpen(ctx, executedAt, doc.ToLocationID); err != nil {
		return err
	}

	src := stock.Source{Type: stock.SourceTransfer, ID: doc.ID, PeriodID: p.ID}
	for i := range doc.Lines {
		line := &doc.Lines[i]
		out, _, err := s.stock.Transfer(ctx, stock.TransferInput{
			FromLocationID: doc.FromLocationID,
			ToLocationID:   doc.ToLocationID,
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			Source:         src,
		})
		if err != nil {
			return err
		}
		line.UnitCost = out.UnitCost
		line.LineValue = out.Value
	}
	doc.recalculateTotals()

	if err := doc.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	periodID := p.ID
	doc.PeriodID = &periodID
	doc.ExecutedAt = &executedAt
	doc.UpdatedBy = appctx.ActorOrSystem(ctx)

	if err := s.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}

	logger.Info(ctx, "transfer completed", "id", doc.ID, "total_value", doc.TotalValue)
	return s.events.Publish(ctx, domain.Event{
		AggregateType: "transfer",
		AggregateID:   doc.ID,
		EventType:     "transfer.completed",
		Payload:       doc,
	})
}

// OnRejected implements approval.Handler.
func (s *Service) OnRejected(ctx context.Context, a *approval.Approval) error {
	doc, err := s.repo.GetForUpdate(ctx, a.EntityID)
	if err != nil {
		return err
	}
	if err := doc.TransitionTo(StatusRejected); err != nil {
		return err
	}
	doc.UpdatedBy = appctx.ActorOrSystem(ctx)
	if err := s.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return s.events.Publish(ctx, domain.Event{
		AggregateType: "transfer",
		AggregateID:   doc.ID,
		EventType:     "transfer.rejected",
		Payload:       doc,
	})
}

func (s *Service) getForUpdate(ctx context.Context, docID id.ID) (*Transfer, error) {
	doc, err := s.repo.GetForUpdate(ctx, docID)
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

// GetByID retrieves a transfer with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Transfer, error) {
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

// List retrieves transfers with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transfer], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Transfer]{}, err
	}
	return domain.ListResult[*Transfer]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}

var _ approval.Handler = (*Service)(nil)
