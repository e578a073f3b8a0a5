package purchase_requisition

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/audit"
	"stockledger/pkg/logger"
)

// ApprovalRequester opens the PRF approval.
type ApprovalRequester interface {
	Request(ctx context.Context, in approval.RequestInput) (*approval.Approval, error)
}

// Service provides business operations for requisitions.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	approvals ApprovalRequester
	events    domain.EventPublisher
	hooks     *domain.HookRegistry[*PurchaseRequisition]
}

// NewService creates a new requisition service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	approvals ApprovalRequester,
	events domain.EventPublisher,
) *Service {
	s := &Service{
		repo:      repo,
		numerator: numerator,
		txManager: txManager,
		approvals: approvals,
		events:    events,
		hooks:     domain.NewHookRegistry[*PurchaseRequisition](),
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*PurchaseRequisition])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PurchaseRequisition] {
	return s.hooks
}

// Create stores a DRAFT requisition.
func (s *Service) Create(ctx context.Context, doc *PurchaseRequisition) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
	if doc.RequestedBy == "" {
		doc.RequestedBy = appctx.ActorOrSystem(ctx)
	}
	doc.Status = StatusDraft
	doc.recalculateTotals()

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := Numbering.Next(ctx, s.numerator, doc.Date)
		if err != nil {
			return err
		}
		doc.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "purchase requisition created",
		"id", doc.ID,
		"number", doc.Number,
		"estimated_total", doc.EstimatedTotal)
	return nil
}

// Submit sends a DRAFT or REJECTED requisition for approval.
func (s *Service) Submit(ctx context.Context, docID id.ID) (*PurchaseRequisition, error) {
	var result *PurchaseRequisition
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.TransitionTo(StatusPendingApproval); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		lines, err := s.repo.GetLines(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		total, _ := doc.EstimatedTotal.Float64()
		if _, err := s.approvals.Request(ctx, approval.RequestInput{
			EntityType: approval.EntityPRF,
			EntityID:   doc.ID,
			Summary: approval.Summary{
				TotalValue: total,
				LineCount:  len(lines),
				LocationID: doc.LocationID.String(),
			},
		}); err != nil {
			return fmt.Errorf("request approval: %w", err)
		}

		result, err = s.GetByID(ctx, doc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase requisition submitted", "id", result.ID, "status", result.Status)
	return result, nil
}

// OnApproved implements approval.Handler.
func (s *Service) OnApproved(ctx context.Context, a *approval.Approval) error {
	return s.transition(ctx, a.EntityID, StatusApproved, "prf.approved")
}

// OnRejected implements approval.Handler.
func (s *Service) OnRejected(ctx context.Context, a *approval.Approval) error {
	return s.transition(ctx, a.EntityID, StatusRejected, "prf.rejected")
}

// MarkConverted records that a purchase order was raised from an APPROVED
// requisition. It joins the caller's transaction and returns the lines.
func (s *Service) MarkConverted(ctx context.Context, docID id.ID) (*PurchaseRequisition, error) {
	var result *PurchaseRequisition
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Status != StatusApproved {
			return apperror.NewInvalidTransition("purchase requisition", string(doc.Status), string(StatusConverted)).
				WithDetail("reason", "only an approved requisition can be converted")
		}
		if err := s.transition(ctx, docID, StatusConverted, "prf.converted"); err != nil {
			return err
		}
		result, err = s.GetByID(ctx, docID)
		return err
	})
	return result, err
}

func (s *Service) transition(ctx context.Context, docID id.ID, to Status, eventType string) error {
	doc, err := s.repo.GetForUpdate(ctx, docID)
	if err != nil {
		return err
	}
	if err := doc.TransitionTo(to); err != nil {
		return err
	}
	doc.UpdatedBy = appctx.ActorOrSystem(ctx)
	if err := s.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return s.events.Publish(ctx, domain.Event{
		AggregateType: "prf",
		AggregateID:   doc.ID,
		EventType:     eventType,
		Payload:       doc,
	})
}

// GetByID retrieves a requisition with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PurchaseRequisition, error) {
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

// List retrieves requisitions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseRequisition], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*PurchaseRequisition]{}, err
	}
	return domain.ListResult[*PurchaseRequisition]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}

var _ approval.Handler = (*Service)(nil)
