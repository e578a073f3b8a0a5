package purchase_order

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/documents/purchase_requisition"
	"stockledger/pkg/logger"
)

// ApprovalRequester opens the PO approval.
type ApprovalRequester interface {
	Request(ctx context.Context, in approval.RequestInput) (*approval.Approval, error)
}

// RequisitionConverter flips an approved requisition to CONVERTED.
type RequisitionConverter interface {
	MarkConverted(ctx context.Context, docID id.ID) (*purchase_requisition.PurchaseRequisition, error)
}

// Service provides business operations for purchase orders.
type Service struct {
	repo         Repository
	numerator    numerator.Generator
	txManager    tx.Manager
	approvals    ApprovalRequester
	requisitions RequisitionConverter
	events       domain.EventPublisher
	hooks        *domain.HookRegistry[*PurchaseOrder]
}

// NewService creates a new purchase order service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	approvals ApprovalRequester,
	requisitions RequisitionConverter,
	events domain.EventPublisher,
) *Service {
	s := &Service{
		repo:         repo,
		numerator:    numerator,
		txManager:    txManager,
		approvals:    approvals,
		requisitions: requisitions,
		events:       events,
		hooks:        domain.NewHookRegistry[*PurchaseOrder](),
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*PurchaseOrder])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PurchaseOrder] {
	return s.hooks
}

// Create stores a DRAFT purchase order.
func (s *Service) Create(ctx context.Context, doc *PurchaseOrder) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.create(ctx, doc)
	})
}

func (s *Service) create(ctx context.Context, doc *PurchaseOrder) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
	doc.Status = StatusDraft
	for i := range doc.Lines {
		doc.Lines[i].QuantityReceived = 0
	}
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

	if err := s.repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}

	logger.Info(ctx, "purchase order created",
		"id", doc.ID,
		"number", doc.Number,
		"total_amount", doc.TotalAmount)
	return nil
}

// FromRequisitionInput describes a PO raised from an approved PRF.
type FromRequisitionInput struct {
	PRFID      id.ID
	SupplierID id.ID
	// PriceOverrides replaces the estimated price of PRF lines, keyed by PRF line ID.
	PriceOverrides map[id.ID]types.Money
}

// CreateFromRequisition raises a DRAFT PO from an APPROVED requisition,
// copying its lines, and marks the requisition CONVERTED.
func (s *Service) CreateFromRequisition(ctx context.Context, in FromRequisitionInput) (*PurchaseOrder, error) {
	var doc *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		prf, err := s.requisitions.MarkConverted(ctx, in.PRFID)
		if err != nil {
			return err
		}

		doc = NewPurchaseOrder(in.SupplierID, prf.LocationID)
		prfID := prf.ID
		doc.PRFID = &prfID
		doc.ExpectedDate = prf.NeededBy
		for _, l := range prf.Lines {
			price := l.EstimatedPrice
			if override, ok := in.PriceOverrides[l.LineID]; ok {
				price = override
			}
			doc.AddLine(l.ItemID, l.Quantity, price)
		}
		return s.create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Submit sends a DRAFT or REJECTED order for approval.
func (s *Service) Submit(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	var result *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.TransitionTo(StatusPendingApproval); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		total, _ := doc.TotalAmount.Float64()
		if _, err := s.approvals.Request(ctx, approval.RequestInput{
			EntityType: approval.EntityPO,
			EntityID:   doc.ID,
			Summary: approval.Summary{
				TotalValue: total,
				LineCount:  len(doc.Lines),
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

	logger.Info(ctx, "purchase order submitted", "id", result.ID, "status", result.Status)
	return result, nil
}

// OnApproved implements approval.Handler.
func (s *Service) OnApproved(ctx context.Context, a *approval.Approval) error {
	return s.transition(ctx, a.EntityID, StatusApproved, "po.approved")
}

// OnRejected implements approval.Handler.
func (s *Service) OnRejected(ctx context.Context, a *approval.Approval) error {
	return s.transition(ctx, a.EntityID, StatusRejected, "po.rejected")
}

// Cancel cancels a DRAFT or APPROVED order that has nothing received.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	var result *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.HasReceipts() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "purchase order has receipts and cannot be cancelled").
				WithDetail("po_id", doc.ID.String())
		}
		if err := s.transition(ctx, docID, StatusCancelled, "po.cancelled"); err != nil {
			return err
		}
		result, err = s.GetByID(ctx, docID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order cancelled", "id", result.ID)
	return result, nil
}

// ReceiptLine is a quantity delivered against a PO. POLineID may be nil, in
// which case the first line ordering ItemID with outstanding quantity is used.
type ReceiptLine struct {
	POLineID *id.ID
	ItemID   id.ID
	Quantity types.Quantity
}

// ReceiptTarget identifies who delivers where.
type ReceiptTarget struct {
	SupplierID id.ID
	LocationID id.ID
}

// RegisterReceipt books delivered quantities against an order. It must run
// inside the delivery transaction. It returns the PO line each receipt line
// was matched to, in input order.
func (s *Service) RegisterReceipt(ctx context.Context, docID id.ID, target ReceiptTarget, lines []ReceiptLine) (*PurchaseOrder, []id.ID, error) {
	doc, err := s.GetForUpdate(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.Status.Receivable() {
		return nil, nil, apperror.NewBusinessRule(apperror.CodeInvalidTransition, "purchase order is not open for receipt").
			WithDetail("po_id", doc.ID.String()).
			WithDetail("status", doc.Status)
	}
	if doc.SupplierID != target.SupplierID {
		return nil, nil, apperror.NewValidation("delivery supplier does not match the purchase order").
			WithDetail("po_id", doc.ID.String())
	}
	if doc.LocationID != target.LocationID {
		return nil, nil, apperror.NewValidation("delivery location does not match the purchase order").
			WithDetail("po_id", doc.ID.String())
	}

	byID := make(map[id.ID]int, len(doc.Lines))
	for i, l := range doc.Lines {
		byID[l.LineID] = i
	}

	matched := make([]id.ID, len(lines))
	touched := make(map[int]struct{})
	for n, rl := range lines {
		idx, err := matchLine(doc, byID, rl)
		if err != nil {
			return nil, nil, err
		}
		line := &doc.Lines[idx]
		if rl.Quantity > line.Outstanding() {
			return nil, nil, apperror.NewOverReceipt(
				line.LineID.String(),
				line.QuantityOrdered.String(),
				line.QuantityReceived.String(),
				rl.Quantity.String(),
			)
		}
		line.QuantityReceived += rl.Quantity
		matched[n] = line.LineID
		touched[idx] = struct{}{}
	}

	changed := make([]Line, 0, len(touched))
	for idx := range touched {
		changed = append(changed, doc.Lines[idx])
	}
	if err := s.repo.UpdateReceived(ctx, doc.ID, changed); err != nil {
		return nil, nil, fmt.Errorf("update received: %w", err)
	}

	next := StatusPartiallyReceived
	if doc.FullyReceived() {
		next = StatusReceived
	}
	if err := doc.TransitionTo(next); err != nil {
		return nil, nil, err
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("update document: %w", err)
	}

	logger.Info(ctx, "purchase order receipt registered", "id", doc.ID, "status", doc.Status)
	return doc, matched, nil
}

func matchLine(doc *PurchaseOrder, byID map[id.ID]int, rl ReceiptLine) (int, error) {
	if rl.POLineID != nil {
		idx, ok := byID[*rl.POLineID]
		if !ok {
			return 0, apperror.NewValidation("purchase order line not found").
				WithDetail("po_line_id", rl.POLineID.String())
		}
		if doc.Lines[idx].ItemID != rl.ItemID {
			return 0, apperror.NewValidation("item does not match the purchase order line").
				WithDetail("po_line_id", rl.POLineID.String())
		}
		return idx, nil
	}

	first := -1
	for i, l := range doc.Lines {
		if l.ItemID != rl.ItemID {
			continue
		}
		if first < 0 {
			first = i
		}
		if l.Outstanding() > 0 {
			return i, nil
		}
	}
	if first >= 0 {
		return first, nil
	}
	return 0, apperror.NewValidation("item is not on the purchase order").
		WithDetail("item_id", rl.ItemID.String())
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
		AggregateType: "po",
		AggregateID:   doc.ID,
		EventType:     eventType,
		Payload:       doc,
	})
}

// GetForUpdate locks the order and loads its lines.
func (s *Service) GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
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

// GetByID retrieves an order with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
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

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*PurchaseOrder]{}, err
	}
	return domain.ListResult[*PurchaseOrder]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}

var _ approval.Handler = (*Service)(nil)
