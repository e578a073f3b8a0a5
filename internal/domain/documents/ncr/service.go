package ncr

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/valuation"
	"stockledger/pkg/logger"
)

// Service manages NCRs.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     domain.AuditRecorder
	events    domain.EventPublisher
	hooks     *domain.HookRegistry[*NCR]
}

// NewService creates a new NCR service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	auditRecorder domain.AuditRecorder,
	events domain.EventPublisher,
) *Service {
	s := &Service{
		repo:      repo,
		numerator: numerator,
		txManager: txManager,
		audit:     auditRecorder,
		events:    events,
		hooks:     domain.NewHookRegistry[*NCR](),
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*NCR])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*NCR] {
	return s.hooks
}

// VarianceInput describes a delivery line whose price deviated from the locked price.
type VarianceInput struct {
	Date           time.Time
	LocationID     id.ID
	SupplierID     id.ID
	ItemID         id.ID
	DeliveryID     id.ID
	DeliveryLineID id.ID
	DeliveryNumber string
	Quantity       types.Quantity
	Variance       valuation.Variance
}

// CreateAutoFromVariance raises a PRICE_VARIANCE NCR. It must run inside
// the delivery transaction.
func (s *Service) CreateAutoFromVariance(ctx context.Context, in VarianceInput) (*NCR, error) {
	expected, actual := in.Variance.Expected, in.Variance.Actual
	supplierID, itemID := in.SupplierID, in.ItemID
	deliveryID, lineID := in.DeliveryID, in.DeliveryLineID

	doc := &NCR{
		Document:       entity.NewDocument(),
		Type:           TypePriceVariance,
		Auto:           true,
		Status:         StatusOpen,
		LocationID:     in.LocationID,
		SupplierID:     &supplierID,
		ItemID:         &itemID,
		DeliveryID:     &deliveryID,
		DeliveryLineID: &lineID,
		ExpectedPrice:  &expected,
		ActualPrice:    &actual,
		Quantity:       in.Quantity,
		VarianceAmount: in.Variance.Amount,
		VariancePct:    in.Variance.Percent,
		Description: fmt.Sprintf("Price variance on delivery %s: expected %s, actual %s (%s%%)",
			in.DeliveryNumber,
			expected.StringFixed(types.CostPlaces),
			actual.StringFixed(types.CostPlaces),
			in.Variance.Percent.StringFixed(2)),
	}
	doc.Date = in.Date

	if err := s.create(ctx, doc); err != nil {
		return nil, err
	}

	logger.Info(ctx, "price variance NCR raised",
		"ncr_id", doc.ID,
		"number", doc.Number,
		"delivery_id", in.DeliveryID,
		"item_id", in.ItemID,
		"variance_pct", in.Variance.Percent)
	return doc, nil
}

// ManualInput describes an NCR raised by a user.
type ManualInput struct {
	Type        Type
	Date        time.Time
	LocationID  id.ID
	SupplierID  *id.ID
	ItemID      *id.ID
	DeliveryID  *id.ID
	Quantity    types.Quantity
	Description string
}

// CreateManual raises a user NCR. Price variance NCRs are system-only.
func (s *Service) CreateManual(ctx context.Context, in ManualInput) (*NCR, error) {
	if in.Type == TypePriceVariance {
		return nil, apperror.NewValidation("price variance NCRs are raised automatically").
			WithDetail("field", "type")
	}

	doc := &NCR{
		Document:       entity.NewDocument(),
		Type:           in.Type,
		Status:         StatusOpen,
		LocationID:     in.LocationID,
		SupplierID:     in.SupplierID,
		ItemID:         in.ItemID,
		DeliveryID:     in.DeliveryID,
		Quantity:       in.Quantity,
		VarianceAmount: decimal.Zero,
		VariancePct:    decimal.Zero,
		Description:    in.Description,
	}
	if !in.Date.IsZero() {
		doc.Date = in.Date
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "NCR created", "ncr_id", doc.ID, "number", doc.Number, "type", doc.Type)
	return doc, nil
}

func (s *Service) create(ctx context.Context, doc *NCR) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
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
		return fmt.Errorf("create ncr: %w", err)
	}
	return s.events.Publish(ctx, domain.Event{
		AggregateType: "ncr",
		AggregateID:   doc.ID,
		EventType:     "ncr.created",
		Payload:       doc,
	})
}

// Transition moves an NCR along OPEN -> ACKNOWLEDGED -> RESOLVED.
func (s *Service) Transition(ctx context.Context, docID id.ID, to Status, resolution string) (*NCR, error) {
	var result *NCR
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		from := doc.Status
		if err := doc.TransitionTo(to, resolution); err != nil {
			return err
		}
		doc.UpdatedAt = time.Now().UTC()
		if uid := appctx.GetUserID(ctx); uid != "" {
			doc.UpdatedBy = uid
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update ncr: %w", err)
		}
		if err := s.audit.Record(ctx, "ncr", doc.ID, "status", map[string]any{
			"from":       from,
			"to":         to,
			"resolution": resolution,
		}); err != nil {
			return fmt.Errorf("audit ncr: %w", err)
		}
		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "NCR status changed", "ncr_id", result.ID, "status", result.Status)
	return result, nil
}

// Get returns an NCR by ID.
func (s *Service) Get(ctx context.Context, docID id.ID) (*NCR, error) {
	return s.repo.GetByID(ctx, docID)
}

// List returns NCRs matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*NCR], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*NCR]{}, err
	}
	return domain.ListResult[*NCR]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}
