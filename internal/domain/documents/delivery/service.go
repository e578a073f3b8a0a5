package delivery

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/domain/documents/purchase_order"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/internal/domain/valuation"
	"stockledger/pkg/logger"
)

// PeriodResolver finds the open period and its locked prices.
type PeriodResolver interface {
	ResolveOpen(ctx context.Context, date time.Time, locationID id.ID) (*period.Period, error)
	GetLockedPrice(ctx context.Context, periodID, itemID id.ID) (*period.LockedPrice, error)
}

// StockReceiver books incoming stock.
type StockReceiver interface {
	Receive(ctx context.Context, in stock.ReceiveInput) (stock.Movement, error)
}

// ReceiptRegistrar books received quantities against a purchase order.
type ReceiptRegistrar interface {
	RegisterReceipt(ctx context.Context, docID id.ID, target purchase_order.ReceiptTarget, lines []purchase_order.ReceiptLine) (*purchase_order.PurchaseOrder, []id.ID, error)
}

// VarianceReporter raises price variance NCRs.
type VarianceReporter interface {
	CreateAutoFromVariance(ctx context.Context, in ncr.VarianceInput) (*ncr.NCR, error)
}

// Service provides business operations for deliveries.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	periods   PeriodResolver
	stock     StockReceiver
	orders    ReceiptRegistrar
	ncrs      VarianceReporter
	events    domain.EventPublisher
	cfg       Config
	hooks     *domain.HookRegistry[*Delivery]
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Numerator numerator.Generator
	TxManager tx.Manager
	Periods   PeriodResolver
	Stock     StockReceiver
	Orders    ReceiptRegistrar
	NCRs      VarianceReporter
	Events    domain.EventPublisher
}

// NewService creates a new delivery service.
func NewService(d Deps, cfg Config) *Service {
	events := d.Events
	if events == nil {
		events = domain.NopPublisher{}
	}
	s := &Service{
		repo:      d.Repo,
		numerator: d.Numerator,
		txManager: d.TxManager,
		periods:   d.Periods,
		stock:     d.Stock,
		orders:    d.Orders,
		ncrs:      d.NCRs,
		events:    events,
		cfg:       cfg,
		hooks:     domain.NewHookRegistry[*Delivery](),
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*Delivery])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Delivery] {
	return s.hooks
}

// Create posts a delivery: stock is received, the purchase order (if any)
// is advanced and price variances raise NCRs, all in one transaction.
func (s *Service) Create(ctx context.Context, doc *Delivery) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	var raised []*ncr.NCR
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.periods.ResolveOpen(ctx, doc.Date, doc.LocationID)
		if err != nil {
			return err
		}
		doc.PeriodID = p.ID

		if doc.POID != nil {
			if err := s.registerReceipt(ctx, doc); err != nil {
				return err
			}
		}

		if doc.Number == "" {
			number, err := Numbering.Next(ctx, s.numerator, doc.Date)
			if err != nil {
				return err
			}
			doc.Number = number
		}

		src := stock.Source{Type: stock.SourceDelivery, ID: doc.ID, PeriodID: p.ID}
		variances := make(map[int]valuation.Variance)
		for i := range doc.Lines {
			line := &doc.Lines[i]

			m, err := s.stock.Receive(ctx, stock.ReceiveInput{
				LocationID: doc.LocationID,
				ItemID:     line.ItemID,
				Quantity:   line.Quantity,
				UnitCost:   line.UnitPrice,
				Source:     src,
			})
			if err != nil {
				return err
			}
			line.WACBefore = m.WACBefore
			line.WACAfter = m.WACAfter
			line.LineTotal = valuation.LineValue(line.Quantity, line.UnitPrice)

			locked, err := s.periods.GetLockedPrice(ctx, p.ID, line.ItemID)
			if err != nil {
				return fmt.Errorf("get locked price: %w", err)
			}
			if locked == nil {
				continue
			}
			price := locked.Price
			line.LockedPrice = &price

			v := valuation.DetectVariance(price, line.UnitPrice, line.Quantity, s.cfg.VarianceTolerancePct)
			line.VarianceAmount = v.Amount
			line.VariancePct = v.Percent
			if v.Exceeds {
				line.HasVariance = true
				variances[i] = v
			}
		}
		doc.recalculateTotals()

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		for i, line := range doc.Lines {
			v, ok := variances[i]
			if !ok {
				continue
			}
			n, err := s.ncrs.CreateAutoFromVariance(ctx, ncr.VarianceInput{
				Date:           doc.Date,
				LocationID:     doc.LocationID,
				SupplierID:     doc.SupplierID,
				ItemID:         line.ItemID,
				DeliveryID:     doc.ID,
				DeliveryLineID: line.LineID,
				DeliveryNumber: doc.Number,
				Quantity:       line.Quantity,
				Variance:       v,
			})
			if err != nil {
				return fmt.Errorf("raise ncr: %w", err)
			}
			raised = append(raised, n)
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "delivery",
			AggregateID:   doc.ID,
			EventType:     "delivery.created",
			Payload:       doc,
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "delivery created",
		"id", doc.ID,
		"number", doc.Number,
		"location_id", doc.LocationID,
		"total_amount", doc.TotalAmount,
		"ncrs", len(raised))
	return nil
}

func (s *Service) registerReceipt(ctx context.Context, doc *Delivery) error {
	lines := make([]purchase_order.ReceiptLine, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = purchase_order.ReceiptLine{POLineID: l.POLineID, ItemID: l.ItemID, Quantity: l.Quantity}
	}

	_, matched, err := s.orders.RegisterReceipt(ctx, *doc.POID,
		purchase_order.ReceiptTarget{SupplierID: doc.SupplierID, LocationID: doc.LocationID},
		lines)
	if err != nil {
		return err
	}
	for i := range doc.Lines {
		lineID := matched[i]
		doc.Lines[i].POLineID = &lineID
	}
	return nil
}

// GetByID retrieves a delivery with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Delivery, error) {
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

// List retrieves deliveries with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Delivery], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Delivery]{}, err
	}
	return domain.ListResult[*Delivery]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}
