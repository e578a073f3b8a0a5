package stocktake

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/stock"
	"stockledger/pkg/logger"
)

// PeriodGate is the part of the period service used by stock takes.
type PeriodGate interface {
	ResolveOpen(ctx context.Context, date time.Time, locationID id.ID) (*period.Period, error)
	GetLockedPrice(ctx context.Context, periodID, itemID id.ID) (*period.LockedPrice, error)
	MarkLocationReady(ctx context.Context, periodID, locationID id.ID) (*period.LocationState, error)
}

// StockCounter reads balances and posts count differences.
type StockCounter interface {
	GetBalance(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error)
	ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.Balance, error)
	Adjust(ctx context.Context, in stock.AdjustInput) (stock.Movement, error)
}

// Service provides business operations for stock takes.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	periods   PeriodGate
	stock     StockCounter
	events    domain.EventPublisher
	hooks     *domain.HookRegistry[*StockTake]
	now       func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Numerator numerator.Generator
	TxManager tx.Manager
	Periods   PeriodGate
	Stock     StockCounter
	Events    domain.EventPublisher
}

// NewService creates a new stock take service.
func NewService(d Deps) *Service {
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
		events:    events,
		hooks:     domain.NewHookRegistry[*StockTake](),
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.hooks.OnBeforeCreate(audit.EnrichCreatedBy[*StockTake])
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*StockTake] {
	return s.hooks
}

// CreateInput describes a new stock take.
type CreateInput struct {
	LocationID id.ID
	Date       time.Time
	Comment    string
}

// Create opens a DRAFT stock take in the period covering Date. Only one
// active stock take is allowed per location and period.
func (s *Service) Create(ctx context.Context, in CreateInput) (*StockTake, error) {
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	var doc *StockTake
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.periods.ResolveOpen(ctx, date, in.LocationID)
		if err != nil {
			return err
		}

		active, err := s.repo.FindActive(ctx, p.ID, in.LocationID)
		if err != nil {
			return fmt.Errorf("find active stock take: %w", err)
		}
		if active != nil {
			return apperror.NewConflict("a stock take is already active for this location").
				WithDetail("stock_take_id", active.ID.String()).
				WithDetail("number", active.Number)
		}

		doc = NewStockTake(p.ID, in.LocationID)
		doc.Date = date.Truncate(24 * time.Hour)
		doc.Comment = in.Comment
		if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
			return err
		}
		if err := doc.Validate(ctx); err != nil {
			return err
		}

		number, err := Numbering.Next(ctx, s.numerator, doc.Date)
		if err != nil {
			return err
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}
	logger.Info(ctx, "stock take created", "id", doc.ID, "number", doc.Number, "location_id", doc.LocationID)
	return doc, nil
}

// Start prepares the count sheet from the current balances of the location
// and moves the stock take to IN_PROGRESS.
func (s *Service) Start(ctx context.Context, docID id.ID) (*StockTake, error) {
	var doc *StockTake
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.getForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.TransitionTo(StatusInProgress); err != nil {
			return err
		}

		locationID := doc.LocationID
		balances, err := s.stock.ListBalances(ctx, stock.BalanceFilter{LocationID: &locationID})
		if err != nil {
			return fmt.Errorf("list balances: %w", err)
		}
		doc.Lines = make([]Line, 0, len(balances))
		for _, b := range balances {
			doc.AddLine(b.ItemID, b.Quantity, b.WAC)
		}

		return s.save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock take started", "id", doc.ID, "lines", len(doc.Lines))
	return doc, nil
}

// AddItem adds a line for an item found during the count that is not on
// the sheet.
func (s *Service) AddItem(ctx context.Context, docID, itemID id.ID) (*StockTake, error) {
	var doc *StockTake
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.getForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Status != StatusInProgress {
			return apperror.NewBusinessRule(apperror.CodeInvalidTransition, "items can only be added while the stock take is in progress").
				WithDetail("status", doc.Status)
		}
		if doc.FindItem(itemID) != nil {
			return apperror.NewDuplicate("stock take line", "item_id", itemID.String())
		}

		b, err := s.stock.GetBalance(ctx, doc.LocationID, itemID)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		doc.AddLine(itemID, b.Quantity, b.WAC)
		return s.save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SetCounted records the counted quantity of a line.
func (s *Service) SetCounted(ctx context.Context, docID id.ID, lineNo int, qty types.Quantity) (*StockTake, error) {
	var doc *StockTake
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.getForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.SetCounted(lineNo, qty, appctx.ActorOrSystem(ctx), s.now()); err != nil {
			return err
		}
		doc.recalculateTotals()
		return s.save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Complete posts an adjustment for every counted difference, totals the
// gain and loss values and marks the location READY in the period.
// Differences are taken against the balance at completion so movements
// posted while counting are not double counted.
func (s *Service) Complete(ctx context.Context, docID id.ID) (*StockTake, error) {
	var doc *StockTake
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.getForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Status != StatusInProgress {
			return apperror.NewInvalidTransition("stock take", string(doc.Status), string(StatusCompleted))
		}
		if missing := doc.Uncounted(); len(missing) > 0 {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "all lines must be counted before completing").
				WithDetail("uncounted_lines", missing)
		}

		if _, err := s.periods.ResolveOpen(ctx, doc.Date, doc.LocationID); err != nil {
			return err
		}

		src := stock.Source{Type: stock.SourceReconciliation, ID: doc.ID, PeriodID: doc.PeriodID}
		for i := range doc.Lines {
			if err := s.postLine(ctx, doc, &doc.Lines[i], src); err != nil {
				return err
			}
		}
		doc.recalculateTotals()

		if err := doc.TransitionTo(StatusCompleted); err != nil {
			return err
		}
		if err := s.save(ctx, doc); err != nil {
			return err
		}

		if _, err := s.periods.MarkLocationReady(ctx, doc.PeriodID, doc.LocationID); err != nil {
			return fmt.Errorf("mark location ready: %w", err)
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "stock_take",
			AggregateID:   doc.ID,
			EventType:     "stock_take.completed",
			Payload:       doc,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock take completed",
		"id", doc.ID,
		"location_id", doc.LocationID,
		"gain_value", doc.GainValue,
		"loss_value", doc.LossValue)
	return doc, nil
}

func (s *Service) postLine(ctx context.Context, doc *StockTake, l *Line, src stock.Source) error {
	b, err := s.stock.GetBalance(ctx, doc.LocationID, l.ItemID)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	l.BookQuantity = b.Quantity
	l.WAC = b.WAC
	l.Difference = *l.CountedQuantity - b.Quantity
	l.AdjustmentValue = types.Zero()
	if l.Difference.IsZero() {
		return nil
	}

	in := stock.AdjustInput{
		LocationID: doc.LocationID,
		ItemID:     l.ItemID,
		Delta:      l.Difference,
		Source:     src,
	}
	if l.Difference.IsPositive() && b.WAC.IsZero() {
		lp, err := s.periods.GetLockedPrice(ctx, doc.PeriodID, l.ItemID)
		if err != nil {
			return fmt.Errorf("get locked price: %w", err)
		}
		if lp != nil {
			in.FallbackCost = &lp.Price
		}
	}

	m, err := s.stock.Adjust(ctx, in)
	if err != nil {
		return err
	}
	l.WAC = m.UnitCost
	if l.Difference.IsNegative() {
		l.AdjustmentValue = m.Value.Neg()
	} else {
		l.AdjustmentValue = m.Value
	}
	return nil
}

// Cancel abandons a DRAFT or IN_PROGRESS stock take. Nothing is posted.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*StockTake, error) {
	var doc *StockTake
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.TransitionTo(StatusCancelled); err != nil {
			return err
		}
		doc.UpdatedBy = appctx.ActorOrSystem(ctx)
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "stock take cancelled", "id", doc.ID)
	return doc, nil
}

func (s *Service) save(ctx context.Context, doc *StockTake) error {
	doc.UpdatedBy = appctx.ActorOrSystem(ctx)
	if err := s.repo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

func (s *Service) getForUpdate(ctx context.Context, docID id.ID) (*StockTake, error) {
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

// GetByID retrieves a stock take with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*StockTake, error) {
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

// List retrieves stock takes with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockTake], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*StockTake]{}, err
	}
	return domain.ListResult[*StockTake]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}
