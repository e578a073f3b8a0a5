package period

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/approval"
	"stockledger/internal/domain/stock"
	"stockledger/pkg/logger"
)

// ApprovalRequester opens the PERIOD_CLOSE approval.
type ApprovalRequester interface {
	Request(ctx context.Context, in approval.RequestInput) (*approval.Approval, error)
}

// BalanceLister provides the balances frozen at close.
type BalanceLister interface {
	ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.Balance, error)
}

// Service drives the period lifecycle.
type Service struct {
	repo      Repository
	prices    PriceReader
	locations LocationDirectory
	balances  BalanceLister
	approvals ApprovalRequester
	txManager tx.Manager
	audit     domain.AuditRecorder
	events    domain.EventPublisher
	now       func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Prices    PriceReader // optional, defaults to Repo
	Locations LocationDirectory
	Balances  BalanceLister
	Approvals ApprovalRequester
	TxManager tx.Manager
	Audit     domain.AuditRecorder
	Events    domain.EventPublisher
}

// NewService creates a new period service.
func NewService(d Deps) *Service {
	prices := d.Prices
	if prices == nil {
		prices = d.Repo
	}
	audit := d.Audit
	if audit == nil {
		audit = domain.NopAuditRecorder{}
	}
	events := d.Events
	if events == nil {
		events = domain.NopPublisher{}
	}
	return &Service{
		repo:      d.Repo,
		prices:    prices,
		locations: d.Locations,
		balances:  d.Balances,
		approvals: d.Approvals,
		txManager: d.TxManager,
		audit:     audit,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput describes a new period.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	// CopyPricesFrom seeds locked prices from another period.
	CopyPricesFrom *id.ID
}

// Create registers a DRAFT period.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Period, error) {
	now := s.now()
	p := &Period{
		ID:        id.New(),
		Name:      in.Name,
		StartDate: truncateDay(in.StartDate),
		EndDate:   truncateDay(in.EndDate),
		Status:    StatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		overlap, err := s.repo.HasOverlap(ctx, p.StartDate, p.EndDate, nil)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlap {
			return apperror.NewConflict("period overlaps an existing period").
				WithDetail("start_date", p.StartDate.Format(time.DateOnly)).
				WithDetail("end_date", p.EndDate.Format(time.DateOnly))
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		if in.CopyPricesFrom != nil {
			if _, err := s.repo.CopyPrices(ctx, *in.CopyPricesFrom, p.ID); err != nil {
				return fmt.Errorf("copy prices: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period created", "period_id", p.ID, "name", p.Name)
	return p, nil
}

// Open moves a DRAFT period to OPEN and creates an OPEN row for every active location.
func (s *Service) Open(ctx context.Context, periodID id.ID) (*Period, error) {
	var result *Period
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}

		current, err := s.repo.FindOpen(ctx)
		if err != nil {
			return fmt.Errorf("find open period: %w", err)
		}
		if current != nil && current.ID != p.ID {
			return apperror.NewConflict("another period is already open").
				WithDetail("open_period_id", current.ID.String())
		}

		if err := p.TransitionTo(StatusOpen); err != nil {
			return err
		}
		now := s.now()
		p.OpenedAt = &now

		locationIDs, err := s.locations.ActiveLocationIDs(ctx)
		if err != nil {
			return fmt.Errorf("list locations: %w", err)
		}
		states := make([]LocationState, 0, len(locationIDs))
		for _, locID := range locationIDs {
			states = append(states, LocationState{
				PeriodID:   p.ID,
				LocationID: locID,
				Status:     LocationOpen,
				UpdatedAt:  now,
			})
		}
		if err := s.repo.CreateLocationStates(ctx, states); err != nil {
			return fmt.Errorf("create location states: %w", err)
		}

		if err := s.saveTransition(ctx, p, StatusDraft); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period opened", "period_id", result.ID)
	return result, nil
}

// PriceInput is one locked price to set.
type PriceInput struct {
	ItemID id.ID
	Price  types.Money
}

// SetPrices upserts locked prices. Only a DRAFT period accepts changes.
func (s *Service) SetPrices(ctx context.Context, periodID id.ID, prices []PriceInput) error {
	if len(prices) == 0 {
		return apperror.NewValidation("at least one price is required")
	}
	seen := make(map[id.ID]struct{}, len(prices))
	for _, p := range prices {
		if p.Price.IsNegative() {
			return apperror.NewValidation("price cannot be negative").
				WithDetail("item_id", p.ItemID.String())
		}
		if _, dup := seen[p.ItemID]; dup {
			return apperror.NewValidation("item listed more than once").
				WithDetail("item_id", p.ItemID.String())
		}
		seen[p.ItemID] = struct{}{}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.Status != StatusDraft {
			return apperror.NewPriceAlreadyLocked(p.ID.String(), string(p.Status))
		}

		now := s.now()
		rows := make([]LockedPrice, 0, len(prices))
		for _, in := range prices {
			rows = append(rows, LockedPrice{
				PeriodID:  p.ID,
				ItemID:    in.ItemID,
				Price:     types.RoundCost(in.Price),
				UpdatedAt: now,
			})
		}
		if err := s.repo.UpsertPrices(ctx, rows); err != nil {
			return fmt.Errorf("upsert prices: %w", err)
		}

		logger.Info(ctx, "locked prices set", "period_id", p.ID, "count", len(rows))
		return nil
	})
}

// CopyPrices copies every locked price of fromID into the DRAFT period toID.
func (s *Service) CopyPrices(ctx context.Context, fromID, toID id.ID) (int64, error) {
	if fromID == toID {
		return 0, apperror.NewValidation("source and target periods must differ")
	}

	var copied int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, fromID); err != nil {
			return err
		}
		target, err := s.repo.GetForUpdate(ctx, toID)
		if err != nil {
			return err
		}
		if target.Status != StatusDraft {
			return apperror.NewPriceAlreadyLocked(target.ID.String(), string(target.Status))
		}
		copied, err = s.repo.CopyPrices(ctx, fromID, toID)
		if err != nil {
			return fmt.Errorf("copy prices: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "locked prices copied", "from_period_id", fromID, "to_period_id", toID, "count", copied)
	return copied, nil
}

// GetLockedPrice returns the locked price of an item, or nil if none is set.
func (s *Service) GetLockedPrice(ctx context.Context, periodID, itemID id.ID) (*LockedPrice, error) {
	return s.prices.GetPrice(ctx, periodID, itemID)
}

// ListPrices returns all locked prices of a period.
func (s *Service) ListPrices(ctx context.Context, periodID id.ID) ([]LockedPrice, error) {
	if _, err := s.repo.GetByID(ctx, periodID); err != nil {
		return nil, err
	}
	return s.repo.ListPrices(ctx, periodID)
}

// MarkLocationReady flags a location as ready for close.
func (s *Service) MarkLocationReady(ctx context.Context, periodID, locationID id.ID) (*LocationState, error) {
	return s.setLocationStatus(ctx, periodID, locationID, LocationOpen, LocationReady)
}

// ReopenLocation returns a READY location to OPEN while the period is still OPEN.
func (s *Service) ReopenLocation(ctx context.Context, periodID, locationID id.ID) (*LocationState, error) {
	return s.setLocationStatus(ctx, periodID, locationID, LocationReady, LocationOpen)
}

func (s *Service) setLocationStatus(ctx context.Context, periodID, locationID id.ID, from, to LocationStatus) (*LocationState, error) {
	var result *LocationState
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.Status != StatusOpen {
			return apperror.NewInvalidTransition("period", string(p.Status), string(p.Status)).
				WithDetail("reason", "location status can only change while the period is OPEN")
		}

		st, err := s.repo.GetLocationState(ctx, periodID, locationID, LockUpdate)
		if err != nil {
			return err
		}
		if st == nil {
			return apperror.NewNotFound("period location", locationID.String())
		}
		if st.Status == to {
			result = st
			return nil
		}
		if st.Status != from {
			return apperror.NewInvalidTransition("period location", string(st.Status), string(to))
		}

		now := s.now()
		st.Status = to
		st.UpdatedAt = now
		if to == LocationReady {
			st.ReadyAt = &now
			st.ReadyBy = appctx.ActorOrSystem(ctx)
		} else {
			st.ReadyAt = nil
			st.ReadyBy = ""
		}
		if err := s.repo.UpdateLocationState(ctx, *st); err != nil {
			return fmt.Errorf("update location state: %w", err)
		}
		result = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period location status changed",
		"period_id", periodID, "location_id", locationID, "status", result.Status)
	return result, nil
}

// ListLocationStates returns the readiness of every location in a period.
func (s *Service) ListLocationStates(ctx context.Context, periodID id.ID) ([]LocationState, error) {
	return s.repo.ListLocationStates(ctx, periodID)
}

// RequestClose moves an OPEN period whose locations are all READY to
// PENDING_CLOSE and opens the PERIOD_CLOSE approval.
func (s *Service) RequestClose(ctx context.Context, periodID id.ID) (*Period, error) {
	var result *Period
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if p.Status != StatusOpen {
			return apperror.NewInvalidTransition("period", string(p.Status), string(StatusPendingClose))
		}

		states, err := s.repo.ListLocationStates(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list location states: %w", err)
		}
		var notReady []string
		for _, st := range states {
			if st.Status != LocationReady {
				notReady = append(notReady, st.LocationID.String())
			}
		}
		if len(notReady) > 0 {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "all locations must be ready before close").
				WithDetail("period_id", p.ID.String()).
				WithDetail("locations_not_ready", notReady)
		}

		if err := p.TransitionTo(StatusPendingClose); err != nil {
			return err
		}
		if err := s.saveTransition(ctx, p, StatusOpen); err != nil {
			return err
		}

		// Must follow Update: an auto-approval re-enters OnApproved.
		if _, err := s.approvals.Request(ctx, approval.RequestInput{
			EntityType: approval.EntityPeriodClose,
			EntityID:   p.ID,
			Summary:    approval.Summary{LineCount: len(states)},
		}); err != nil {
			return fmt.Errorf("request approval: %w", err)
		}

		result, err = s.repo.GetByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period close requested", "period_id", result.ID, "status", result.Status)
	return result, nil
}

// OnApproved implements approval.Handler for PERIOD_CLOSE.
func (s *Service) OnApproved(ctx context.Context, a *approval.Approval) error {
	p, err := s.repo.GetForUpdate(ctx, a.EntityID)
	if err != nil {
		return err
	}
	if err := p.TransitionTo(StatusApproved); err != nil {
		return err
	}
	return s.saveTransition(ctx, p, StatusPendingClose)
}

// OnRejected implements approval.Handler for PERIOD_CLOSE.
func (s *Service) OnRejected(ctx context.Context, a *approval.Approval) error {
	p, err := s.repo.GetForUpdate(ctx, a.EntityID)
	if err != nil {
		return err
	}
	if err := p.TransitionTo(StatusOpen); err != nil {
		return err
	}
	return s.saveTransitionAs(ctx, p, StatusPendingClose, "period.close_rejected")
}

// Close freezes an APPROVED period: balances of every location are
// snapshotted, location rows are closed and the period becomes CLOSED.
// The whole step runs serializable when the transaction manager supports it.
func (s *Service) Close(ctx context.Context, periodID id.ID) (*Period, error) {
	run := s.txManager.RunInTransaction
	if sm, ok := s.txManager.(tx.SerializableManager); ok {
		run = sm.RunSerializable
	}

	var (
		result    *Period
		snapshot  int
		locations int
	)
	err := run(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if err := p.TransitionTo(StatusClosed); err != nil {
			return err
		}

		states, err := s.repo.ListLocationStates(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list location states: %w", err)
		}

		now := s.now()
		var rows []Snapshot
		for _, st := range states {
			locID := st.LocationID
			balances, err := s.balances.ListBalances(ctx, stock.BalanceFilter{LocationID: &locID})
			if err != nil {
				return fmt.Errorf("list balances for %s: %w", locID, err)
			}
			for _, b := range balances {
				rows = append(rows, Snapshot{
					PeriodID:   p.ID,
					LocationID: b.LocationID,
					ItemID:     b.ItemID,
					Quantity:   b.Quantity,
					WAC:        b.WAC,
					Value:      b.Value(),
					CreatedAt:  now,
				})
			}

			st.Status = LocationClosed
			st.ClosedAt = &now
			st.UpdatedAt = now
			if err := s.repo.UpdateLocationState(ctx, st); err != nil {
				return fmt.Errorf("close location %s: %w", locID, err)
			}
		}
		if err := s.repo.InsertSnapshots(ctx, rows); err != nil {
			return fmt.Errorf("insert snapshots: %w", err)
		}

		p.ClosedAt = &now
		p.ClosedBy = appctx.ActorOrSystem(ctx)
		if err := s.saveTransition(ctx, p, StatusApproved); err != nil {
			return err
		}

		result = p
		snapshot = len(rows)
		locations = len(states)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "period closed",
		"period_id", result.ID,
		"locations", locations,
		"snapshot_rows", snapshot,
		"closed_by", result.ClosedBy)
	return result, nil
}

// CloseApproved closes every APPROVED period. Used by the worker.
func (s *Service) CloseApproved(ctx context.Context) (int, error) {
	status := StatusApproved
	periods, _, err := s.repo.List(ctx, ListFilter{Status: &status, Limit: domain.MaxPageLimit})
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, p := range periods {
		if _, err := s.Close(ctx, p.ID); err != nil {
			return closed, fmt.Errorf("close period %s: %w", p.ID, err)
		}
		closed++
	}
	return closed, nil
}

// ResolveOpen returns the OPEN period covering date and checks that the
// location can still post into it.
func (s *Service) ResolveOpen(ctx context.Context, date time.Time, locationID id.ID) (*Period, error) {
	p, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("find period: %w", err)
	}
	day := date.Format(time.DateOnly)
	if p == nil || p.Status == StatusDraft {
		return nil, apperror.NewPeriodNotOpen(day)
	}
	if p.Status != StatusOpen {
		return nil, apperror.NewPeriodClosed(p.Name).
			WithDetail("period_id", p.ID.String()).
			WithDetail("status", p.Status)
	}

	st, err := s.repo.GetLocationState(ctx, p.ID, locationID, LockShare)
	if err != nil {
		return nil, fmt.Errorf("get location state: %w", err)
	}
	if st == nil {
		return nil, apperror.NewLocationNotOpen(p.ID.String(), locationID.String(), "MISSING")
	}
	if st.Status != LocationOpen {
		return nil, apperror.NewLocationNotOpen(p.ID.String(), locationID.String(), string(st.Status))
	}
	return p, nil
}

// Get returns a period by ID.
func (s *Service) Get(ctx context.Context, periodID id.ID) (*Period, error) {
	return s.repo.GetByID(ctx, periodID)
}

// List returns periods matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Period], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Period]{}, err
	}
	return domain.ListResult[*Period]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// ListSnapshots returns close snapshots, optionally for one location.
func (s *Service) ListSnapshots(ctx context.Context, periodID id.ID, locationID *id.ID) ([]Snapshot, error) {
	return s.repo.ListSnapshots(ctx, periodID, locationID)
}

// PreviousClosed returns the latest closed period before p, or nil.
func (s *Service) PreviousClosed(ctx context.Context, p *Period) (*Period, error) {
	return s.repo.PreviousClosed(ctx, p.StartDate)
}

func (s *Service) saveTransition(ctx context.Context, p *Period, from Status) error {
	return s.saveTransitionAs(ctx, p, from, "period."+eventSuffix(p.Status))
}

func (s *Service) saveTransitionAs(ctx context.Context, p *Period, from Status, eventType string) error {
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	if err := s.audit.Record(ctx, "period", p.ID, "status", map[string]any{
		"from": from,
		"to":   p.Status,
	}); err != nil {
		return fmt.Errorf("audit period: %w", err)
	}
	return s.events.Publish(ctx, domain.Event{
		AggregateType: "period",
		AggregateID:   p.ID,
		EventType:     eventType,
		Payload:       p,
	})
}

func eventSuffix(st Status) string {
	switch st {
	case StatusOpen:
		return "opened"
	case StatusPendingClose:
		return "close_requested"
	case StatusApproved:
		return "approved"
	case StatusClosed:
		return "closed"
	default:
		return "updated"
	}
}

var _ approval.Handler = (*Service)(nil)
