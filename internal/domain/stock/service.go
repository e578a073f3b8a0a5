package stock

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/valuation"
	"stockledger/pkg/logger"
)

// Service applies receipts, issues, transfers and adjustments to balances.
// Every mutating method must be called inside a transaction opened by the
// caller; balance rows are locked for the duration of that transaction.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new stock service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ReceiveInput describes stock arriving at a location.
type ReceiveInput struct {
	LocationID id.ID
	ItemID     id.ID
	Quantity   types.Quantity
	UnitCost   types.Money
	Source     Source
}

// IssueInput describes stock leaving a location.
type IssueInput struct {
	LocationID id.ID
	ItemID     id.ID
	Quantity   types.Quantity
	Source     Source
}

// TransferInput describes stock moving between two locations.
type TransferInput struct {
	FromLocationID id.ID
	ToLocationID   id.ID
	ItemID         id.ID
	Quantity       types.Quantity
	Source         Source
}

// AdjustInput describes a count correction. Delta is signed.
type AdjustInput struct {
	LocationID id.ID
	ItemID     id.ID
	Delta      types.Quantity
	Source     Source

	// FallbackCost values a gain on an item that has no WAC yet.
	FallbackCost *types.Money
}

// Requirement is a quantity needed at a location, used for availability checks.
type Requirement struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Receive adds stock and recomputes WAC.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (Movement, error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return Movement{}, err
	}
	if in.UnitCost.IsNegative() {
		return Movement{}, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("item_id", in.ItemID.String())
	}

	bal, err := s.repo.LockBalance(ctx, in.LocationID, in.ItemID)
	if err != nil {
		return Movement{}, fmt.Errorf("lock balance: %w", err)
	}

	m, err := s.receiveLocked(ctx, &bal, in.Quantity, in.UnitCost, KindReceipt, in.Source)
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

// Issue removes stock at the current WAC. WAC is unchanged and the returned
// movement carries the captured value.
func (s *Service) Issue(ctx context.Context, in IssueInput) (Movement, error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return Movement{}, err
	}

	bal, err := s.repo.LockBalance(ctx, in.LocationID, in.ItemID)
	if err != nil {
		return Movement{}, fmt.Errorf("lock balance: %w", err)
	}

	return s.issueLocked(ctx, &bal, in.Quantity, KindIssue, in.Source)
}

// Transfer moves stock at the source WAC. The destination receives it as a
// normal receipt, so its WAC blends with the incoming cost.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (out Movement, inbound Movement, err error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return Movement{}, Movement{}, err
	}
	if in.FromLocationID == in.ToLocationID {
		return Movement{}, Movement{}, apperror.NewValidation("source and destination locations must differ")
	}

	from, to, err := s.lockPair(ctx, in.FromLocationID, in.ToLocationID, in.ItemID)
	if err != nil {
		return Movement{}, Movement{}, err
	}

	out, err = s.issueLocked(ctx, &from, in.Quantity, KindTransferOut, in.Source)
	if err != nil {
		return Movement{}, Movement{}, err
	}

	inbound, err = s.receiveLocked(ctx, &to, in.Quantity, out.UnitCost, KindTransferIn, in.Source)
	if err != nil {
		return Movement{}, Movement{}, err
	}

	return out, inbound, nil
}

// Adjust applies a stock-take difference. Gains are valued at the current WAC
// so they leave WAC untouched; losses behave like an issue.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (Movement, error) {
	if in.Delta.IsZero() {
		return Movement{}, apperror.NewValidation("adjustment delta cannot be zero")
	}

	bal, err := s.repo.LockBalance(ctx, in.LocationID, in.ItemID)
	if err != nil {
		return Movement{}, fmt.Errorf("lock balance: %w", err)
	}

	if in.Delta.IsNegative() {
		return s.issueLocked(ctx, &bal, in.Delta.Neg(), KindAdjustmentOut, in.Source)
	}

	if bal.WAC.IsZero() && in.FallbackCost != nil && in.FallbackCost.IsPositive() {
		return s.receiveLocked(ctx, &bal, in.Delta, *in.FallbackCost, KindAdjustmentIn, in.Source)
	}

	before := bal.WAC
	bal.Quantity += in.Delta
	m := s.newMovement(bal, KindAdjustmentIn, in.Source, in.Delta, before)
	m.Value = valuation.LineValue(in.Delta, before)
	if err := s.persist(ctx, bal, m); err != nil {
		return Movement{}, err
	}
	return m, nil
}

// CheckAvailability verifies without locking that every requirement can be
// met at the location. Quantities of repeated items are summed.
func (s *Service) CheckAvailability(ctx context.Context, locationID id.ID, reqs []Requirement) error {
	needed := make(map[id.ID]types.Quantity, len(reqs))
	order := make([]id.ID, 0, len(reqs))
	for _, r := range reqs {
		if _, seen := needed[r.ItemID]; !seen {
			order = append(order, r.ItemID)
		}
		needed[r.ItemID] += r.Quantity
	}

	for _, itemID := range order {
		bal, err := s.repo.GetBalance(ctx, locationID, itemID)
		if err != nil {
			return fmt.Errorf("get balance for %s: %w", itemID, err)
		}
		if bal.Quantity < needed[itemID] {
			return apperror.NewInsufficientStock(
				locationID.String(), itemID.String(),
				needed[itemID].String(), bal.Quantity.String(),
			)
		}
	}
	return nil
}

// GetBalance returns the current balance of an item at a location.
func (s *Service) GetBalance(ctx context.Context, locationID, itemID id.ID) (Balance, error) {
	return s.repo.GetBalance(ctx, locationID, itemID)
}

// ListBalances returns balances matching filter.
func (s *Service) ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, error) {
	return s.repo.ListBalances(ctx, filter)
}

// ListMovements returns ledger rows matching filter, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// SumByKind aggregates ledger rows matching filter per movement kind.
func (s *Service) SumByKind(ctx context.Context, filter MovementFilter) ([]KindTotal, error) {
	return s.repo.SumByKind(ctx, filter)
}

func (s *Service) receiveLocked(ctx context.Context, bal *Balance, qty types.Quantity, unitCost types.Money, kind MovementKind, src Source) (Movement, error) {
	before := bal.WAC
	after, err := valuation.WAC(bal.Quantity, bal.WAC, qty, unitCost)
	if err != nil {
		return Movement{}, apperror.NewValidation(err.Error())
	}

	bal.Quantity += qty
	bal.WAC = after

	m := s.newMovement(*bal, kind, src, qty, before)
	m.UnitCost = types.RoundCost(unitCost)
	m.Value = valuation.LineValue(qty, unitCost)

	if err := s.persist(ctx, *bal, m); err != nil {
		return Movement{}, err
	}

	logger.Debug(ctx, "stock received",
		"location_id", bal.LocationID,
		"item_id", bal.ItemID,
		"quantity", qty,
		"wac_before", before,
		"wac_after", after,
	)
	return m, nil
}

func (s *Service) issueLocked(ctx context.Context, bal *Balance, qty types.Quantity, kind MovementKind, src Source) (Movement, error) {
	if bal.Quantity < qty {
		return Movement{}, apperror.NewInsufficientStock(
			bal.LocationID.String(), bal.ItemID.String(),
			qty.String(), bal.Quantity.String(),
		)
	}

	bal.Quantity -= qty

	m := s.newMovement(*bal, kind, src, qty.Neg(), bal.WAC)
	m.Value = valuation.IssueValue(qty, bal.WAC)

	if err := s.persist(ctx, *bal, m); err != nil {
		return Movement{}, err
	}
	return m, nil
}

func (s *Service) newMovement(bal Balance, kind MovementKind, src Source, signedQty types.Quantity, wacBefore types.Money) Movement {
	return Movement{
		ID:         id.New(),
		LocationID: bal.LocationID,
		ItemID:     bal.ItemID,
		PeriodID:   src.PeriodID,
		Kind:       kind,
		SourceType: src.Type,
		SourceID:   src.ID,
		Quantity:   signedQty,
		UnitCost:   wacBefore,
		WACBefore:  wacBefore,
		WACAfter:   bal.WAC,
		CreatedAt:  s.now(),
	}
}

func (s *Service) persist(ctx context.Context, bal Balance, m Movement) error {
	now := m.CreatedAt
	bal.LastMovementAt = &now
	bal.UpdatedAt = now

	if err := s.repo.SaveBalance(ctx, bal); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	if err := s.repo.InsertMovements(ctx, []Movement{m}); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// lockPair locks both balances in a stable order so that opposite transfers
// running concurrently cannot deadlock.
func (s *Service) lockPair(ctx context.Context, fromID, toID, itemID id.ID) (from, to Balance, err error) {
	first, second := fromID, toID
	swapped := bytes.Compare(fromID[:], toID[:]) > 0
	if swapped {
		first, second = toID, fromID
	}

	a, err := s.repo.LockBalance(ctx, first, itemID)
	if err != nil {
		return Balance{}, Balance{}, fmt.Errorf("lock balance: %w", err)
	}
	b, err := s.repo.LockBalance(ctx, second, itemID)
	if err != nil {
		return Balance{}, Balance{}, fmt.Errorf("lock balance: %w", err)
	}

	if swapped {
		return b, a, nil
	}
	return a, b, nil
}

func validateQuantity(q types.Quantity) error {
	if !q.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", q.String())
	}
	return nil
}
