// Package stock maintains per-location item balances valued at weighted
// average cost, and the movement ledger that explains every change.
package stock

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// MovementKind classifies a ledger row.
type MovementKind string

const (
	KindReceipt       MovementKind = "RECEIPT"
	KindIssue         MovementKind = "ISSUE"
	KindTransferIn    MovementKind = "TRANSFER_IN"
	KindTransferOut   MovementKind = "TRANSFER_OUT"
	KindAdjustmentIn  MovementKind = "ADJUSTMENT_IN"
	KindAdjustmentOut MovementKind = "ADJUSTMENT_OUT"
)

// Inbound reports whether the kind adds stock.
func (k MovementKind) Inbound() bool {
	switch k {
	case KindReceipt, KindTransferIn, KindAdjustmentIn:
		return true
	}
	return false
}

// Balance is the on-hand position of one item at one location.
type Balance struct {
	LocationID     id.ID          `db:"location_id" json:"locationId"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	WAC            types.Money    `db:"wac" json:"wac"`
	LastMovementAt *time.Time     `db:"last_movement_at" json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// Value is the carrying value of the balance at WAC.
func (b Balance) Value() types.Money {
	return types.RoundMoney(b.Quantity.Decimal().Mul(b.WAC))
}

// Movement is an immutable ledger row. Quantity is signed: positive for
// inbound kinds, negative for outbound.
type Movement struct {
	ID         id.ID          `db:"id" json:"id"`
	LocationID id.ID          `db:"location_id" json:"locationId"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	PeriodID   id.ID          `db:"period_id" json:"periodId"`
	Kind       MovementKind   `db:"kind" json:"kind"`
	SourceType string         `db:"source_type" json:"sourceType"`
	SourceID   id.ID          `db:"source_id" json:"sourceId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitCost   types.Money    `db:"unit_cost" json:"unitCost"`
	Value      types.Money    `db:"value" json:"value"`
	WACBefore  types.Money    `db:"wac_before" json:"wacBefore"`
	WACAfter   types.Money    `db:"wac_after" json:"wacAfter"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// Source identifies the document that caused a movement.
type Source struct {
	Type     string
	ID       id.ID
	PeriodID id.ID
}

// Source types recorded on movements.
const (
	SourceDelivery       = "DELIVERY"
	SourceIssue          = "ISSUE"
	SourceTransfer       = "TRANSFER"
	SourceReconciliation = "RECONCILIATION"
)

// BalanceFilter narrows ListBalances.
type BalanceFilter struct {
	LocationID  *id.ID
	ItemIDs     []id.ID
	ExcludeZero bool
}

// MovementFilter narrows ListMovements and SumByKind.
type MovementFilter struct {
	LocationID *id.ID
	ItemID     *id.ID
	PeriodID   *id.ID
	Kind       *MovementKind
	SourceID   *id.ID
	Limit      int
	Offset     int
}

// KindTotal aggregates movements of one kind.
type KindTotal struct {
	Kind     MovementKind   `db:"kind" json:"kind"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Value    types.Money    `db:"value" json:"value"`
}
