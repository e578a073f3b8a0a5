// Package purchase_order provides purchase orders and their receipt tracking.
package purchase_order

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/valuation"
)

// Status of a purchase order.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPendingApproval   Status = "PENDING_APPROVAL"
	StatusApproved          Status = "APPROVED"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusReceived          Status = "RECEIVED"
	StatusRejected          Status = "REJECTED"
	StatusCancelled         Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:             {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval:   {StatusApproved, StatusRejected},
	StatusRejected:          {StatusPendingApproval},
	StatusApproved:          {StatusPartiallyReceived, StatusReceived, StatusCancelled},
	StatusPartiallyReceived: {StatusPartiallyReceived, StatusReceived},
}

// Receivable reports whether deliveries may be booked against the order.
func (s Status) Receivable() bool {
	return s == StatusApproved || s == StatusPartiallyReceived
}

// PurchaseOrder is an order placed with a supplier for one location.
type PurchaseOrder struct {
	entity.Document

	PRFID        *id.ID      `db:"prf_id" json:"prfId,omitempty"`
	SupplierID   id.ID       `db:"supplier_id" json:"supplierId"`
	LocationID   id.ID       `db:"location_id" json:"locationId"`
	ExpectedDate *time.Time  `db:"expected_date" json:"expectedDate,omitempty"`
	Status       Status      `db:"status" json:"status"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one ordered item and what has been received against it.
type Line struct {
	LineID           id.ID          `db:"line_id" json:"lineId"`
	LineNo           int            `db:"line_no" json:"lineNo"`
	ItemID           id.ID          `db:"item_id" json:"itemId"`
	QuantityOrdered  types.Quantity `db:"quantity_ordered" json:"quantityOrdered"`
	QuantityReceived types.Quantity `db:"quantity_received" json:"quantityReceived"`
	UnitPrice        types.Money    `db:"unit_price" json:"unitPrice"`
	LineTotal        types.Money    `db:"line_total" json:"lineTotal"`
}

// Outstanding is the quantity still to be received.
func (l Line) Outstanding() types.Quantity {
	return l.QuantityOrdered - l.QuantityReceived
}

// NewPurchaseOrder creates a DRAFT order.
func NewPurchaseOrder(supplierID, locationID id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		Document:    entity.NewDocument(),
		SupplierID:  supplierID,
		LocationID:  locationID,
		Status:      StatusDraft,
		TotalAmount: decimal.Zero,
		Lines:       make([]Line, 0),
	}
}

// AddLine appends an ordered item and recalculates the total.
func (po *PurchaseOrder) AddLine(itemID id.ID, qty types.Quantity, unitPrice types.Money) {
	po.Lines = append(po.Lines, Line{
		LineID:          id.New(),
		LineNo:          len(po.Lines) + 1,
		ItemID:          itemID,
		QuantityOrdered: qty,
		UnitPrice:       unitPrice,
		LineTotal:       valuation.LineValue(qty, unitPrice),
	})
	po.recalculateTotals()
}

func (po *PurchaseOrder) recalculateTotals() {
	total := decimal.Zero
	for _, l := range po.Lines {
		total = total.Add(l.LineTotal)
	}
	po.TotalAmount = total
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(po.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if id.IsNil(po.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if len(po.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, l := range po.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !l.QuantityOrdered.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// TransitionTo moves the order to status or fails.
func (po *PurchaseOrder) TransitionTo(to Status) error {
	if !slices.Contains(transitions[po.Status], to) {
		return apperror.NewInvalidTransition("purchase order", string(po.Status), string(to))
	}
	po.Status = to
	po.UpdatedAt = time.Now().UTC()
	return nil
}

// HasReceipts reports whether any line has received quantity.
func (po *PurchaseOrder) HasReceipts() bool {
	for _, l := range po.Lines {
		if l.QuantityReceived > 0 {
			return true
		}
	}
	return false
}

// FullyReceived reports whether every line is received in full.
func (po *PurchaseOrder) FullyReceived() bool {
	for _, l := range po.Lines {
		if l.Outstanding() > 0 {
			return false
		}
	}
	return true
}
