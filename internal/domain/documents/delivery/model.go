// Package delivery provides the goods-received document. Posting a delivery
// receives stock at the invoiced price and checks it against the period's
// locked price.
package delivery

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/valuation"
)

// Delivery is goods received from a supplier at a location.
type Delivery struct {
	entity.Document

	LocationID    id.ID       `db:"location_id" json:"locationId"`
	SupplierID    id.ID       `db:"supplier_id" json:"supplierId"`
	PeriodID      id.ID       `db:"period_id" json:"periodId"`
	POID          *id.ID      `db:"po_id" json:"poId,omitempty"`
	InvoiceNo     string      `db:"invoice_no" json:"invoiceNo,omitempty"`
	TotalAmount   types.Money `db:"total_amount" json:"totalAmount"`
	HasVariance   bool        `db:"has_variance" json:"hasVariance"`
	VarianceCount int         `db:"variance_count" json:"varianceCount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one received item.
type Line struct {
	LineID         id.ID          `db:"line_id" json:"lineId"`
	LineNo         int            `db:"line_no" json:"lineNo"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	POLineID       *id.ID         `db:"po_line_id" json:"poLineId,omitempty"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice      types.Money    `db:"unit_price" json:"unitPrice"`
	LineTotal      types.Money    `db:"line_total" json:"lineTotal"`
	LockedPrice    *types.Money   `db:"locked_price" json:"lockedPrice,omitempty"`
	VarianceAmount types.Money    `db:"variance_amount" json:"varianceAmount"`
	VariancePct    types.Money    `db:"variance_pct" json:"variancePct"`
	HasVariance    bool           `db:"has_variance" json:"hasVariance"`
	WACBefore      types.Money    `db:"wac_before" json:"wacBefore"`
	WACAfter       types.Money    `db:"wac_after" json:"wacAfter"`
}

// NewDelivery creates a delivery for supplier at location.
func NewDelivery(supplierID, locationID id.ID) *Delivery {
	return &Delivery{
		Document:    entity.NewDocument(),
		SupplierID:  supplierID,
		LocationID:  locationID,
		TotalAmount: decimal.Zero,
		Lines:       make([]Line, 0),
	}
}

// AddLine appends a received item.
func (d *Delivery) AddLine(itemID id.ID, qty types.Quantity, unitPrice types.Money, poLineID *id.ID) {
	d.Lines = append(d.Lines, Line{
		LineID:         id.New(),
		LineNo:         len(d.Lines) + 1,
		ItemID:         itemID,
		POLineID:       poLineID,
		Quantity:       qty,
		UnitPrice:      unitPrice,
		LineTotal:      valuation.LineValue(qty, unitPrice),
		VarianceAmount: decimal.Zero,
		VariancePct:    decimal.Zero,
	})
	d.recalculateTotals()
}

func (d *Delivery) recalculateTotals() {
	total := decimal.Zero
	count := 0
	for _, l := range d.Lines {
		total = total.Add(l.LineTotal)
		if l.HasVariance {
			count++
		}
	}
	d.TotalAmount = total
	d.VarianceCount = count
	d.HasVariance = count > 0
}

// Validate implements entity.Validatable.
func (d *Delivery) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(d.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if id.IsNil(d.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, l := range d.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if l.POLineID != nil && d.POID == nil {
			return apperror.NewValidation("purchase order line given without a purchase order").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	d.InvoiceNo = strings.TrimSpace(d.InvoiceNo)
	return nil
}
