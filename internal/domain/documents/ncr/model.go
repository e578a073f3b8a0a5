// Package ncr provides non-conformance reports raised against deliveries.
package ncr

import (
	"context"
	"slices"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Type classifies an NCR.
type Type string

const (
	TypePriceVariance Type = "PRICE_VARIANCE"
	TypeQuantity      Type = "QUANTITY"
	TypeQuality       Type = "QUALITY"
	TypeOther         Type = "OTHER"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypePriceVariance, TypeQuantity, TypeQuality, TypeOther:
		return true
	}
	return false
}

// Status of an NCR.
type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
)

var transitions = map[Status][]Status{
	StatusOpen:         {StatusAcknowledged, StatusResolved},
	StatusAcknowledged: {StatusResolved},
}

// NCR is a non-conformance report.
type NCR struct {
	entity.Document

	Type           Type           `db:"ncr_type" json:"type"`
	Auto           bool           `db:"auto" json:"auto"`
	Status         Status         `db:"status" json:"status"`
	LocationID     id.ID          `db:"location_id" json:"locationId"`
	SupplierID     *id.ID         `db:"supplier_id" json:"supplierId,omitempty"`
	ItemID         *id.ID         `db:"item_id" json:"itemId,omitempty"`
	DeliveryID     *id.ID         `db:"delivery_id" json:"deliveryId,omitempty"`
	DeliveryLineID *id.ID         `db:"delivery_line_id" json:"deliveryLineId,omitempty"`
	ExpectedPrice  *types.Money   `db:"expected_price" json:"expectedPrice,omitempty"`
	ActualPrice    *types.Money   `db:"actual_price" json:"actualPrice,omitempty"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	VarianceAmount types.Money    `db:"variance_amount" json:"varianceAmount"`
	VariancePct    types.Money    `db:"variance_pct" json:"variancePct"`
	Description    string         `db:"description" json:"description"`
	Resolution     string         `db:"resolution" json:"resolution,omitempty"`
}

// Validate implements entity.Validatable.
func (n *NCR) Validate(ctx context.Context) error {
	if err := n.Document.Validate(ctx); err != nil {
		return err
	}
	if !n.Type.Valid() {
		return apperror.NewValidation("unknown NCR type").WithDetail("type", n.Type)
	}
	if id.IsNil(n.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if strings.TrimSpace(n.Description) == "" {
		return apperror.NewValidation("description is required").WithDetail("field", "description")
	}
	if n.Quantity.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").WithDetail("field", "quantity")
	}
	return nil
}

// TransitionTo moves the NCR to status. Resolving requires a resolution note.
func (n *NCR) TransitionTo(to Status, resolution string) error {
	if !slices.Contains(transitions[n.Status], to) {
		return apperror.NewInvalidTransition("ncr", string(n.Status), string(to))
	}
	if to == StatusResolved {
		if strings.TrimSpace(resolution) == "" {
			return apperror.NewValidation("resolution is required").WithDetail("field", "resolution")
		}
		n.Resolution = resolution
	}
	n.Status = to
	return nil
}
