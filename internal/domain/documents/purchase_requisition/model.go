// Package purchase_requisition provides the purchase requisition form (PRF),
// the approved request that a purchase order is raised from.
package purchase_requisition

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/valuation"
)

// Status of a requisition.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusConverted       Status = "CONVERTED"
)

var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusRejected:        {StatusPendingApproval},
	StatusApproved:        {StatusConverted},
}

// PurchaseRequisition is a request to buy items for a location.
type PurchaseRequisition struct {
	entity.Document

	LocationID     id.ID       `db:"location_id" json:"locationId"`
	RequestedBy    string      `db:"requested_by" json:"requestedBy"`
	NeededBy       *time.Time  `db:"needed_by" json:"neededBy,omitempty"`
	Justification  string      `db:"justification" json:"justification"`
	Status         Status      `db:"status" json:"status"`
	EstimatedTotal types.Money `db:"estimated_total" json:"estimatedTotal"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one requested item.
type Line struct {
	LineID         id.ID          `db:"line_id" json:"lineId"`
	LineNo         int            `db:"line_no" json:"lineNo"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	EstimatedPrice types.Money    `db:"estimated_price" json:"estimatedPrice"`
	LineTotal      types.Money    `db:"line_total" json:"lineTotal"`
	Note           string         `db:"note" json:"note,omitempty"`
}

// NewPurchaseRequisition creates a DRAFT requisition.
func NewPurchaseRequisition(locationID id.ID) *PurchaseRequisition {
	return &PurchaseRequisition{
		Document:       entity.NewDocument(),
		LocationID:     locationID,
		Status:         StatusDraft,
		EstimatedTotal: decimal.Zero,
		Lines:          make([]Line, 0),
	}
}

// AddLine appends a line and recalculates the estimate.
func (p *PurchaseRequisition) AddLine(itemID id.ID, qty types.Quantity, estimatedPrice types.Money, note string) {
	p.Lines = append(p.Lines, Line{
		LineID:         id.New(),
		LineNo:         len(p.Lines) + 1,
		ItemID:         itemID,
		Quantity:       qty,
		EstimatedPrice: estimatedPrice,
		LineTotal:      valuation.LineValue(qty, estimatedPrice),
		Note:           note,
	})
	p.recalculateTotals()
}

func (p *PurchaseRequisition) recalculateTotals() {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.LineTotal)
	}
	p.EstimatedTotal = total
}

// Validate implements entity.Validatable.
func (p *PurchaseRequisition) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if strings.TrimSpace(p.Justification) == "" {
		return apperror.NewValidation("justification is required").WithDetail("field", "justification")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, l := range p.Lines {
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
		if l.EstimatedPrice.IsNegative() {
			return apperror.NewValidation("estimated price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// TransitionTo moves the requisition to status or fails.
func (p *PurchaseRequisition) TransitionTo(to Status) error {
	if !slices.Contains(transitions[p.Status], to) {
		return apperror.NewInvalidTransition("purchase requisition", string(p.Status), string(to))
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return nil
}
