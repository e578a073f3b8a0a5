// Package transfer provides inter-location stock transfers. A transfer is
// requested, approved and only then executed at the source location's WAC.
package transfer

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Status of a transfer.
type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusCompleted       Status = "COMPLETED"
	StatusRejected        Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusCompleted},
}

// Transfer moves stock from one location to another.
type Transfer struct {
	entity.Document

	FromLocationID id.ID       `db:"from_location_id" json:"fromLocationId"`
	ToLocationID   id.ID       `db:"to_location_id" json:"toLocationId"`
	Status         Status      `db:"status" json:"status"`
	RequestedBy    string      `db:"requested_by" json:"requestedBy"`
	PeriodID       *id.ID      `db:"period_id" json:"periodId,omitempty"`
	ExecutedAt     *time.Time  `db:"executed_at" json:"executedAt,omitempty"`
	TotalValue     types.Money `db:"total_value" json:"totalValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one transferred item. UnitCost is the source WAC at execution.
type Line struct {
	LineID    id.ID          `db:"line_id" json:"lineId"`
	LineNo    int            `db:"line_no" json:"lineNo"`
	ItemID    id.ID          `db:"item_id" json:"itemId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	LineValue types.Money    `db:"line_value" json:"lineValue"`
}

// NewTransfer creates a transfer between two locations.
func NewTransfer(fromLocationID, toLocationID id.ID) *Transfer {
	return &Transfer{
		Document:       entity.NewDocument(),
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Status:         StatusPendingApproval,
		TotalValue:     decimal.Zero,
		Lines:          make([]Line, 0),
	}
}

// AddLine appends an item to move.
func (t *Transfer) AddLine(itemID id.ID, qty types.Quantity) {
	t.Lines = append(t.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(t.Lines) + 1,
		ItemID:    itemID,
		Quantity:  qty,
		UnitCost:  decimal.Zero,
		LineValue: decimal.Zero,
	})
}

func (t *Transfer) recalculateTotals() {
	total := decimal.Zero
	for _, l := range t.Lines {
		total = total.Add(l.LineValue)
	}
	t.TotalValue = total
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.FromLocationID) || id.IsNil(t.ToLocationID) {
		return apperror.NewValidation("source and destination locations are required")
	}
	if t.FromLocationID == t.ToLocationID {
		return apperror.NewValidation("source and destination locations must differ").
			WithDetail("field", "toLocationId")
	}
	if len(t.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, l := range t.Lines {
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
	}
	return nil
}

// TransitionTo moves the transfer to status or fails.
func (t *Transfer) TransitionTo(to Status) error {
	if !slices.Contains(transitions[t.Status], to) {
		return apperror.NewInvalidTransition("transfer", string(t.Status), string(to))
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}
