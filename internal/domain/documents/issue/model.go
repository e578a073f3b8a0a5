// Package issue provides the stock issue document: consumption of stock at
// a location, valued at the weighted average cost at the time of issue.
package issue

import (
	"context"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Issue is stock consumed at a location.
type Issue struct {
	entity.Document

	LocationID id.ID       `db:"location_id" json:"locationId"`
	PeriodID   id.ID       `db:"period_id" json:"periodId"`
	CostCentre string      `db:"cost_centre" json:"costCentre,omitempty"`
	Purpose    string      `db:"purpose" json:"purpose,omitempty"`
	TotalValue types.Money `db:"total_value" json:"totalValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one issued item. WACAtIssue and LineValue are captured on posting.
type Line struct {
	LineID     id.ID          `db:"line_id" json:"lineId"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	WACAtIssue types.Money    `db:"wac_at_issue" json:"wacAtIssue"`
	LineValue  types.Money    `db:"line_value" json:"lineValue"`
}

// NewIssue creates an issue from location.
func NewIssue(locationID id.ID) *Issue {
	return &Issue{
		Document:   entity.NewDocument(),
		LocationID: locationID,
		TotalValue: decimal.Zero,
		Lines:      make([]Line, 0),
	}
}

// AddLine appends an item to issue.
func (i *Issue) AddLine(itemID id.ID, qty types.Quantity) {
	i.Lines = append(i.Lines, Line{
		LineID:     id.New(),
		LineNo:     len(i.Lines) + 1,
		ItemID:     itemID,
		Quantity:   qty,
		WACAtIssue: decimal.Zero,
		LineValue:  decimal.Zero,
	})
}

func (i *Issue) recalculateTotals() {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.LineValue)
	}
	i.TotalValue = total
}

// Validate implements entity.Validatable.
func (i *Issue) Validate(ctx context.Context) error {
	if err := i.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(i.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if len(i.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for n, l := range i.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", n+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", n+1)
		}
	}
	return nil
}
