// Package stocktake provides the stock-take (physical count) document used to
// reconcile a location before it is marked ready for period close.
package stocktake

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

// Status of a stock take.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:      {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// Active reports whether the stock take still blocks a new one for the same
// period and location.
func (s Status) Active() bool {
	return s == StatusDraft || s == StatusInProgress
}

// StockTake is a physical count of one location within one period.
type StockTake struct {
	entity.Document

	PeriodID    id.ID      `db:"period_id" json:"periodId"`
	LocationID  id.ID      `db:"location_id" json:"locationId"`
	Status      Status     `db:"status" json:"status"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	GainValue types.Money `db:"gain_value" json:"gainValue"`
	LossValue types.Money `db:"loss_value" json:"lossValue"`
	NetValue  types.Money `db:"net_value" json:"netValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is the book and counted quantity of one item.
type Line struct {
	LineID          id.ID           `db:"line_id" json:"lineId"`
	LineNo          int             `db:"line_no" json:"lineNo"`
	ItemID          id.ID           `db:"item_id" json:"itemId"`
	BookQuantity    types.Quantity  `db:"book_quantity" json:"bookQuantity"`
	WAC             types.Money     `db:"wac" json:"wac"`
	CountedQuantity *types.Quantity `db:"counted_quantity" json:"countedQuantity,omitempty"`
	Difference      types.Quantity  `db:"difference" json:"difference"`
	// AdjustmentValue is signed: positive for a gain.
	AdjustmentValue types.Money `db:"adjustment_value" json:"adjustmentValue"`
	CountedAt       *time.Time  `db:"counted_at" json:"countedAt,omitempty"`
	CountedBy       string      `db:"counted_by" json:"countedBy,omitempty"`
}

// Counted reports whether a count has been recorded.
func (l *Line) Counted() bool {
	return l.CountedQuantity != nil
}

// NewStockTake creates a DRAFT stock take.
func NewStockTake(periodID, locationID id.ID) *StockTake {
	return &StockTake{
		Document:   entity.NewDocument(),
		PeriodID:   periodID,
		LocationID: locationID,
		Status:     StatusDraft,
		GainValue:  decimal.Zero,
		LossValue:  decimal.Zero,
		NetValue:   decimal.Zero,
		Lines:      make([]Line, 0),
	}
}

// AddLine appends an item with its book position.
func (st *StockTake) AddLine(itemID id.ID, bookQty types.Quantity, wac types.Money) *Line {
	st.Lines = append(st.Lines, Line{
		LineID:          id.New(),
		LineNo:          len(st.Lines) + 1,
		ItemID:          itemID,
		BookQuantity:    bookQty,
		WAC:             wac,
		AdjustmentValue: decimal.Zero,
	})
	return &st.Lines[len(st.Lines)-1]
}

// FindItem returns the line of an item, or nil.
func (st *StockTake) FindItem(itemID id.ID) *Line {
	for i := range st.Lines {
		if st.Lines[i].ItemID == itemID {
			return &st.Lines[i]
		}
	}
	return nil
}

// SetCounted records the counted quantity of a line.
func (st *StockTake) SetCounted(lineNo int, qty types.Quantity, countedBy string, at time.Time) error {
	if st.Status != StatusInProgress {
		return apperror.NewBusinessRule(apperror.CodeInvalidTransition, "counts can only be recorded while the stock take is in progress").
			WithDetail("status", st.Status)
	}
	if lineNo < 1 || lineNo > len(st.Lines) {
		return apperror.NewValidation("invalid line number").WithDetail("lineNo", lineNo)
	}
	if qty.IsNegative() {
		return apperror.NewValidation("counted quantity cannot be negative").
			WithDetail("field", "countedQuantity").
			WithDetail("lineNo", lineNo)
	}

	l := &st.Lines[lineNo-1]
	l.CountedQuantity = &qty
	l.Difference = qty - l.BookQuantity
	l.AdjustmentValue = valuation.LineValue(l.Difference, l.WAC)
	l.CountedAt = &at
	l.CountedBy = countedBy
	return nil
}

// Uncounted returns the line numbers without a count.
func (st *StockTake) Uncounted() []int {
	var out []int
	for _, l := range st.Lines {
		if !l.Counted() {
			out = append(out, l.LineNo)
		}
	}
	return out
}

func (st *StockTake) recalculateTotals() {
	gain, loss := decimal.Zero, decimal.Zero
	for _, l := range st.Lines {
		if l.AdjustmentValue.IsPositive() {
			gain = gain.Add(l.AdjustmentValue)
		} else {
			loss = loss.Add(l.AdjustmentValue.Neg())
		}
	}
	st.GainValue = gain
	st.LossValue = loss
	st.NetValue = gain.Sub(loss)
}

// Validate implements entity.Validatable.
func (st *StockTake) Validate(ctx context.Context) error {
	if err := st.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(st.PeriodID) {
		return apperror.NewValidation("period is required").WithDetail("field", "periodId")
	}
	if id.IsNil(st.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	return nil
}

// TransitionTo moves the stock take to status or fails.
func (st *StockTake) TransitionTo(to Status) error {
	if !slices.Contains(transitions[st.Status], to) {
		return apperror.NewInvalidTransition("stock take", string(st.Status), string(to))
	}
	now := time.Now().UTC()
	switch to {
	case StatusInProgress:
		st.StartedAt = &now
	case StatusCompleted:
		st.CompletedAt = &now
	}
	st.Status = to
	st.UpdatedAt = now
	return nil
}
