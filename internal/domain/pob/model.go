// Package pob records the daily persons-on-board headcount of a location and
// derives the consumption cost per manday.
package pob

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Entry is the headcount of one location on one day.
type Entry struct {
	ID         id.ID     `db:"id" json:"id"`
	LocationID id.ID     `db:"location_id" json:"locationId"`
	EntryDate  time.Time `db:"entry_date" json:"entryDate"`
	Count      int64     `db:"head_count" json:"count"`
	RecordedBy string    `db:"recorded_by" json:"recordedBy,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks the entry before it is stored.
func (e *Entry) Validate() error {
	if id.IsNil(e.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if e.EntryDate.IsZero() {
		return apperror.NewValidation("entry date is required").WithDetail("field", "entryDate")
	}
	if e.Count < 0 {
		return apperror.NewValidation("count cannot be negative").
			WithDetail("field", "count").
			WithDetail("count", e.Count)
	}
	return nil
}

// MandayCost is the issue value of a location over a period spread across
// the mandays recorded in the same window.
type MandayCost struct {
	LocationID    id.ID        `json:"locationId"`
	PeriodID      id.ID        `json:"periodId"`
	From          time.Time    `json:"from"`
	To            time.Time    `json:"to"`
	TotalCost     types.Money  `json:"totalCost"`
	Mandays       int64        `json:"mandays"`
	DaysRecorded  int          `json:"daysRecorded"`
	CostPerManday *types.Money `json:"costPerManday"`
}

// ListFilter narrows List. From and To are inclusive days.
type ListFilter struct {
	LocationID *id.ID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
