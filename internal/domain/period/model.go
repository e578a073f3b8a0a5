// Package period manages accounting periods: their lifecycle, the per-location
// close readiness, the prices locked for the period and the balance snapshots
// taken at close.
package period

import (
	"context"
	"slices"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Status of a period. Transitions only move forward, except for a rejected
// close which returns PENDING_CLOSE to OPEN.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusOpen         Status = "OPEN"
	StatusPendingClose Status = "PENDING_CLOSE"
	StatusApproved     Status = "APPROVED"
	StatusClosed       Status = "CLOSED"
)

var transitions = map[Status][]Status{
	StatusDraft:        {StatusOpen},
	StatusOpen:         {StatusPendingClose},
	StatusPendingClose: {StatusApproved, StatusOpen},
	StatusApproved:     {StatusClosed},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// LocationStatus is the close readiness of one location within a period.
type LocationStatus string

const (
	LocationOpen   LocationStatus = "OPEN"
	LocationReady  LocationStatus = "READY"
	LocationClosed LocationStatus = "CLOSED"
)

// Period is an accounting window.
type Period struct {
	ID        id.ID      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	StartDate time.Time  `db:"start_date" json:"startDate"`
	EndDate   time.Time  `db:"end_date" json:"endDate"`
	Status    Status     `db:"status" json:"status"`
	OpenedAt  *time.Time `db:"opened_at" json:"openedAt,omitempty"`
	ClosedAt  *time.Time `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy  string     `db:"closed_by" json:"closedBy,omitempty"`
	Version   int        `db:"version" json:"version"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// Validate implements entity.Validatable.
func (p *Period) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return apperror.NewValidation("start and end dates are required")
	}
	if p.EndDate.Before(p.StartDate) {
		return apperror.NewValidation("end date must not be before start date").
			WithDetail("start_date", p.StartDate.Format(time.DateOnly)).
			WithDetail("end_date", p.EndDate.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether date (by calendar day) falls inside the period.
func (p *Period) Contains(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(truncateDay(p.StartDate)) && !d.After(truncateDay(p.EndDate))
}

// TransitionTo moves the period to the next status or fails.
func (p *Period) TransitionTo(to Status) error {
	if !CanTransition(p.Status, to) {
		return apperror.NewInvalidTransition("period", string(p.Status), string(to))
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// LocationState is the readiness row of a location within a period.
type LocationState struct {
	PeriodID   id.ID          `db:"period_id" json:"periodId"`
	LocationID id.ID          `db:"location_id" json:"locationId"`
	Status     LocationStatus `db:"status" json:"status"`
	ReadyAt    *time.Time     `db:"ready_at" json:"readyAt,omitempty"`
	ReadyBy    string         `db:"ready_by" json:"readyBy,omitempty"`
	ClosedAt   *time.Time     `db:"closed_at" json:"closedAt,omitempty"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// LockedPrice is the single agreed price of an item within a period.
type LockedPrice struct {
	PeriodID  id.ID       `db:"period_id" json:"periodId"`
	ItemID    id.ID       `db:"item_id" json:"itemId"`
	Price     types.Money `db:"price" json:"price"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// Snapshot is the balance of an item at a location frozen at period close.
type Snapshot struct {
	PeriodID   id.ID          `db:"period_id" json:"periodId"`
	LocationID id.ID          `db:"location_id" json:"locationId"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	WAC        types.Money    `db:"wac" json:"wac"`
	Value      types.Money    `db:"value" json:"value"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// LockMode selects row locking for location state reads.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
