// Package approval implements the single approval record that gates
// execution of transfers, purchase requisitions, purchase orders and
// period close.
package approval

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// EntityType names the kind of record an approval gates.
type EntityType string

const (
	EntityTransfer    EntityType = "TRANSFER"
	EntityPRF         EntityType = "PRF"
	EntityPO          EntityType = "PO"
	EntityPeriodClose EntityType = "PERIOD_CLOSE"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTransfer, EntityPRF, EntityPO, EntityPeriodClose:
		return true
	}
	return false
}

// Status of an approval.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Approval is the one decision record kept per (entity_type, entity_id).
// A rejected record is reset to PENDING when the entity is resubmitted.
type Approval struct {
	ID           id.ID          `db:"id" json:"id"`
	EntityType   EntityType     `db:"entity_type" json:"entityType"`
	EntityID     id.ID          `db:"entity_id" json:"entityId"`
	Status       Status         `db:"status" json:"status"`
	RequestedBy  string         `db:"requested_by" json:"requestedBy"`
	RequestedAt  time.Time      `db:"requested_at" json:"requestedAt"`
	ReviewedBy   string         `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	Comment      string         `db:"comment" json:"comment,omitempty"`
	AutoApproved bool           `db:"auto_approved" json:"autoApproved"`
	Context      map[string]any `db:"context" json:"context,omitempty"`
	Version      int            `db:"version" json:"version"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// Summary is what a gated entity exposes to approval policies.
type Summary struct {
	TotalValue float64
	LineCount  int
	LocationID string
}

func (s Summary) toMap() map[string]any {
	return map[string]any{
		"total_value": s.TotalValue,
		"line_count":  s.LineCount,
		"location_id": s.LocationID,
	}
}

// RequestInput asks for a decision on an entity.
type RequestInput struct {
	EntityType EntityType
	EntityID   id.ID
	Summary    Summary
}

// Handler executes the consequences of a decision for one entity type.
// It runs in the same transaction as the decision, so an error rolls the
// decision back.
type Handler interface {
	OnApproved(ctx context.Context, a *Approval) error
	OnRejected(ctx context.Context, a *Approval) error
}

// ListFilter narrows List.
type ListFilter struct {
	EntityType *EntityType
	Status     *Status
	Limit      int
	Offset     int
}
