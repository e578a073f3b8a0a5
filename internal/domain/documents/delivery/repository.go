package delivery

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence for deliveries. Deliveries are immutable
// once created.
type Repository interface {
	Create(ctx context.Context, doc *Delivery) error
	GetByID(ctx context.Context, docID id.ID) (*Delivery, error)
	List(ctx context.Context, filter ListFilter) ([]*Delivery, int64, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}

// ListFilter for filtering deliveries.
type ListFilter struct {
	LocationID  *id.ID
	SupplierID  *id.ID
	PeriodID    *id.ID
	POID        *id.ID
	HasVariance *bool
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       int
	Offset      int
}
