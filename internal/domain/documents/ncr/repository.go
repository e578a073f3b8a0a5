package ncr

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence for NCRs.
type Repository interface {
	Create(ctx context.Context, doc *NCR) error
	Update(ctx context.Context, doc *NCR) error
	GetByID(ctx context.Context, docID id.ID) (*NCR, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*NCR, error)
	List(ctx context.Context, filter ListFilter) ([]*NCR, int64, error)
}

// ListFilter for filtering NCRs.
type ListFilter struct {
	LocationID *id.ID
	SupplierID *id.ID
	DeliveryID *id.ID
	Type       *Type
	Status     *Status
	Auto       *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
