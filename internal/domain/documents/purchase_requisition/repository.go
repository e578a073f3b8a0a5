package purchase_requisition

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence for requisitions.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseRequisition) error
	// Update writes the header with optimistic locking on Version.
	Update(ctx context.Context, doc *PurchaseRequisition) error
	GetByID(ctx context.Context, docID id.ID) (*PurchaseRequisition, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseRequisition, error)
	List(ctx context.Context, filter ListFilter) ([]*PurchaseRequisition, int64, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}

// ListFilter for filtering requisitions.
type ListFilter struct {
	LocationID  *id.ID
	Status      *Status
	RequestedBy string
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       int
	Offset      int
}
