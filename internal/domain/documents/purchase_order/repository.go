package purchase_order

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence for purchase orders.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseOrder) error
	// Update writes the header with optimistic locking on Version.
	Update(ctx context.Context, doc *PurchaseOrder) error
	GetByID(ctx context.Context, docID id.ID) (*PurchaseOrder, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseOrder, error)
	List(ctx context.Context, filter ListFilter) ([]*PurchaseOrder, int64, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
	// UpdateReceived writes QuantityReceived of the given lines.
	UpdateReceived(ctx context.Context, docID id.ID, lines []Line) error
}

// ListFilter for filtering purchase orders.
type ListFilter struct {
	SupplierID *id.ID
	LocationID *id.ID
	PRFID      *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
