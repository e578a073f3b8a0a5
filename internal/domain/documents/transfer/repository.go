package transfer

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence for transfers.
type Repository interface {
	Create(ctx context.Context, doc *Transfer) error
	// Update writes the header with optimistic locking on Version.
	Update(ctx context.Context, doc *Transfer) error
	GetByID(ctx context.Context, docID id.ID) (*Transfer, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*Transfer, error)
	List(ctx context.Context, filter ListFilter) ([]*Transfer, int64, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}

// ListFilter for filtering transfers.
type ListFilter struct {
	FromLocationID *id.ID
	ToLocationID   *id.ID
	// LocationID matches either side.
	LocationID *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
