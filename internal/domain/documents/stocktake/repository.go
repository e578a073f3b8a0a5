package stocktake

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines persistence for stock takes.
type Repository interface {
	Create(ctx context.Context, doc *StockTake) error
	Update(ctx context.Context, doc *StockTake) error
	GetByID(ctx context.Context, docID id.ID) (*StockTake, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*StockTake, error)
	List(ctx context.Context, filter ListFilter) ([]*StockTake, int64, error)

	// FindActive returns the DRAFT or IN_PROGRESS stock take of a location
	// in a period, or nil.
	FindActive(ctx context.Context, periodID, locationID id.ID) (*StockTake, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}

// ListFilter for filtering stock takes.
type ListFilter struct {
	PeriodID   *id.ID
	LocationID *id.ID
	Status     *Status
	Limit      int
	Offset     int
}
