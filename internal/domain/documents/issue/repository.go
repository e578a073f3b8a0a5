package issue

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository defines persistence for issues. Issues are immutable once created.
type Repository interface {
	Create(ctx context.Context, doc *Issue) error
	GetByID(ctx context.Context, docID id.ID) (*Issue, error)
	List(ctx context.Context, filter ListFilter) ([]*Issue, int64, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}

// ListFilter for filtering issues.
type ListFilter struct {
	LocationID *id.ID
	PeriodID   *id.ID
	CostCentre string
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}
