package period

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository persists periods and everything a period owns.
type Repository interface {
	PriceReader

	Create(ctx context.Context, p *Period) error
	// Update writes the period with optimistic locking on Version.
	Update(ctx context.Context, p *Period) error
	GetByID(ctx context.Context, periodID id.ID) (*Period, error)
	GetForUpdate(ctx context.Context, periodID id.ID) (*Period, error)
	List(ctx context.Context, filter ListFilter) ([]*Period, int64, error)

	// HasOverlap reports whether another period intersects [start, end].
	HasOverlap(ctx context.Context, start, end time.Time, excludeID *id.ID) (bool, error)
	// FindByDate returns the period containing date, or nil.
	FindByDate(ctx context.Context, date time.Time) (*Period, error)
	// FindOpen returns the OPEN period, or nil.
	FindOpen(ctx context.Context) (*Period, error)
	// PreviousClosed returns the latest CLOSED period ending before date, or nil.
	PreviousClosed(ctx context.Context, before time.Time) (*Period, error)

	CreateLocationStates(ctx context.Context, states []LocationState) error
	ListLocationStates(ctx context.Context, periodID id.ID) ([]LocationState, error)
	// GetLocationState returns nil when the location has no row in the period.
	GetLocationState(ctx context.Context, periodID, locationID id.ID, lock LockMode) (*LocationState, error)
	UpdateLocationState(ctx context.Context, s LocationState) error

	UpsertPrices(ctx context.Context, prices []LockedPrice) error
	ListPrices(ctx context.Context, periodID id.ID) ([]LockedPrice, error)
	CopyPrices(ctx context.Context, fromID, toID id.ID) (int64, error)

	InsertSnapshots(ctx context.Context, snapshots []Snapshot) error
	ListSnapshots(ctx context.Context, periodID id.ID, locationID *id.ID) ([]Snapshot, error)
}

// PriceReader looks up a locked price. It returns nil when the item has no
// locked price in the period. Implementations may cache, because prices are
// only read for periods that are already OPEN and therefore immutable.
type PriceReader interface {
	GetPrice(ctx context.Context, periodID, itemID id.ID) (*LockedPrice, error)
}

// LocationDirectory lists the locations that take part in a period.
type LocationDirectory interface {
	ActiveLocationIDs(ctx context.Context) ([]id.ID, error)
}
