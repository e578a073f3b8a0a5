package location

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines the interface for Location persistence.
type Repository interface {
	// Upsert inserts the location or updates the row with the same code.
	// l is refreshed with the stored ID and version.
	Upsert(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, locationID id.ID) (*Location, error)
	GetByCode(ctx context.Context, code string) (*Location, error)
	List(ctx context.Context, filter ListFilter) ([]*Location, error)

	// ActiveIDs returns the IDs of all active locations ordered by code.
	ActiveIDs(ctx context.Context) ([]id.ID, error)
}
