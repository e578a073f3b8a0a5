package pob

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository persists POB entries.
type Repository interface {
	// Upsert inserts the entry or replaces the count of the existing
	// (location, date) row. e is refreshed with the stored row.
	Upsert(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter ListFilter) ([]Entry, int64, error)
	// Sum returns the total headcount and number of recorded days in the
	// inclusive window.
	Sum(ctx context.Context, locationID id.ID, from, to time.Time) (mandays int64, days int, err error)
}
