package item

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	// Upsert inserts the item or updates the row with the same code.
	Upsert(ctx context.Context, i *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
	GetByCode(ctx context.Context, code string) (*Item, error)
	List(ctx context.Context, filter ListFilter) ([]*Item, int64, error)
}
