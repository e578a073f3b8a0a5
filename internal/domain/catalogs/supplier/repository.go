package supplier

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	// Upsert inserts the supplier or updates the row with the same code.
	Upsert(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error)
	GetByCode(ctx context.Context, code string) (*Supplier, error)
	List(ctx context.Context, filter ListFilter) ([]*Supplier, error)
}
