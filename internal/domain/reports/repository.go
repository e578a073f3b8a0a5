package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// GetStockValuation returns valued balances joined with item and
	// location names. TotalValue covers all matching rows, not only the page.
	GetStockValuation(ctx context.Context, filter StockValuationFilter) (*StockValuation, error)
}
