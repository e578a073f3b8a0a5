package stock

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository persists balances and movements.
type Repository interface {
	// GetBalance returns the balance or a zero balance if none exists.
	GetBalance(ctx context.Context, locationID, itemID id.ID) (Balance, error)

	// LockBalance creates the balance row when missing and locks it
	// (SELECT ... FOR UPDATE) for the rest of the transaction.
	LockBalance(ctx context.Context, locationID, itemID id.ID) (Balance, error)

	// SaveBalance writes quantity and WAC of a locked balance.
	SaveBalance(ctx context.Context, b Balance) error

	// InsertMovements appends ledger rows.
	InsertMovements(ctx context.Context, movements []Movement) error

	ListBalances(ctx context.Context, filter BalanceFilter) ([]Balance, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)

	// SumByKind aggregates quantity and value per movement kind.
	SumByKind(ctx context.Context, filter MovementFilter) ([]KindTotal, error)
}
