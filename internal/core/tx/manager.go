// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the pgx implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SerializableManager is implemented by managers able to run fn under
// SERIALIZABLE isolation. Period close uses it when available.
type SerializableManager interface {
	Manager
	RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}
