package tx

import "context"

// MockManager runs fn directly without a database transaction.
// Use in unit tests of domain services.
type MockManager struct {
	// Calls counts RunInTransaction invocations.
	Calls int
}

// RunInTransaction implements Manager.
func (m *MockManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// Ensure compile-time interface compliance.
var _ Manager = (*MockManager)(nil)
