package approval

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository persists approvals.
type Repository interface {
	Create(ctx context.Context, a *Approval) error

	// Update writes status fields with optimistic locking on Version.
	Update(ctx context.Context, a *Approval) error

	GetByID(ctx context.Context, approvalID id.ID) (*Approval, error)
	GetForUpdate(ctx context.Context, approvalID id.ID) (*Approval, error)

	// GetByEntityForUpdate returns nil, nil when the entity has no approval yet.
	GetByEntityForUpdate(ctx context.Context, entityType EntityType, entityID id.ID) (*Approval, error)
	GetByEntity(ctx context.Context, entityType EntityType, entityID id.ID) (*Approval, error)

	List(ctx context.Context, filter ListFilter) ([]*Approval, int64, error)
}
