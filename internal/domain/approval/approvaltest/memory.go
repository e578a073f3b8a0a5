// Package approvaltest provides an in-memory approval.Repository for unit
// tests of the modules that are gated by approvals.
package approvaltest

import (
	"context"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/approval"
)

// MemoryRepository is a map-backed approval.Repository. Locks are no-ops.
type MemoryRepository struct {
	mu   sync.Mutex
	byID map[id.ID]*approval.Approval
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[id.ID]*approval.Approval)}
}

func (r *MemoryRepository) Create(_ context.Context, a *approval.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.EntityType == a.EntityType && existing.EntityID == a.EntityID {
			return apperror.NewDuplicate("approval", "entity_id", a.EntityID.String())
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, a *approval.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[a.ID]
	if !ok {
		return apperror.NewNotFound("approval", a.ID.String())
	}
	if stored.Version != a.Version {
		return apperror.NewConcurrentModification("approval", a.ID.String())
	}
	a.Version++
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, approvalID id.ID) (*approval.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[approvalID]
	if !ok {
		return nil, apperror.NewNotFound("approval", approvalID.String())
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, approvalID id.ID) (*approval.Approval, error) {
	return r.GetByID(ctx, approvalID)
}

func (r *MemoryRepository) GetByEntity(_ context.Context, et approval.EntityType, entityID id.ID) (*approval.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.EntityType == et && a.EntityID == entityID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetByEntityForUpdate(ctx context.Context, et approval.EntityType, entityID id.ID) (*approval.Approval, error) {
	return r.GetByEntity(ctx, et, entityID)
}

func (r *MemoryRepository) List(_ context.Context, f approval.ListFilter) ([]*approval.Approval, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*approval.Approval
	for _, a := range r.byID {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.EntityType != nil && a.EntityType != *f.EntityType {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

var _ approval.Repository = (*MemoryRepository)(nil)
