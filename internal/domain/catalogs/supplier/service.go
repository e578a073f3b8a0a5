package supplier

import (
	"context"
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Service provides access to the Supplier catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Supplier service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert validates and stores a supplier keyed by its code.
func (s *Service) Upsert(ctx context.Context, sup *Supplier) (*Supplier, error) {
	if err := sup.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, sup); err != nil {
		return nil, fmt.Errorf("upsert supplier: %w", err)
	}

	logger.Info(ctx, "supplier stored", "supplier_id", sup.ID, "code", sup.Code)
	return sup, nil
}

// Get returns a supplier by ID.
func (s *Service) Get(ctx context.Context, supplierID id.ID) (*Supplier, error) {
	return s.repo.GetByID(ctx, supplierID)
}

// GetByCode returns a supplier by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Supplier, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns suppliers matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Supplier, error) {
	return s.repo.List(ctx, filter)
}
