package item

import (
	"context"
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/pkg/logger"
)

// Service provides access to the Item catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Item service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert validates and stores an item keyed by its code.
func (s *Service) Upsert(ctx context.Context, i *Item) (*Item, error) {
	if err := i.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, i); err != nil {
		return nil, fmt.Errorf("upsert item: %w", err)
	}

	logger.Info(ctx, "item stored", "item_id", i.ID, "code", i.Code)
	return i, nil
}

// Get returns an item by ID.
func (s *Service) Get(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// GetByCode returns an item by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Item, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns a page of items.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Item], error) {
	page := domain.Page{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Item]{}, err
	}
	return domain.ListResult[*Item]{
		Items:      items,
		TotalCount: total,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, nil
}
