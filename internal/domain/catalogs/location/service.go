package location

import (
	"context"
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// Service provides access to the Location catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Location service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upsert validates and stores a location keyed by its code.
func (s *Service) Upsert(ctx context.Context, l *Location) (*Location, error) {
	if err := l.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, l); err != nil {
		return nil, fmt.Errorf("upsert location: %w", err)
	}

	logger.Info(ctx, "location stored", "location_id", l.ID, "code", l.Code)
	return l, nil
}

// Get returns a location by ID.
func (s *Service) Get(ctx context.Context, locationID id.ID) (*Location, error) {
	return s.repo.GetByID(ctx, locationID)
}

// GetByCode returns a location by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Location, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns locations matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Location, error) {
	return s.repo.List(ctx, filter)
}

// ActiveLocationIDs lists the locations that take part in a new period.
func (s *Service) ActiveLocationIDs(ctx context.Context) ([]id.ID, error) {
	return s.repo.ActiveIDs(ctx)
}
