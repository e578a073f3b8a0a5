// Package location provides the Location catalog.
// Locations are the stores and sites that hold stock and take part in period close.
package location

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
)

// Type defines the kind of location.
type Type string

const (
	TypeWarehouse Type = "WAREHOUSE"
	TypeStore     Type = "STORE"
	TypeSite      Type = "SITE"
)

// Location represents a place where stock is held.
type Location struct {
	entity.Catalog

	Type Type `db:"location_type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`
}

// NewLocation creates an active Location.
func NewLocation(code, name string, t Type) *Location {
	return &Location{
		Catalog: entity.NewCatalog(code, name),
		Type:    t,
	}
}

// Validate implements entity.Validatable interface.
func (l *Location) Validate(ctx context.Context) error {
	if err := l.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidType(l.Type) {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}

	return nil
}

// ListFilter narrows List.
type ListFilter struct {
	ActiveOnly bool
	Search     string
}

func isValidType(t Type) bool {
	switch t {
	case TypeWarehouse, TypeStore, TypeSite:
		return true
	}
	return false
}
