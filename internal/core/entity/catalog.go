package entity

import (
	"context"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
)

// Catalog is the base type for master data (locations, items, suppliers).
// Catalog rows are loaded by the seed command and looked up by code.
type Catalog struct {
	BaseEntity

	// Code is a human-readable identifier, unique per catalog
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// Active rows take part in new periods and documents
	Active bool `db:"active" json:"active"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewCatalog creates a new active Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	now := time.Now().UTC()
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Code) == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// CatalogFields returns the embedded catalog header.
func (c *Catalog) CatalogFields() *Catalog {
	return c
}
