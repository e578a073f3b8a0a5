// Package item provides the Item catalog: stock-keeping units that are
// received, issued, counted and priced per period.
package item

import (
	"context"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
)

// Item represents a stock-keeping unit.
type Item struct {
	entity.Catalog

	// Unit is the unit of measure quantities are kept in (kg, ea, l)
	Unit string `db:"unit" json:"unit"`

	Category string `db:"category" json:"category,omitempty"`

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`
}

// NewItem creates an active Item.
func NewItem(code, name, unit string) *Item {
	return &Item{
		Catalog: entity.NewCatalog(code, name),
		Unit:    strings.TrimSpace(unit),
	}
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.Catalog.Validate(ctx); err != nil {
		return err
	}

	if strings.TrimSpace(i.Unit) == "" {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unit")
	}

	if i.Barcode != nil && *i.Barcode != "" && !isValidBarcode(*i.Barcode) {
		return apperror.NewValidation("barcode must be 8 to 14 digits").
			WithDetail("field", "barcode")
	}

	return nil
}

// ListFilter narrows List.
type ListFilter struct {
	ActiveOnly bool
	Category   string
	Search     string
	Limit      int
	Offset     int
}

func isValidBarcode(code string) bool {
	if len(code) < 8 || len(code) > 14 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
