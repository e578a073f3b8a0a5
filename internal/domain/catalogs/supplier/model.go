// Package supplier provides the Supplier catalog: vendors that deliver stock
// and receive purchase orders.
package supplier

import (
	"context"
	"regexp"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Supplier represents a vendor.
type Supplier struct {
	entity.Catalog

	// TaxID is the supplier's tax registration number
	TaxID *string `db:"tax_id" json:"taxId,omitempty"`

	ContactEmail *string `db:"contact_email" json:"contactEmail,omitempty"`
	ContactPhone *string `db:"contact_phone" json:"contactPhone,omitempty"`

	// PaymentTermsDays is the default credit period
	PaymentTermsDays int `db:"payment_terms_days" json:"paymentTermsDays"`
}

// NewSupplier creates an active Supplier.
func NewSupplier(code, name string) *Supplier {
	return &Supplier{Catalog: entity.NewCatalog(code, name)}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}

	if s.ContactEmail != nil && *s.ContactEmail != "" && !emailRE.MatchString(*s.ContactEmail) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "contactEmail")
	}

	if s.PaymentTermsDays < 0 {
		return apperror.NewValidation("payment terms cannot be negative").
			WithDetail("field", "paymentTermsDays")
	}

	return nil
}

// ListFilter narrows List.
type ListFilter struct {
	ActiveOnly bool
	Search     string
}
