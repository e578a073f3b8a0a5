package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Document is the base type for numbered business transactions
// (deliveries, issues, transfers, requisitions, orders, NCRs, stock-takes).
type Document struct {
	BaseDocument

	// Number is the document number (PREFIX-YYYY-NNNNN), unique per document type
	Number string `db:"number" json:"number"`

	// Date is the business date used to resolve the accounting period
	Date time.Time `db:"doc_date" json:"date"`

	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document dated today.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC().Truncate(24 * time.Hour),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}

// SetCreatedBy stamps the creating user on a new document.
func (d *Document) SetCreatedBy(userID string) {
	d.CreatedBy = userID
	d.UpdatedBy = userID
}
