// Package numerator defines document numbering. The database-backed
// implementation lives in pkg/numerator.
package numerator

import (
	"context"
	"time"
)

// Document number prefixes.
const (
	PrefixDelivery       = "DLV"
	PrefixIssue          = "ISS"
	PrefixTransfer       = "TRF"
	PrefixRequisition    = "PRF"
	PrefixPurchaseOrder  = "PO"
	PrefixNonConformance = "NCR"
	PrefixStockTake      = "STK"
)

// Generator generates sequential document numbers.
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., DLV-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the next number value (for data imports).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
