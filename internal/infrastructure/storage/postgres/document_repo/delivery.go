package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	deliveriesTable    = "doc_deliveries"
	deliveryLinesTable = "doc_delivery_lines"
)

// DeliveryRepo implements delivery.Repository.
type DeliveryRepo struct {
	*BaseDocumentRepo[*delivery.Delivery]
	lines *LineTable[delivery.Line]
}

// NewDeliveryRepo creates a new delivery repository.
func NewDeliveryRepo(txm *postgres.TxManager) *DeliveryRepo {
	return &DeliveryRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			deliveriesTable,
			"delivery",
			postgres.ExtractDBColumns[delivery.Delivery](),
			func() *delivery.Delivery { return &delivery.Delivery{} },
		),
		lines: NewLineTable[delivery.Line](txm, deliveryLinesTable),
	}
}

// List retrieves deliveries with filtering.
func (r *DeliveryRepo) List(ctx context.Context, filter delivery.ListFilter) ([]*delivery.Delivery, int64, error) {
	q := r.BaseSelect()

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.PeriodID != nil {
		q = q.Where(squirrel.Eq{"period_id": *filter.PeriodID})
	}
	if filter.POID != nil {
		q = q.Where(squirrel.Eq{"po_id": *filter.POID})
	}
	if filter.HasVariance != nil {
		q = q.Where(squirrel.Eq{"has_variance": *filter.HasVariance})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}

	return r.BaseDocumentRepo.List(ctx, q, filter.Limit, filter.Offset)
}

// GetLines retrieves lines for a delivery.
func (r *DeliveryRepo) GetLines(ctx context.Context, docID id.ID) ([]delivery.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the lines of a delivery.
func (r *DeliveryRepo) SaveLines(ctx context.Context, docID id.ID, lines []delivery.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

var _ delivery.Repository = (*DeliveryRepo)(nil)
