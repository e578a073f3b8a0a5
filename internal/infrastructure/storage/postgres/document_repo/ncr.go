package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/domain/documents/ncr"
	"stockledger/internal/infrastructure/storage/postgres"
)

const ncrsTable = "doc_ncrs"

// NCRRepo implements ncr.Repository.
type NCRRepo struct {
	*BaseDocumentRepo[*ncr.NCR]
}

// NewNCRRepo creates a new NCR repository.
func NewNCRRepo(txm *postgres.TxManager) *NCRRepo {
	return &NCRRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			ncrsTable,
			"ncr",
			postgres.ExtractDBColumns[ncr.NCR](),
			func() *ncr.NCR { return &ncr.NCR{} },
		),
	}
}

// List retrieves NCRs with filtering.
func (r *NCRRepo) List(ctx context.Context, filter ncr.ListFilter) ([]*ncr.NCR, int64, error) {
	q := r.BaseSelect()

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.DeliveryID != nil {
		q = q.Where(squirrel.Eq{"delivery_id": *filter.DeliveryID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"ncr_type": *filter.Type})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Auto != nil {
		q = q.Where(squirrel.Eq{"auto": *filter.Auto})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}

	return r.BaseDocumentRepo.List(ctx, q, filter.Limit, filter.Offset)
}

var _ ncr.Repository = (*NCRRepo)(nil)
