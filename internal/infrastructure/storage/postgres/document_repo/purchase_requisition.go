package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/purchase_requisition"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	requisitionsTable     = "doc_requisitions"
	requisitionLinesTable = "doc_requisition_lines"
)

// RequisitionRepo implements purchase_requisition.Repository.
type RequisitionRepo struct {
	*BaseDocumentRepo[*purchase_requisition.PurchaseRequisition]
	lines *LineTable[purchase_requisition.Line]
}

// NewRequisitionRepo creates a new requisition repository.
func NewRequisitionRepo(txm *postgres.TxManager) *RequisitionRepo {
	return &RequisitionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			requisitionsTable,
			"purchase_requisition",
			postgres.ExtractDBColumns[purchase_requisition.PurchaseRequisition](),
			func() *purchase_requisition.PurchaseRequisition { return &purchase_requisition.PurchaseRequisition{} },
		),
		lines: NewLineTable[purchase_requisition.Line](txm, requisitionLinesTable),
	}
}

// List retrieves requisitions with filtering.
func (r *RequisitionRepo) List(ctx context.Context, filter purchase_requisition.ListFilter) ([]*purchase_requisition.PurchaseRequisition, int64, error) {
	q := r.BaseSelect()

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.RequestedBy != "" {
		q = q.Where(squirrel.Eq{"requested_by": filter.RequestedBy})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}

	return r.BaseDocumentRepo.List(ctx, q, filter.Limit, filter.Offset)
}

// GetLines retrieves lines for a requisition.
func (r *RequisitionRepo) GetLines(ctx context.Context, docID id.ID) ([]purchase_requisition.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the lines of a requisition.
func (r *RequisitionRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_requisition.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

var _ purchase_requisition.Repository = (*RequisitionRepo)(nil)
