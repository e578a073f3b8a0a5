package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/purchase_order"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable     = "doc_purchase_orders"
	purchaseOrderLinesTable = "doc_purchase_order_lines"
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase_order.PurchaseOrder]
	lines *LineTable[purchase_order.Line]
	batch *postgres.BatchExecutor
}

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txm *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			purchaseOrdersTable,
			"purchase_order",
			postgres.ExtractDBColumns[purchase_order.PurchaseOrder](),
			func() *purchase_order.PurchaseOrder { return &purchase_order.PurchaseOrder{} },
		),
		lines: NewLineTable[purchase_order.Line](txm, purchaseOrderLinesTable),
		batch: postgres.NewBatchExecutor(txm),
	}
}

// List retrieves purchase orders with filtering.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter purchase_order.ListFilter) ([]*purchase_order.PurchaseOrder, int64, error) {
	q := r.BaseSelect()

	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.PRFID != nil {
		q = q.Where(squirrel.Eq{"prf_id": *filter.PRFID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}

	return r.BaseDocumentRepo.List(ctx, q, filter.Limit, filter.Offset)
}

// GetLines retrieves lines for a purchase order.
func (r *PurchaseOrderRepo) GetLines(ctx context.Context, docID id.ID) ([]purchase_order.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the lines of a purchase order.
func (r *PurchaseOrderRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_order.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

// UpdateReceived writes quantity_received of the given lines in one round-trip.
// It must run inside the transaction that locked the order.
func (r *PurchaseOrderRepo) UpdateReceived(ctx context.Context, docID id.ID, lines []purchase_order.Line) error {
	queries := make([]postgres.BatchQuery, 0, len(lines))
	for _, l := range lines {
		queries = append(queries, postgres.BatchQuery{
			SQL: "UPDATE " + purchaseOrderLinesTable +
				" SET quantity_received = $1 WHERE document_id = $2 AND line_id = $3",
			Args: []any{l.QuantityReceived, docID, l.LineID},
		})
	}

	affected, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return fmt.Errorf("update received quantities: %w", err)
	}
	if affected != int64(len(lines)) {
		return fmt.Errorf("update received quantities: %d of %d lines matched", affected, len(lines))
	}

	return nil
}

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)
