package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/stocktake"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	stockTakesTable     = "doc_stock_takes"
	stockTakeLinesTable = "doc_stock_take_lines"
)

// StockTakeRepo implements stocktake.Repository.
type StockTakeRepo struct {
	*BaseDocumentRepo[*stocktake.StockTake]
	lines *LineTable[stocktake.Line]
}

// NewStockTakeRepo creates a new stock take repository.
func NewStockTakeRepo(txm *postgres.TxManager) *StockTakeRepo {
	return &StockTakeRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			stockTakesTable,
			"stock_take",
			postgres.ExtractDBColumns[stocktake.StockTake](),
			func() *stocktake.StockTake { return &stocktake.StockTake{} },
		),
		lines: NewLineTable[stocktake.Line](txm, stockTakeLinesTable),
	}
}

// List retrieves stock takes with filtering.
func (r *StockTakeRepo) List(ctx context.Context, filter stocktake.ListFilter) ([]*stocktake.StockTake, int64, error) {
	q := r.BaseSelect()

	if filter.PeriodID != nil {
		q = q.Where(squirrel.Eq{"period_id": *filter.PeriodID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	return r.BaseDocumentRepo.List(ctx, q, filter.Limit, filter.Offset)
}

// FindActive returns the DRAFT or IN_PROGRESS stock take of a location in a
// period, or nil.
func (r *StockTakeRepo) FindActive(ctx context.Context, periodID, locationID id.ID) (*stocktake.StockTake, error) {
	q := r.BaseSelect().
		Where(squirrel.Eq{
			"period_id":   periodID,
			"location_id": locationID,
			"status":      []stocktake.Status{stocktake.StatusDraft, stocktake.StatusInProgress},
		})

	doc, ok, err := r.FindOne(ctx, q)
	if err != nil || !ok {
		return nil, err
	}
	return doc, nil
}

// GetLines retrieves lines for a stock take.
func (r *StockTakeRepo) GetLines(ctx context.Context, docID id.ID) ([]stocktake.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the lines of a stock take.
func (r *StockTakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []stocktake.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

var _ stocktake.Repository = (*StockTakeRepo)(nil)
