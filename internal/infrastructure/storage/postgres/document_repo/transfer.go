package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	transfersTable     = "doc_transfers"
	transferLinesTable = "doc_transfer_lines"
)

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	*BaseDocumentRepo[*transfer.Transfer]
	lines *LineTable[transfer.Line]
}

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txm *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			transfersTable,
			"transfer",
			postgres.ExtractDBColumns[transfer.Transfer](),
			func() *transfer.Transfer { return &transfer.Transfer{} },
		),
		lines: NewLineTable[transfer.Line](txm, transferLinesTable),
	}
}

// List retrieves transfers with filtering.
func (r *TransferRepo) List(ctx context.Context, filter transfer.ListFilter) ([]*transfer.Transfer, int64, error) {
	q := r.BaseSelect()

	if filter.FromLocationID != nil {
		q = q.Where(squirrel.Eq{"from_location_id": *filter.FromLocationID})
	}
	if filter.ToLocationID != nil {
		q = q.Where(squirrel.Eq{"to_location_id": *filter.ToLocationID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_location_id": *filter.LocationID},
			squirrel.Eq{"to_location_id": *filter.LocationID},
		})
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

// GetLines retrieves lines for a transfer.
func (r *TransferRepo) GetLines(ctx context.Context, docID id.ID) ([]transfer.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the lines of a transfer.
func (r *TransferRepo) SaveLines(ctx context.Context, docID id.ID, lines []transfer.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

var _ transfer.Repository = (*TransferRepo)(nil)
