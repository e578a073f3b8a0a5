package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
)

// LineTable reads and replaces the tabular part of a document.
// Rows are keyed by document_id; the remaining columns come from L's "db" tags.
type LineTable[L any] struct {
	txm     *postgres.TxManager
	table   string
	columns []string
}

// NewLineTable creates a line table accessor.
func NewLineTable[L any](txm *postgres.TxManager, table string) *LineTable[L] {
	return &LineTable[L]{
		txm:     txm,
		table:   table,
		columns: postgres.ExtractDBColumns[L](),
	}
}

func (t *LineTable[L]) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Get returns the lines of a document ordered by line_no.
func (t *LineTable[L]) Get(ctx context.Context, docID id.ID) ([]L, error) {
	q := t.builder().
		Select(t.columns...).
		From(t.table).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []L
	if err := pgxscan.Select(ctx, t.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines from %s: %w", t.table, err)
	}

	return lines, nil
}

// Replace deletes the existing lines of a document and inserts lines.
func (t *LineTable[L]) Replace(ctx context.Context, docID id.ID, lines []L) error {
	querier := t.txm.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + t.table + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := t.builder().
		Insert(t.table).
		Columns(append([]string{"document_id"}, t.columns...)...)

	for i := range lines {
		row := append([]any{docID}, postgres.RowValues(&lines[i], t.columns)...)
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert lines into %s: %w", t.table, err), t.table, docID)
	}

	return nil
}
