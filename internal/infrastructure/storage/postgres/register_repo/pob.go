package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/pob"
	"stockledger/internal/infrastructure/storage/postgres"
)

const pobEntriesTable = "pob_entries"

// POBRepo implements pob.Repository.
type POBRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	columns []string
}

// NewPOBRepo creates a new POB register repository.
func NewPOBRepo(txm *postgres.TxManager) *POBRepo {
	return &POBRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns: postgres.ExtractDBColumns[pob.Entry](),
	}
}

// Upsert inserts the entry or replaces the count of the existing
// (location, date) row, then refreshes e with the stored row.
func (r *POBRepo) Upsert(ctx context.Context, e *pob.Entry) error {
	sql, args, err := r.builder.Insert(pobEntriesTable).
		Columns(r.columns...).
		Values(postgres.RowValues(e, r.columns)...).
		Suffix(`ON CONFLICT (location_id, entry_date) DO UPDATE
			SET head_count = EXCLUDED.head_count,
				recorded_by = EXCLUDED.recorded_by,
				updated_at = EXCLUDED.updated_at
			RETURNING id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	row := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return postgres.MapError(fmt.Errorf("upsert pob entry: %w", err), "pob_entry", e.LocationID)
	}

	return nil
}

// List returns entries, latest day first.
func (r *POBRepo) List(ctx context.Context, filter pob.ListFilter) ([]pob.Entry, int64, error) {
	q := r.builder.Select(r.columns...).From(pobEntriesTable)
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"entry_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"entry_date": *filter.To})
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pob entries: %w", err)
	}

	q = q.OrderBy("entry_date DESC", "location_id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var entries []pob.Entry
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select pob entries: %w", err)
	}

	return entries, total, nil
}

// Sum returns the total headcount and number of recorded days in the
// inclusive window.
func (r *POBRepo) Sum(ctx context.Context, locationID id.ID, from, to time.Time) (int64, int, error) {
	const sql = `
		SELECT COALESCE(SUM(head_count), 0)::bigint, COUNT(*)::int
		FROM pob_entries
		WHERE location_id = $1 AND entry_date BETWEEN $2::date AND $3::date
	`

	var (
		mandays int64
		days    int
	)
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, locationID, from, to).Scan(&mandays, &days); err != nil {
		return 0, 0, fmt.Errorf("sum pob entries: %w", err)
	}

	return mandays, days, nil
}

var _ pob.Repository = (*POBRepo)(nil)
