// Package period_repo provides the PostgreSQL implementation of period.Repository.
package period_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	periodsTable   = "periods"
	locationsTable = "period_locations"
	pricesTable    = "period_prices"
	snapshotsTable = "period_snapshots"

	// snapshotChunk keeps multi-row inserts below the bind parameter limit.
	snapshotChunk = 1000
)

// PeriodRepo implements period.Repository.
type PeriodRepo struct {
	txm          *postgres.TxManager
	builder      squirrel.StatementBuilderType
	inserter     *postgres.BatchInserter
	periodCols   []string
	stateCols    []string
	priceCols    []string
	snapshotCols []string
}

// NewPeriodRepo creates a new period repository.
func NewPeriodRepo(txm *postgres.TxManager) *PeriodRepo {
	return &PeriodRepo{
		txm:          txm,
		builder:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		inserter:     postgres.NewBatchInserter(txm),
		periodCols:   postgres.ExtractDBColumns[period.Period](),
		stateCols:    postgres.ExtractDBColumns[period.LocationState](),
		priceCols:    postgres.ExtractDBColumns[period.LockedPrice](),
		snapshotCols: postgres.ExtractDBColumns[period.Snapshot](),
	}
}

func (r *PeriodRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// --- Periods ---

// Create inserts a new period.
func (r *PeriodRepo) Create(ctx context.Context, p *period.Period) error {
	q := r.builder.Insert(periodsTable).
		Columns(r.periodCols...).
		Values(postgres.RowValues(p, r.periodCols)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert period: %w", err), "period", p.ID)
	}
	return nil
}

// Update writes the period with optimistic locking on Version.
func (r *PeriodRepo) Update(ctx context.Context, p *period.Period) error {
	data := postgres.StructToMap(p)
	set := make(map[string]any, len(r.periodCols))
	for _, col := range postgres.ColumnsExcept(r.periodCols, "id", "version", "created_at", "updated_at") {
		set[col] = data[col]
	}

	q := r.builder.Update(periodsTable).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update period: %w", err), "period", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("period", p.ID)
	}

	p.Version++
	return nil
}

// GetByID retrieves a period by ID.
func (r *PeriodRepo) GetByID(ctx context.Context, periodID id.ID) (*period.Period, error) {
	return r.getOne(ctx, r.selectPeriods().Where(squirrel.Eq{"id": periodID}), periodID)
}

// GetForUpdate retrieves a period with row lock.
func (r *PeriodRepo) GetForUpdate(ctx context.Context, periodID id.ID) (*period.Period, error) {
	return r.getOne(ctx, r.selectPeriods().Where(squirrel.Eq{"id": periodID}).Suffix("FOR UPDATE"), periodID)
}

// List retrieves periods, latest first.
func (r *PeriodRepo) List(ctx context.Context, filter period.ListFilter) ([]*period.Period, int64, error) {
	q := r.selectPeriods()
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count periods: %w", err)
	}

	q = q.OrderBy("start_date DESC")
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

	var items []*period.Period
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list periods: %w", err)
	}
	return items, total, nil
}

// HasOverlap reports whether another period intersects [start, end].
func (r *PeriodRepo) HasOverlap(ctx context.Context, start, end time.Time, excludeID *id.ID) (bool, error) {
	inner := r.builder.Select("1").From(periodsTable).
		Where(squirrel.LtOrEq{"start_date": end}).
		Where(squirrel.GtOrEq{"end_date": start})
	if excludeID != nil {
		inner = inner.Where(squirrel.NotEq{"id": *excludeID})
	}

	innerSQL, args, err := inner.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, "SELECT EXISTS ("+innerSQL+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check period overlap: %w", err)
	}
	return exists, nil
}

// FindByDate returns the period containing date, or nil.
func (r *PeriodRepo) FindByDate(ctx context.Context, date time.Time) (*period.Period, error) {
	return r.findOne(ctx, r.selectPeriods().
		Where(squirrel.LtOrEq{"start_date": date}).
		Where(squirrel.GtOrEq{"end_date": date}))
}

// FindOpen returns the OPEN period, or nil.
func (r *PeriodRepo) FindOpen(ctx context.Context) (*period.Period, error) {
	return r.findOne(ctx, r.selectPeriods().Where(squirrel.Eq{"status": period.StatusOpen}))
}

// PreviousClosed returns the latest CLOSED period ending before date, or nil.
func (r *PeriodRepo) PreviousClosed(ctx context.Context, before time.Time) (*period.Period, error) {
	return r.findOne(ctx, r.selectPeriods().
		Where(squirrel.Eq{"status": period.StatusClosed}).
		Where(squirrel.Lt{"end_date": before}).
		OrderBy("end_date DESC"))
}

func (r *PeriodRepo) selectPeriods() squirrel.SelectBuilder {
	return r.builder.Select(r.periodCols...).From(periodsTable)
}

func (r *PeriodRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, periodID id.ID) (*period.Period, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p period.Period
	if err := pgxscan.Get(ctx, r.querier(ctx), &p, sql, args...); err != nil {
		return nil, postgres.MapError(err, "period", periodID)
	}
	return &p, nil
}

func (r *PeriodRepo) findOne(ctx context.Context, q squirrel.SelectBuilder) (*period.Period, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p period.Period
	if err := pgxscan.Get(ctx, r.querier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find period: %w", err)
	}
	return &p, nil
}

// --- Location sub-status ---

// CreateLocationStates inserts the location rows of a period. Inside a
// transaction the rows are loaded with COPY.
func (r *PeriodRepo) CreateLocationStates(ctx context.Context, states []period.LocationState) error {
	if len(states) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(states))
	for i := range states {
		rows = append(rows, postgres.RowValues(&states[i], r.stateCols))
	}

	if r.txm.GetTx(ctx) != nil {
		if _, err := r.inserter.CopyFromSlice(ctx, locationsTable, r.stateCols, rows); err != nil {
			return postgres.MapError(fmt.Errorf("copy location states: %w", err), "period_location", states[0].PeriodID)
		}
		return nil
	}

	q := r.builder.Insert(locationsTable).Columns(r.stateCols...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert location states: %w", err), "period_location", states[0].PeriodID)
	}
	return nil
}

// ListLocationStates returns the location rows of a period.
func (r *PeriodRepo) ListLocationStates(ctx context.Context, periodID id.ID) ([]period.LocationState, error) {
	sql, args, err := r.builder.Select(r.stateCols...).From(locationsTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("location_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var states []period.LocationState
	if err := pgxscan.Select(ctx, r.querier(ctx), &states, sql, args...); err != nil {
		return nil, fmt.Errorf("list location states: %w", err)
	}
	return states, nil
}

// GetLocationState returns nil when the location has no row in the period.
func (r *PeriodRepo) GetLocationState(ctx context.Context, periodID, locationID id.ID, lock period.LockMode) (*period.LocationState, error) {
	q := r.builder.Select(r.stateCols...).From(locationsTable).
		Where(squirrel.Eq{"period_id": periodID, "location_id": locationID})
	switch lock {
	case period.LockShare:
		q = q.Suffix("FOR SHARE")
	case period.LockUpdate:
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var st period.LocationState
	if err := pgxscan.Get(ctx, r.querier(ctx), &st, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location state: %w", err)
	}
	return &st, nil
}

// UpdateLocationState writes the sub-status of one location.
func (r *PeriodRepo) UpdateLocationState(ctx context.Context, s period.LocationState) error {
	sql, args, err := r.builder.Update(locationsTable).
		Set("status", s.Status).
		Set("ready_at", s.ReadyAt).
		Set("ready_by", s.ReadyBy).
		Set("closed_at", s.ClosedAt).
		Set("updated_at", s.UpdatedAt).
		Where(squirrel.Eq{"period_id": s.PeriodID, "location_id": s.LocationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update location state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("period_location", s.LocationID)
	}
	return nil
}

// --- Locked prices ---

// UpsertPrices inserts prices or replaces the price of existing (period, item) rows.
// When an item repeats, the last row wins.
func (r *PeriodRepo) UpsertPrices(ctx context.Context, prices []period.LockedPrice) error {
	if len(prices) == 0 {
		return nil
	}

	type key struct{ period, item id.ID }
	last := make(map[key]int, len(prices))
	for i, p := range prices {
		last[key{p.PeriodID, p.ItemID}] = i
	}

	q := r.builder.Insert(pricesTable).Columns(r.priceCols...)
	for i := range prices {
		if last[key{prices[i].PeriodID, prices[i].ItemID}] != i {
			continue
		}
		q = q.Values(postgres.RowValues(&prices[i], r.priceCols)...)
	}
	q = q.Suffix("ON CONFLICT (period_id, item_id) DO UPDATE SET price = EXCLUDED.price, updated_at = EXCLUDED.updated_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("upsert prices: %w", err), "period_price", prices[0].PeriodID)
	}
	return nil
}

// ListPrices returns the locked prices of a period.
func (r *PeriodRepo) ListPrices(ctx context.Context, periodID id.ID) ([]period.LockedPrice, error) {
	sql, args, err := r.builder.Select(r.priceCols...).From(pricesTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var prices []period.LockedPrice
	if err := pgxscan.Select(ctx, r.querier(ctx), &prices, sql, args...); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return prices, nil
}

// GetPrice returns the locked price of an item, or nil.
func (r *PeriodRepo) GetPrice(ctx context.Context, periodID, itemID id.ID) (*period.LockedPrice, error) {
	sql, args, err := r.builder.Select(r.priceCols...).From(pricesTable).
		Where(squirrel.Eq{"period_id": periodID, "item_id": itemID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p period.LockedPrice
	if err := pgxscan.Get(ctx, r.querier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get price: %w", err)
	}
	return &p, nil
}

// CopyPrices copies every locked price of fromID into toID, replacing
// existing prices of the same items.
func (r *PeriodRepo) CopyPrices(ctx context.Context, fromID, toID id.ID) (int64, error) {
	const sql = `
		INSERT INTO period_prices (period_id, item_id, price, updated_at)
		SELECT $2, item_id, price, NOW()
		FROM period_prices
		WHERE period_id = $1
		ON CONFLICT (period_id, item_id) DO UPDATE
		SET price = EXCLUDED.price, updated_at = EXCLUDED.updated_at
	`

	tag, err := r.querier(ctx).Exec(ctx, sql, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("copy prices: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Snapshots ---

// InsertSnapshots stores closing balances in chunks.
func (r *PeriodRepo) InsertSnapshots(ctx context.Context, snapshots []period.Snapshot) error {
	for start := 0; start < len(snapshots); start += snapshotChunk {
		end := min(start+snapshotChunk, len(snapshots))

		q := r.builder.Insert(snapshotsTable).Columns(r.snapshotCols...)
		for i := start; i < end; i++ {
			q = q.Values(postgres.RowValues(&snapshots[i], r.snapshotCols)...)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
			return postgres.MapError(fmt.Errorf("insert snapshots: %w", err), "period_snapshot", snapshots[start].PeriodID)
		}
	}
	return nil
}

// ListSnapshots returns the closing balances of a period, optionally for one location.
func (r *PeriodRepo) ListSnapshots(ctx context.Context, periodID id.ID, locationID *id.ID) ([]period.Snapshot, error) {
	q := r.builder.Select(r.snapshotCols...).From(snapshotsTable).
		Where(squirrel.Eq{"period_id": periodID})
	if locationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *locationID})
	}

	sql, args, err := q.OrderBy("location_id", "item_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var snapshots []period.Snapshot
	if err := pgxscan.Select(ctx, r.querier(ctx), &snapshots, sql, args...); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

var _ period.Repository = (*PeriodRepo)(nil)
