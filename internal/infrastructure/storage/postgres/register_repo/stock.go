// Package register_repo provides PostgreSQL implementations for the stock
// ledger and the POB register.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "stock_movements"
	stockBalancesTable  = "stock_balances"

	movementChunk = 1000
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm          *postgres.TxManager
	builder      squirrel.StatementBuilderType
	balanceCols  []string
	movementCols []string
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:          txm,
		builder:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		balanceCols:  postgres.ExtractDBColumns[stock.Balance](),
		movementCols: postgres.ExtractDBColumns[stock.Movement](),
	}
}

// GetBalance returns current balance for location+item.
func (r *StockRepo) GetBalance(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error) {
	var balance stock.Balance

	sql, args, err := r.builder.Select(r.balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"location_id": locationID, "item_id": itemID}).
		ToSql()
	if err != nil {
		return balance, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Balance{LocationID: locationID, ItemID: itemID, WAC: decimal.Zero}, nil
		}
		return balance, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// LockBalance returns the balance with a pessimistic lock, creating an
// empty row first so that the first receipt of an item is serialized too.
func (r *StockRepo) LockBalance(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error) {
	querier := r.txm.GetQuerier(ctx)

	const ensureSQL = `
		INSERT INTO stock_balances (location_id, item_id, quantity, wac, updated_at)
		VALUES ($1, $2, 0, 0, NOW())
		ON CONFLICT (location_id, item_id) DO NOTHING
	`
	if _, err := querier.Exec(ctx, ensureSQL, locationID, itemID); err != nil {
		return stock.Balance{}, postgres.MapError(fmt.Errorf("ensure balance: %w", err), "stock_balance", itemID)
	}

	sql, args, err := r.builder.Select(r.balanceCols...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"location_id": locationID, "item_id": itemID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return stock.Balance{}, fmt.Errorf("build query: %w", err)
	}

	var balance stock.Balance
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		return stock.Balance{}, fmt.Errorf("get balance for update: %w", err)
	}

	return balance, nil
}

// SaveBalance writes quantity and WAC of a locked balance.
func (r *StockRepo) SaveBalance(ctx context.Context, b stock.Balance) error {
	sql, args, err := r.builder.Update(stockBalancesTable).
		Set("quantity", b.Quantity).
		Set("wac", b.WAC).
		Set("last_movement_at", b.LastMovementAt).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"location_id": b.LocationID, "item_id": b.ItemID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("save balance: %w", err), "stock_balance", b.ItemID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save balance: row for location %s item %s is not locked", b.LocationID, b.ItemID)
	}

	return nil
}

// InsertMovements batch inserts ledger rows.
func (r *StockRepo) InsertMovements(ctx context.Context, movements []stock.Movement) error {
	querier := r.txm.GetQuerier(ctx)

	for start := 0; start < len(movements); start += movementChunk {
		end := min(start+movementChunk, len(movements))

		q := r.builder.Insert(stockMovementsTable).Columns(r.movementCols...)
		for i := start; i < end; i++ {
			q = q.Values(postgres.RowValues(&movements[i], r.movementCols)...)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return postgres.MapError(fmt.Errorf("insert movements: %w", err), "stock_movement", movements[start].ID)
		}
	}

	return nil
}

// ListBalances returns balances ordered by location and item.
func (r *StockRepo) ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.Balance, error) {
	q := r.builder.Select(r.balanceCols...).From(stockBalancesTable)

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if len(filter.ItemIDs) > 0 {
		q = q.Where(squirrel.Eq{"item_id": filter.ItemIDs})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}

	sql, args, err := q.OrderBy("location_id", "item_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	return balances, nil
}

// ListMovements returns ledger rows, newest first.
func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]stock.Movement, error) {
	q := applyMovementFilter(r.builder.Select(r.movementCols...).From(stockMovementsTable), filter).
		OrderBy("created_at DESC", "id DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// SumByKind aggregates quantity and value per movement kind.
// Limit and Offset of filter are ignored.
func (r *StockRepo) SumByKind(ctx context.Context, filter stock.MovementFilter) ([]stock.KindTotal, error) {
	q := r.builder.Select(
		"kind",
		"COALESCE(SUM(quantity), 0)::bigint AS quantity",
		"COALESCE(SUM(value), 0) AS value",
	).From(stockMovementsTable)

	q = applyMovementFilter(q, filter).GroupBy("kind").OrderBy("kind")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var totals []stock.KindTotal
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &totals, sql, args...); err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}

	return totals, nil
}

func applyMovementFilter(q squirrel.SelectBuilder, filter stock.MovementFilter) squirrel.SelectBuilder {
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.PeriodID != nil {
		q = q.Where(squirrel.Eq{"period_id": *filter.PeriodID})
	}
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.SourceID != nil {
		q = q.Where(squirrel.Eq{"source_id": *filter.SourceID})
	}
	return q
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
