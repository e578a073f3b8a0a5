// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetStockValuation returns balances valued at WAC with location and item
// names, ordered by location code then item code.
func (r *ReportRepo) GetStockValuation(ctx context.Context, filter reports.StockValuationFilter) (*reports.StockValuation, error) {
	base := r.builder.
		Select().
		From("stock_balances b").
		Join("locations l ON l.id = b.location_id").
		Join("items i ON i.id = b.item_id")

	if len(filter.LocationIDs) > 0 {
		base = base.Where(squirrel.Eq{"b.location_id": filter.LocationIDs})
	}
	if len(filter.ItemIDs) > 0 {
		base = base.Where(squirrel.Eq{"b.item_id": filter.ItemIDs})
	}
	if filter.ExcludeZero {
		base = base.Where(squirrel.NotEq{"b.quantity": int64(0)})
	}

	querier := r.txm.GetQuerier(ctx)

	// Quantities are stored scaled by 10^4.
	const valueExpr = "ROUND(b.quantity::numeric / 10000 * b.wac, 2)"

	totalsSQL, totalsArgs, err := base.
		Columns("COUNT(*)", "COALESCE(SUM("+valueExpr+"), 0)").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals: %w", err)
	}

	var (
		totalItems int64
		totalValue decimal.Decimal
	)
	if err := querier.QueryRow(ctx, totalsSQL, totalsArgs...).Scan(&totalItems, &totalValue); err != nil {
		return nil, fmt.Errorf("stock valuation totals: %w", err)
	}

	q := base.Columns(
		"b.location_id",
		"l.code AS location_code",
		"l.name AS location_name",
		"b.item_id",
		"i.code AS item_code",
		"i.name AS item_name",
		"i.unit",
		"b.quantity",
		"b.wac",
		valueExpr+" AS value",
	).OrderBy("l.code", "i.code")

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

	var items []reports.StockValuationItem
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("stock valuation: %w", err)
	}

	return &reports.StockValuation{
		AsOf:       r.now(),
		Items:      items,
		TotalItems: totalItems,
		TotalValue: totalValue,
	}, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
