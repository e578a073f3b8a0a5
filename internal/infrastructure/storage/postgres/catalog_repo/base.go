// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
)

// catalogRow is implemented by every type embedding entity.Catalog.
type catalogRow interface {
	CatalogFields() *entity.Catalog
}

// BaseCatalogRepo provides the operations shared by catalog repositories.
// Catalogs are keyed by code: the seed command upserts them and documents
// look them up.
type BaseCatalogRepo[T catalogRow] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	newFn      func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T catalogRow](
	txm *postgres.TxManager,
	tableName string,
	entityName string,
	newFn func() T,
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Upsert inserts the entity or updates the row with the same code. The
// entity is refreshed with the stored ID, version and creation time.
func (r *BaseCatalogRepo[T]) Upsert(ctx context.Context, e T) error {
	updateCols := postgres.ColumnsExcept(r.selectCols, "id", "code", "version", "created_at")
	set := make([]string, 0, len(updateCols)+1)
	for _, col := range updateCols {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	set = append(set, fmt.Sprintf("version = %s.version + 1", r.tableName))

	sql, args, err := r.Builder().
		Insert(r.tableName).
		Columns(r.selectCols...).
		Values(postgres.RowValues(e, r.selectCols)...).
		Suffix("ON CONFLICT (code) DO UPDATE SET " + strings.Join(set, ", ") +
			" RETURNING id, version, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	c := e.CatalogFields()
	row := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
	if err := row.Scan(&c.ID, &c.Version, &c.CreatedAt); err != nil {
		return postgres.MapError(fmt.Errorf("upsert %s: %w", r.tableName, err), r.entityName, c.Code)
	}

	return nil
}

// BaseSelect creates a SELECT builder over all columns.
func (r *BaseCatalogRepo[T]) BaseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, r.BaseSelect().Where(squirrel.Eq{"id": entityID}), entityID)
}

// GetByCode retrieves entity by code.
func (r *BaseCatalogRepo[T]) GetByCode(ctx context.Context, code string) (T, error) {
	return r.getOne(ctx, r.BaseSelect().Where(squirrel.Eq{"code": code}), code)
}

func (r *BaseCatalogRepo[T]) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (T, error) {
	entity := r.newFn()

	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), entity, sql, args...); err != nil {
		var zero T
		return zero, postgres.MapError(err, r.entityName, key)
	}

	return entity, nil
}

// ApplyCommonFilter adds the active flag and a code/name search.
func (r *BaseCatalogRepo[T]) ApplyCommonFilter(q squirrel.SelectBuilder, activeOnly bool, search string) squirrel.SelectBuilder {
	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	return q
}

// Select runs q and returns all rows ordered by code.
func (r *BaseCatalogRepo[T]) Select(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return items, nil
}

// Count returns the number of rows matched by q.
func (r *BaseCatalogRepo[T]) Count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var total int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.tableName, err)
	}
	return total, nil
}
