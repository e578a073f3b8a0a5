package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/infrastructure/storage/postgres"
)

const locationsTable = "locations"

// LocationRepo implements location.Repository.
type LocationRepo struct {
	*BaseCatalogRepo[*location.Location]
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo(txm *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, locationsTable, "location",
			func() *location.Location { return &location.Location{} }),
	}
}

// List returns locations ordered by code.
func (r *LocationRepo) List(ctx context.Context, filter location.ListFilter) ([]*location.Location, error) {
	return r.Select(ctx, r.ApplyCommonFilter(r.BaseSelect(), filter.ActiveOnly, filter.Search))
}

// ActiveIDs returns the IDs of all active locations ordered by code.
func (r *LocationRepo) ActiveIDs(ctx context.Context) ([]id.ID, error) {
	sql, args, err := r.Builder().
		Select("id").
		From(locationsTable).
		Where(squirrel.Eq{"active": true}).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list active locations: %w", err)
	}
	return ids, nil
}

var _ location.Repository = (*LocationRepo)(nil)
