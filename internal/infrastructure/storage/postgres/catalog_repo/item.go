package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/infrastructure/storage/postgres"
)

// ItemRepo implements item.Repository.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, "items", "item",
			func() *item.Item { return &item.Item{} }),
	}
}

// List returns one page of items ordered by code and the total match count.
func (r *ItemRepo) List(ctx context.Context, filter item.ListFilter) ([]*item.Item, int64, error) {
	q := r.ApplyCommonFilter(r.BaseSelect(), filter.ActiveOnly, filter.Search)
	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}

	total, err := r.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	items, err := r.Select(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

var _ item.Repository = (*ItemRepo)(nil)
