package catalog_repo

import (
	"context"

	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/infrastructure/storage/postgres"
)

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txm *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, "suppliers", "supplier",
			func() *supplier.Supplier { return &supplier.Supplier{} }),
	}
}

// List returns suppliers ordered by code.
func (r *SupplierRepo) List(ctx context.Context, filter supplier.ListFilter) ([]*supplier.Supplier, error) {
	return r.Select(ctx, r.ApplyCommonFilter(r.BaseSelect(), filter.ActiveOnly, filter.Search))
}

var _ supplier.Repository = (*SupplierRepo)(nil)
