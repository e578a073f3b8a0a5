package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/domain/catalogs/supplier"
)

const fixturesYAML = `
locations:
  - code: WH-1
    name: Central Warehouse
    type: WAREHOUSE
  - code: CAMP-A
    name: Camp Alpha
    type: SITE
    address: Block 7
items:
  - code: RICE-25
    name: Rice 25kg
    unit: kg
    category: dry
suppliers:
  - code: ACME
    name: Acme Foods
    contactEmail: orders@acme.example
    paymentTermsDays: 30
`

type recordingCatalogs struct {
	locations []*location.Location
	items     []*item.Item
	suppliers []*supplier.Supplier
}

func (r *recordingCatalogs) catalogs() Catalogs {
	return Catalogs{
		Locations: locationFunc(func(_ context.Context, l *location.Location) (*location.Location, error) {
			if err := l.Validate(context.Background()); err != nil {
				return nil, err
			}
			r.locations = append(r.locations, l)
			return l, nil
		}),
		Items: itemFunc(func(_ context.Context, i *item.Item) (*item.Item, error) {
			r.items = append(r.items, i)
			return i, nil
		}),
		Suppliers: supplierFunc(func(_ context.Context, s *supplier.Supplier) (*supplier.Supplier, error) {
			r.suppliers = append(r.suppliers, s)
			return s, nil
		}),
	}
}

type locationFunc func(context.Context, *location.Location) (*location.Location, error)

func (f locationFunc) Upsert(ctx context.Context, l *location.Location) (*location.Location, error) {
	return f(ctx, l)
}

type itemFunc func(context.Context, *item.Item) (*item.Item, error)

func (f itemFunc) Upsert(ctx context.Context, i *item.Item) (*item.Item, error) { return f(ctx, i) }

type supplierFunc func(context.Context, *supplier.Supplier) (*supplier.Supplier, error)

func (f supplierFunc) Upsert(ctx context.Context, s *supplier.Supplier) (*supplier.Supplier, error) {
	return f(ctx, s)
}

func TestLoadFixtures(t *testing.T) {
	f, err := LoadFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)

	require.Len(t, f.Locations, 2)
	assert.Equal(t, "SITE", f.Locations[1].Type)
	assert.Equal(t, "Block 7", f.Locations[1].Address)
	require.Len(t, f.Items, 1)
	assert.Equal(t, "kg", f.Items[0].Unit)
	require.Len(t, f.Suppliers, 1)
	assert.Equal(t, 30, f.Suppliers[0].PaymentTermsDays)
}

func TestLoadFixtures_UnknownField(t *testing.T) {
	_, err := LoadFixtures(strings.NewReader("items:\n  - code: X\n    colour: red\n"))
	require.Error(t, err)
}

func TestLoadFixtures_Empty(t *testing.T) {
	f, err := LoadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Items)
}

func TestFixtures_Apply(t *testing.T) {
	f, err := LoadFixtures(strings.NewReader(fixturesYAML))
	require.NoError(t, err)

	rec := &recordingCatalogs{}
	sum, err := f.Apply(context.Background(), rec.catalogs())
	require.NoError(t, err)

	assert.Equal(t, SeedSummary{Locations: 2, Items: 1, Suppliers: 1}, sum)
	assert.Equal(t, location.TypeWarehouse, rec.locations[0].Type)
	assert.Nil(t, rec.locations[0].Address)
	require.NotNil(t, rec.locations[1].Address)
	assert.Equal(t, "Block 7", *rec.locations[1].Address)
	assert.Equal(t, "dry", rec.items[0].Category)
	require.NotNil(t, rec.suppliers[0].ContactEmail)
	assert.Nil(t, rec.suppliers[0].TaxID)
}

func TestFixtures_ApplyStopsOnError(t *testing.T) {
	f := &Fixtures{Locations: []LocationFixture{{Code: "X", Name: "Bad", Type: "MOON"}}}

	rec := &recordingCatalogs{}
	_, err := f.Apply(context.Background(), rec.catalogs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `location "X"`)
	assert.Empty(t, rec.locations)
}
