package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/domain/catalogs/supplier"
)

// Fixtures is the YAML document loaded by `stockctl seed`.
type Fixtures struct {
	Locations []LocationFixture `yaml:"locations"`
	Items     []ItemFixture     `yaml:"items"`
	Suppliers []SupplierFixture `yaml:"suppliers"`
}

// LocationFixture describes one location.
type LocationFixture struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Address string `yaml:"address"`
}

// ItemFixture describes one item.
type ItemFixture struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Unit     string `yaml:"unit"`
	Category string `yaml:"category"`
	Barcode  string `yaml:"barcode"`
}

// SupplierFixture describes one supplier.
type SupplierFixture struct {
	Code             string `yaml:"code"`
	Name             string `yaml:"name"`
	TaxID            string `yaml:"taxId"`
	ContactEmail     string `yaml:"contactEmail"`
	ContactPhone     string `yaml:"contactPhone"`
	PaymentTermsDays int    `yaml:"paymentTermsDays"`
}

// LoadFixtures decodes fixtures, rejecting unknown keys.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

// Catalogs is where fixtures are stored. The catalog services satisfy it.
type Catalogs struct {
	Locations interface {
		Upsert(ctx context.Context, l *location.Location) (*location.Location, error)
	}
	Items interface {
		Upsert(ctx context.Context, i *item.Item) (*item.Item, error)
	}
	Suppliers interface {
		Upsert(ctx context.Context, s *supplier.Supplier) (*supplier.Supplier, error)
	}
}

// SeedSummary counts stored rows per catalog.
type SeedSummary struct {
	Locations int `json:"locations"`
	Items     int `json:"items"`
	Suppliers int `json:"suppliers"`
}

// Apply upserts every fixture by code. Re-running with the same file is a
// no-op apart from version bumps.
func (f *Fixtures) Apply(ctx context.Context, c Catalogs) (SeedSummary, error) {
	var sum SeedSummary

	for _, lf := range f.Locations {
		l := location.NewLocation(lf.Code, lf.Name, location.Type(lf.Type))
		l.Address = optional(lf.Address)
		if _, err := c.Locations.Upsert(ctx, l); err != nil {
			return sum, fmt.Errorf("location %q: %w", lf.Code, err)
		}
		sum.Locations++
	}

	for _, itf := range f.Items {
		i := item.NewItem(itf.Code, itf.Name, itf.Unit)
		i.Category = itf.Category
		i.Barcode = optional(itf.Barcode)
		if _, err := c.Items.Upsert(ctx, i); err != nil {
			return sum, fmt.Errorf("item %q: %w", itf.Code, err)
		}
		sum.Items++
	}

	for _, sf := range f.Suppliers {
		s := supplier.NewSupplier(sf.Code, sf.Name)
		s.TaxID = optional(sf.TaxID)
		s.ContactEmail = optional(sf.ContactEmail)
		s.ContactPhone = optional(sf.ContactPhone)
		s.PaymentTermsDays = sf.PaymentTermsDays
		if _, err := c.Suppliers.Upsert(ctx, s); err != nil {
			return sum, fmt.Errorf("supplier %q: %w", sf.Code, err)
		}
		sum.Suppliers++
	}

	return sum, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load locations, items and suppliers from a YAML file",
		Long: `Load catalog fixtures from a YAML file. Rows are matched by code, so
seeding is repeatable.

Example:
  stockctl seed -f fixtures.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()

			fixtures, err := LoadFixtures(fh)
			if err != nil {
				return err
			}

			env, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			var sum SeedSummary
			err = env.app.TxManager.RunInTransaction(cmd.Context(), func(ctx context.Context) error {
				var applyErr error
				sum, applyErr = fixtures.Apply(ctx, Catalogs{
					Locations: env.app.Locations,
					Items:     env.app.Items,
					Suppliers: env.app.Suppliers,
				})
				return applyErr
			})
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d locations, %d items, %d suppliers\n",
				sum.Locations, sum.Items, sum.Suppliers)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "fixtures.yaml", "fixtures file")
	return cmd
}
