package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/location"
	"stockledger/internal/domain/pob"
)

// NewReportCommand creates the report command group.
func NewReportCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print reports",
	}
	cmd.AddCommand(newMandayReportCommand(opts))
	return cmd
}

func newMandayReportCommand(opts *RootOptions) *cobra.Command {
	var locationRef, periodRef string

	cmd := &cobra.Command{
		Use:   "manday",
		Short: "Cost per manday of a location over a period",
		Long: `Divide the issue value of a location over a period by the POB headcount
recorded in the same window.

Example:
  stockctl report manday --location CAMP-A --period 0190c1de-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			periodID, err := id.Parse(periodRef)
			if err != nil {
				return fmt.Errorf("invalid period id %q: %w", periodRef, err)
			}

			env, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			var loc *location.Location
			if locationID, perr := id.Parse(locationRef); perr == nil {
				loc, err = env.app.Locations.Get(cmd.Context(), locationID)
			} else {
				loc, err = env.app.Locations.GetByCode(cmd.Context(), locationRef)
			}
			if err != nil {
				return err
			}

			mc, err := env.app.POB.MandayCost(cmd.Context(), loc.ID, periodID)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), mc)
			}
			return writeMandayCost(cmd.OutOrStdout(), loc, mc)
		},
	}

	cmd.Flags().StringVar(&locationRef, "location", "", "location id or code")
	cmd.Flags().StringVar(&periodRef, "period", "", "period id")
	_ = cmd.MarkFlagRequired("location")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

// writeMandayCost renders a manday cost as an aligned two-column table.
func writeMandayCost(w io.Writer, loc *location.Location, mc *pob.MandayCost) error {
	perManday := "n/a"
	if mc.CostPerManday != nil {
		perManday = mc.CostPerManday.StringFixed(2)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Location\t%s (%s)\n", loc.Name, loc.Code)
	fmt.Fprintf(tw, "Period\t%s .. %s\n", mc.From.Format("2006-01-02"), mc.To.Format("2006-01-02"))
	fmt.Fprintf(tw, "Issue value\t%s\n", mc.TotalCost.StringFixed(2))
	fmt.Fprintf(tw, "Mandays\t%d\n", mc.Mandays)
	fmt.Fprintf(tw, "Days recorded\t%d\n", mc.DaysRecorded)
	fmt.Fprintf(tw, "Cost per manday\t%s\n", perManday)
	return tw.Flush()
}
