package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
)

// NewPeriodCommand creates the period command group.
func NewPeriodCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Period maintenance",
	}

	var actor string
	closeCmd := &cobra.Command{
		Use:   "close <period-id>",
		Short: "Close an approved period and write its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			periodID, err := id.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid period id %q: %w", args[0], err)
			}

			env, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := appctx.WithUser(cmd.Context(), &appctx.UserContext{UserID: actor, Name: actor})
			p, err := env.app.Periods.Close(ctx, periodID)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "period %s (%s) is %s\n", p.Name, p.ID, p.Status)
			return err
		},
	}
	closeCmd.Flags().StringVar(&actor, "as", "stockctl", "user recorded as closing the period")

	closeApproved := &cobra.Command{
		Use:   "close-approved",
		Short: "Close every approved period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			n, err := env.app.Periods.CloseApproved(cmd.Context())
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"closed": n})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "closed %d periods\n", n)
			return err
		},
	}

	cmd.AddCommand(closeCmd, closeApproved)
	return cmd
}
