// Package cli implements stockctl, the operator command line for migrations,
// catalog seeding, period closing, reports and service tokens.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "text" | "json"

	// loadConfig is replaced in tests
	loadConfig func() (*config.Config, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the stockctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{loadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stockctl",
		Short: "stockledger operator tool",
		Long:  "Operator tool for the stockledger inventory service: migrations, seeding, period closing and reports.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewPeriodCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// environment is a connected service graph for commands that touch the
// database.
type environment struct {
	cfg  *config.Config
	pool *postgres.Pool
	app  *app.App
}

func (e *environment) Close() {
	e.pool.Close()
}

func (o *RootOptions) config() (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := app.NewLogger(cfg, "stockctl"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect opens the database and builds the service graph without Redis.
func (o *RootOptions) connect(ctx context.Context) (*environment, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	pool, err := app.OpenPool(ctx, cfg, "stockctl")
	if err != nil {
		return nil, err
	}

	application, err := app.New(ctx, cfg, pool.Unwrap(), nil)
	if err != nil {
		pool.Close()
		return nil, err
	}

	logger.Debug(ctx, "stockctl connected")
	return &environment{cfg: cfg, pool: pool, app: application}, nil
}
