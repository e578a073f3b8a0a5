package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockledger/internal/domain/auth"
)

// NewTokenCommand creates the token command. It signs bearer tokens with the
// configured secret for operators and service accounts.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		userID string
		name   string
		roles  []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token",
		Long: `Issue a signed bearer token for the API.

Example:
  stockctl token --user u-42 --name "Store Keeper" --role storekeeper`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}

			jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
			if cfg.Auth.Issuer != "" {
				jwtCfg.Issuer = cfg.Auth.Issuer
			}
			if ttl > 0 {
				jwtCfg.AccessTokenTTL = ttl
			}
			if name == "" {
				name = userID
			}

			token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(userID, name, roles)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"accessToken": token,
					"expiresAt":   expiresAt.UTC(),
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name, defaults to the user id")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to 8h")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
