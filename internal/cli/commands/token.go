package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metagate/internal/cli/config"
	"github.com/conduit-lang/metagate/internal/web/auth"
)

// NewTokenCommand creates the token command, which signs a bearer token with
// the configured secret for local testing
func NewTokenCommand(flags *globalFlags) *cobra.Command {
	var (
		claims []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token carrying the given claims",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}

			values := make(map[string]interface{}, len(claims))
			for _, c := range claims {
				k, v, ok := strings.Cut(c, "=")
				if !ok || k == "" {
					return fmt.Errorf("claim %q is not key=value", c)
				}
				values[k] = v
			}

			token, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer).GenerateToken(values, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&claims, "claim", nil, "claim as key=value (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
