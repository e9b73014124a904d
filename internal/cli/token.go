package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/persona-search/internal/identity"
)

// NewTokenCmd creates the 'token' command that issues bearer tokens for
// local testing against the HTTP API.
func NewTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Issue a bearer token for a user",
		Long: `Sign an HS256 bearer token for user with server.jwt_secret. The token
is accepted by every endpoint that resolves the acting user.`,
		Example: `  persona-search token alice
  curl -H "Authorization: Bearer $(persona-search token alice)" localhost:8080/profiles/me`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := identity.NewJWTResolver(cfg.Server.JWTSecret).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
