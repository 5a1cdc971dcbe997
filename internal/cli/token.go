package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/javajoker/licensing-portal/internal/config"
	"github.com/javajoker/licensing-portal/internal/models"
	"github.com/javajoker/licensing-portal/internal/utils"
)

// NewTokenCommand mints a bearer token signed with the configured secret,
// for local testing against a server that shares the configuration.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		email string
		role  string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a portal identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			r := models.Role(strings.ToLower(role))
			if !r.Valid() {
				return NewExitError(ExitCommandError, "--role must be one of dealer, officer, oversight")
			}
			if email == "" {
				return NewExitError(ExitCommandError, "--email is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.TokenTTL) * time.Hour
			}

			token, err := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Issuer).GenerateJWT(email, string(r), ttl)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot sign token", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"token": token, "email": email, "role": string(r)})
			}
			return formatter.Success(token)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "identity placed in the token")
	cmd.Flags().StringVar(&role, "role", "", "dealer, officer or oversight")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TOKEN_TTL hours)")
	return cmd
}
