package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-portal/internal/server"
)

// TokenCmd creates the token command
func TokenCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an admin bearer token",
		Long:  `Issue an HS256 admin token signed with admin.jwtSecret. The subject is recorded as the approver on moderation.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")

			token, err := server.NewAdminToken(app.Cfg.Admin.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Token for %s (valid %s):\n\n%s\n\n", args[0], ttl, token)
			return nil
		},
	}

	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
