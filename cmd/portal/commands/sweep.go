package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-portal/pkg/audit"
	"github.com/jakechorley/volunteer-portal/pkg/core/services"
)

// SweepCmd creates the sweep command
func SweepCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Check out every volunteer who is still checked in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.Database()
			if err != nil {
				return err
			}

			dispatcher, err := app.NewDispatcher()
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), app.Cfg.Server.ShutdownTimeout)
				defer cancel()
				dispatcher.Close(ctx)
			}()

			deps := services.Deps{
				Auditor:  audit.NewLogger(database, app.Logger),
				Notifier: dispatcher,
			}

			closed, err := services.SweepOpenSessions(app.Ctx, database, deps, app.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Closed %d open session(s)\n\n", len(closed))
			for _, s := range closed {
				minutes := 0
				if s.DurationMinutes != nil {
					minutes = *s.DurationMinutes
				}
				fmt.Printf("  %-10s %-12s %4d mins\n", s.Org, s.UniqueCode, minutes)
			}
			fmt.Println()

			return nil
		},
	}
}
