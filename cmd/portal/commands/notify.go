package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/volunteer-portal/pkg/notify"
)

// NotifyCmd creates the notify command
func NotifyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify <message>",
		Short: "Send a message to the admin chat (or --chat)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, _ := cmd.Flags().GetString("chat")
			text := strings.Join(args, " ")

			dispatcher, err := app.NewDispatcher()
			if err != nil {
				return err
			}

			if !dispatcher.Enqueue(notify.Message{ChatID: chatID, Text: text}) {
				dispatcher.Close(context.Background())
				return fmt.Errorf("failed to queue message")
			}

			// Close drains the queue before returning
			ctx, cancel := context.WithTimeout(app.Ctx, app.Cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := dispatcher.Close(ctx); err != nil {
				return err
			}

			fmt.Println("\n✓ Message dispatched, see logs for delivery")
			return nil
		},
	}

	cmd.Flags().String("chat", "", "Target chat id (defaults to the admin chat)")

	return cmd
}
