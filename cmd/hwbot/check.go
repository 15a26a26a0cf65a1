package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hwbot/internal/app"
)

func newCheckCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify credentials against both APIs without sending anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := cc.loadConfig()
			if err != nil {
				return err
			}
			rep, err := app.Check(cmd.Context(), cfg, cc.logger(cmd, cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Telegram bot: @%s (id %d)\n", rep.Bot.Username, rep.Bot.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Homework API: OK, %d item(s) in window\n", rep.Items)
			return nil
		},
	}
}
