package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hwbot/internal/app"
)

const defaultTestText = "hwbot test notification"

func newSendTestCommand(cc *commandContext) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test message to the configured chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := cc.loadConfig()
			if err != nil {
				return err
			}
			if err := app.SendTest(cmd.Context(), cfg, cc.logger(cmd, cfg), text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", defaultTestText, "Message text")
	return cmd
}
