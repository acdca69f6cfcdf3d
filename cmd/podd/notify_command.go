package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podd/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}
	notifyCmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.Notifications.Enabled {
				fmt.Fprintln(out, "Notifications are disabled; set notifications.enabled = true")
				return nil
			}
			svc, err := notifications.NewService(cfg)
			if err != nil {
				return err
			}
			if err := svc.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Test notification sent via %s\n", cfg.Notifications.Transport)
			return nil
		},
	})
	return notifyCmd
}
