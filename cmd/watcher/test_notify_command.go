package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"watcher/internal/locale"
	"watcher/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test operator notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.Notifications.Enabled {
				fmt.Fprintln(out, "Notifications disabled in configuration")
				return nil
			}
			if !cfg.DeliveryConfigured() && strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(out, "No notification transport configured (set Telegram credentials or notifications.ntfy_topic)")
				return nil
			}
			notifier := notifications.NewService(cfg, locale.New(cfg.Notifications.Language))
			if err := notifier.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
