package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"watcher/internal/deps"
	"watcher/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external tools, directories, free space, and detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			for _, status := range statuses {
				fmt.Fprintln(out, dependencyLine(status, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			credentials := statusOK
			if !cfg.DeliveryConfigured() {
				credentials = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Telegram credentials", credentials, yesNo(cfg.DeliveryConfigured()), colorize))

			missing := deps.Missing(statuses)
			failed := preflight.Failed(results)
			if len(missing) > 0 || len(failed) > 0 || !cfg.DeliveryConfigured() {
				return errors.New("environment check failed")
			}
			fmt.Fprintln(out, "\nAll checks passed")
			return nil
		},
	}
}

func dependencyLine(status deps.Status, colorize bool) string {
	label := status.Name
	if status.Available {
		return renderStatusLine(label, statusOK, status.Command, colorize)
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s (%s)", detail, status.Description)
	}
	if status.Optional {
		return renderStatusLine(label, statusWarn, detail, colorize)
	}
	return renderStatusLine(label, statusError, detail, colorize)
}
