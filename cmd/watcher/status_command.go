package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"watcher/internal/config"
	"watcher/internal/daemon"
	"watcher/internal/detection"
	"watcher/internal/pipeline"
	"watcher/internal/runstore"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a run is active and recent run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Watcher", colorize)
			lines = append(lines, lockStatusLine("Pipeline run", cfg.LockPath(), "Running", "Idle", colorize))
			lines = append(lines, lockStatusLine("Daemon", daemon.LockPath(cfg), "Running", "Not running", colorize))
			lines = append(lines, detectionStatusLine(cfg, colorize))
			lines = append(lines, pendingStatusLine(cfg, colorize))
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			store, err := runstore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("load run history: %w", err)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Recent runs", colorize) {
				fmt.Fprintln(out, line)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func lockStatusLine(label, path, heldText, freeText string, colorize bool) string {
	held, err := pipeline.Locked(path)
	switch {
	case err != nil:
		return renderStatusLine(label, statusWarn, err.Error(), colorize)
	case held:
		return renderStatusLine(label, statusOK, heldText, colorize)
	default:
		return renderStatusLine(label, statusInfo, freeText, colorize)
	}
}

func detectionStatusLine(cfg *config.Config, colorize bool) string {
	capability := detection.ResolveCapability(cfg.Detection)
	if capability.Available {
		return renderStatusLine("Person detection", statusOK, "Available", colorize)
	}
	if !cfg.Detection.Enabled {
		return renderStatusLine("Person detection", statusInfo, "Disabled", colorize)
	}
	return renderStatusLine("Person detection", statusWarn, capability.Reason, colorize)
}

func pendingStatusLine(cfg *config.Config, colorize bool) string {
	janitor := detection.NewJanitor(cfg.Paths.ScreenshotsDir, 0, nil, nil)
	pending, err := janitor.Pending()
	if err != nil {
		return renderStatusLine("Pending screenshots", statusWarn, err.Error(), colorize)
	}
	if len(pending) == 0 {
		return renderStatusLine("Pending screenshots", statusOK, "None", colorize)
	}
	return renderStatusLine("Pending screenshots", statusWarn,
		fmt.Sprintf("%d (send with `watcher janitor --send-pending`)", len(pending)), colorize)
}

func renderRuns(runs []runstore.Run) string {
	headers := []string{"Started", "Label", "State", "Segments", "Rejected", "Size", "Alerts", "Duration", "Error"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		size := "-"
		if run.ArtifactBytes > 0 {
			size = humanize.IBytes(uint64(run.ArtifactBytes))
			if run.Emergency {
				size += "*"
			}
		}
		duration := "-"
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			humanize.Time(run.StartedAt),
			run.Label,
			run.State,
			strconv.Itoa(run.Segments),
			strconv.Itoa(run.Rejected),
			size,
			strconv.Itoa(run.AlertsSent),
			duration,
			truncate(run.ErrorMessage, 48),
		})
	}
	return renderTable(headers, rows, 3, 4, 5, 6)
}

func truncate(value string, width int) string {
	value = strings.TrimSpace(value)
	if len([]rune(value)) <= width {
		return value
	}
	return string([]rune(value)[:width-1]) + "…"
}
