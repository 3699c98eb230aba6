package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"watcher/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once over the segments directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			coordinator, store, err := buildCoordinator(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			out, err := coordinator.Run(cmd.Context())
			if err != nil {
				if errors.Is(err, pipeline.ErrBusy) {
					return fmt.Errorf("run skipped: %w", err)
				}
				return err
			}
			pruneHistory(cmd.Context(), store, logger)

			fmt.Fprintln(cmd.OutOrStdout(), summarizeOutcome(out))
			if out.Failed() {
				return fmt.Errorf("run %s aborted, files preserved: %w", out.Label, out.Err)
			}
			return nil
		},
	}
}

func summarizeOutcome(out pipeline.Outcome) string {
	parts := []string{fmt.Sprintf("%d segments", out.Segments)}
	if n := len(out.Rejected); n > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", n))
	}
	if out.Delivered.Path != "" {
		size := humanize.IBytes(uint64(out.Delivered.SizeBytes))
		if out.Emergency {
			size += " after emergency re-encode"
		}
		parts = append(parts, size+" delivered")
	}
	if n := out.Sweep.Alerts.Delivered; n > 0 {
		parts = append(parts, fmt.Sprintf("%d alerts", n))
	}
	return fmt.Sprintf("Run %s: %s (%s)", out.Label, out.State, strings.Join(parts, ", "))
}
