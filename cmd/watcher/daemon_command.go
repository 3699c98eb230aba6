package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"watcher/internal/daemon"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var intervalSeconds int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if intervalSeconds > 0 {
				cfg.Daemon.IntervalSeconds = intervalSeconds
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			coordinator, store, err := buildCoordinator(cfg, logger)
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, coordinator, store, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watcher daemon running every %ds (Ctrl+C to stop)\n", cfg.Daemon.IntervalSeconds)
			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().IntVar(&intervalSeconds, "interval", 0, "Override daemon.interval_seconds")
	return cmd
}
