package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"watcher/internal/config"
	"watcher/internal/delivery"
	"watcher/internal/detection"
	"watcher/internal/fileutil"
	"watcher/internal/locale"
	"watcher/internal/logging"
	"watcher/internal/pipeline"
	"watcher/internal/timeutil"
)

// albumSender is the slice of the Telegram client the janitor needs.
type albumSender interface {
	SendPhoto(ctx context.Context, path, caption string) error
	SendMediaGroup(ctx context.Context, items []delivery.MediaItem) error
}

func newJanitorCommand(ctx *commandContext) *cobra.Command {
	var sendPending bool

	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Remove detection screenshots past their maximum age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			// Screenshots belong to the run that owns the lock.
			lock, err := pipeline.AcquireRunLock(cfg.LockPath())
			if err != nil {
				return fmt.Errorf("janitor skipped: %w", err)
			}
			defer func() { _ = lock.Unlock() }()

			out := cmd.OutOrStdout()
			maxAge := time.Duration(cfg.Detection.ScreenshotMaxAgeHours) * time.Hour
			janitor := detection.NewJanitor(cfg.Paths.ScreenshotsDir, maxAge, time.Now, logger)

			if sendPending {
				if !cfg.DeliveryConfigured() {
					return fmt.Errorf("--send-pending needs delivery.bot_token and delivery.chat_id")
				}
				pending, err := janitor.Pending()
				if err != nil {
					return fmt.Errorf("list pending screenshots: %w", err)
				}
				tr := locale.New(cfg.Notifications.Language)
				sent, err := sendScreenshots(cmd.Context(), cfg, delivery.NewClient(cfg.Delivery), timeutil.RealClock{}, tr, pending, logger)
				fmt.Fprintf(out, "Sent %d of %d pending screenshots\n", sent, len(pending))
				if err != nil {
					return err
				}
			}

			removed, err := janitor.Clean(cmd.Context())
			if err != nil {
				return fmt.Errorf("clean screenshots: %w", err)
			}
			fmt.Fprintf(out, "Removed %d screenshots older than %s\n", removed, maxAge)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sendPending, "send-pending", false, "Deliver retained screenshots as albums before cleaning")
	return cmd
}

// sendScreenshots delivers paths in albums of alerts.batch_size, capped at the
// Bot API album limit, and removes each album once it is acknowledged. Albums
// are spaced by alerts.batch_timeout_seconds. The count of delivered
// screenshots is returned even on error.
func sendScreenshots(ctx context.Context, cfg *config.Config, sender albumSender, clock timeutil.Clock, tr *locale.Translator, paths []string, logger *slog.Logger) (int, error) {
	size := cfg.Alerts.BatchSize
	if size <= 0 || size > delivery.MaxMediaGroup {
		size = delivery.MaxMediaGroup
	}
	caption := tr.Translate(locale.PendingScreenshots, len(paths))

	pause := time.Duration(cfg.Alerts.BatchTimeoutSeconds) * time.Second

	sent := 0
	for start := 0; start < len(paths); start += size {
		if start > 0 && pause > 0 {
			logger.Debug("pausing between albums", logging.Duration("pause", pause))
			if err := clock.Sleep(ctx, pause); err != nil {
				return sent, err
			}
		}
		group := paths[start:min(start+size, len(paths))]
		var err error
		if len(group) == 1 {
			err = sender.SendPhoto(ctx, group[0], caption)
		} else {
			items := make([]delivery.MediaItem, len(group))
			for i, path := range group {
				items[i] = delivery.MediaItem{Path: path}
			}
			items[0].Caption = caption
			err = sender.SendMediaGroup(ctx, items)
		}
		if err != nil {
			return sent, fmt.Errorf("send screenshots %d-%d: %w", start+1, start+len(group), err)
		}
		caption = ""
		for _, path := range group {
			if err := fileutil.Remove(path); err != nil {
				logging.WarnWithContext(logger, "remove sent screenshot failed", "screenshot_cleanup_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "screenshot may be sent again"),
				)
			}
		}
		sent += len(group)
	}
	return sent, nil
}
