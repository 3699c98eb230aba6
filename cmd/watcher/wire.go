package main

import (
	"context"
	"fmt"
	"log/slog"

	"watcher/internal/config"
	"watcher/internal/delivery"
	"watcher/internal/detection"
	"watcher/internal/locale"
	"watcher/internal/logging"
	"watcher/internal/media/ffmpeg"
	"watcher/internal/media/ffprobe"
	"watcher/internal/notifications"
	"watcher/internal/pipeline"
	"watcher/internal/preflight"
	"watcher/internal/runstore"
	"watcher/internal/services"
)

// historyLimit bounds the runs kept in the history database.
const historyLimit = 500

// buildCoordinator wires the production collaborators. The caller owns the
// returned store.
func buildCoordinator(cfg *config.Config, logger *slog.Logger) (*pipeline.Coordinator, *runstore.Store, error) {
	if !cfg.DeliveryConfigured() {
		return nil, nil, services.Wrap(services.ErrConfiguration, "config", "delivery",
			"delivery.bot_token and delivery.chat_id are required (or TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID)", nil)
	}

	store, err := runstore.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open run history: %w", err)
	}

	tr := locale.New(cfg.Notifications.Language)
	capability := detection.ResolveCapability(cfg.Detection)
	logger.Info("detection capability resolved",
		logging.Args(logging.DecisionAttrs("detection_capability", yesNo(capability.Available), capability.String())...)...)

	deps := pipeline.Dependencies{
		Runner:     ffmpeg.CLI{Binary: cfg.FFmpegBinary()},
		Prober:     ffprobe.CLI{Binary: cfg.FFprobeBinary()},
		Sender:     delivery.NewClient(cfg.Delivery),
		Notifier:   notifications.NewService(cfg, tr),
		Store:      store,
		Capability: capability,
		Detector: detection.WorkerStarter(detection.WorkerConfig{
			Command:   cfg.Detection.WorkerCommand,
			ModelPath: cfg.Detection.ModelPath,
		}, logger),
		Translator: tr,
		Storage:    preflight.CheckFreeSpace,
	}
	coordinator, err := pipeline.New(cfg, deps, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return coordinator, store, nil
}

func pruneHistory(ctx context.Context, store *runstore.Store, logger *slog.Logger) {
	removed, err := store.Prune(ctx, historyLimit)
	if err != nil {
		logger.Debug("prune run history failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("run history pruned", logging.Int64("removed", removed))
	}
}
