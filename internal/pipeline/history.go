package pipeline

import (
	"context"
	"log/slog"
	"time"

	"watcher/internal/logging"
	"watcher/internal/runstore"
	"watcher/internal/services"
)

// recordBegin and recordFinish are no-ops without a store.
func (c *Coordinator) recordBegin(ctx context.Context, logger *slog.Logger, out Outcome, started time.Time) {
	if c.deps.Store == nil {
		return
	}
	if err := c.deps.Store.Begin(ctx, out.RunID, out.Label, started); err != nil {
		logging.WarnWithContext(logger, "record run start failed", "run_history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
			logging.String(logging.FieldImpact, "run is missing from watcher status"),
		)
	}
}

func (c *Coordinator) recordFinish(ctx context.Context, logger *slog.Logger, out Outcome, started time.Time) {
	if c.deps.Store == nil {
		return
	}
	run := runstore.Run{
		ID:            out.RunID,
		Label:         out.Label,
		State:         string(out.State),
		StartedAt:     started,
		FinishedAt:    c.clock.Now(),
		Segments:      out.Segments,
		Rejected:      len(out.Rejected),
		ArtifactBytes: out.Delivered.SizeBytes,
		Emergency:     out.Emergency,
		AlertsSent:    out.Sweep.Alerts.Delivered,
	}
	if out.Err != nil {
		run.FailureKind = services.FailureKind(out.Err)
		run.ErrorMessage = out.Err.Error()
	}
	// A cancelled run still gets its terminal row.
	if err := c.deps.Store.Finish(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "record run outcome failed", "run_history_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
			logging.String(logging.FieldImpact, "watcher status shows the run as still running"),
		)
	}
}
