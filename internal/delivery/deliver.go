package delivery

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"watcher/internal/compress"
	"watcher/internal/fileutil"
	"watcher/internal/logging"
	"watcher/internal/services"
)

// VideoSender uploads a video file.
type VideoSender interface {
	SendVideo(ctx context.Context, path, caption string) error
}

// Result describes a completed delivery.
type Result struct {
	// Uploaded is the file that was sent. It is the emergency artifact when
	// one was needed, and that file has already been removed.
	Uploaded  compress.Artifact
	Emergency bool
}

// Deliverer enforces the hard size budget and uploads the final artifact.
type Deliverer struct {
	sender  VideoSender
	encoder *compress.Encoder
	workDir string
	logger  *slog.Logger
}

// NewDeliverer constructs a Deliverer. Emergency artifacts are written to workDir.
func NewDeliverer(sender VideoSender, encoder *compress.Encoder, workDir string, logger *slog.Logger) *Deliverer {
	return &Deliverer{sender: sender, encoder: encoder, workDir: workDir, logger: logging.NewComponentLogger(logger, "delivery")}
}

// EmergencyPath returns the emergency artifact path for run.
func (d *Deliverer) EmergencyPath(run string) string {
	return filepath.Join(d.workDir, "emergency_"+run+".mp4")
}

// Deliver uploads artifact. An artifact over budget gets exactly one
// emergency re-encode; if that still does not fit, nothing is uploaded. The
// emergency file is removed after the attempt whatever the outcome. The input
// artifact is never touched.
func (d *Deliverer) Deliver(ctx context.Context, run string, artifact compress.Artifact, budget int64, caption string) (Result, error) {
	logger := logging.WithContext(ctx, d.logger)
	upload := artifact
	emergency := false

	if !artifact.Fits(budget) {
		logger.Info("artifact over budget; applying emergency re-encode",
			logging.Int64("size_bytes", artifact.SizeBytes),
			logging.Int64("budget_bytes", budget),
		)
		out, err := d.encoder.Encode(ctx, compress.Emergency, artifact.Path, d.EmergencyPath(run), compress.StageEmergency)
		if err != nil {
			return Result{}, err
		}
		defer d.discard(logger, out.Path)

		if !out.Fits(budget) {
			logging.ErrorWithContext(logger, "emergency artifact still over budget; upload skipped", "delivery_over_budget",
				logging.Int64("size_bytes", out.SizeBytes),
				logging.Int64("budget_bytes", budget),
				logging.String(logging.FieldErrorHint, "raise delivery.max_file_size_mb or shorten capture windows"),
			)
			return Result{}, services.Wrap(ErrOverBudget, "delivery", "emergency", "emergency output exceeds budget", nil)
		}
		upload = out
		emergency = true
	}

	logger.Info("uploading video",
		logging.String("path", upload.Path),
		logging.Int64("size_bytes", upload.SizeBytes),
		logging.Bool("emergency", emergency),
	)
	if err := d.sender.SendVideo(ctx, upload.Path, caption); err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			logging.ErrorWithContext(logger, "remote rejected video as too large", "delivery_payload_too_large",
				logging.Int64("size_bytes", upload.SizeBytes),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "lower delivery.max_file_size_mb to match the Bot API limit"),
			)
		} else {
			logging.ErrorWithContext(logger, "video upload failed", "delivery_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "files are kept; the next run retries"),
			)
		}
		return Result{}, err
	}

	logger.Info("video delivered", logging.String("path", upload.Path), logging.Bool("emergency", emergency))
	return Result{Uploaded: upload, Emergency: emergency}, nil
}

func (d *Deliverer) discard(logger *slog.Logger, path string) {
	if err := fileutil.Remove(path); err != nil {
		logging.WarnWithContext(logger, "remove emergency artifact failed", "emergency_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "transient file remains in work_dir"),
		)
	}
}
