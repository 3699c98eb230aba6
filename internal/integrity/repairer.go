package integrity

import (
	"context"
	"log/slog"

	"watcher/internal/capture"
	"watcher/internal/fileutil"
	"watcher/internal/logging"
	"watcher/internal/media/ffmpeg"
)

// Repairer re-multiplexes a damaged segment without re-encoding.
type Repairer struct {
	runner   ffmpeg.Runner
	verifier *Verifier
	logger   *slog.Logger
}

// NewRepairer constructs a Repairer that checks its output with verifier.
func NewRepairer(runner ffmpeg.Runner, verifier *Verifier, logger *slog.Logger) *Repairer {
	return &Repairer{runner: runner, verifier: verifier, logger: logging.NewComponentLogger(logger, "repairer")}
}

// Repair stream-copies path into a sibling "_repaired" file with regenerated
// presentation timestamps. ok is true only when the repaired file verifies;
// otherwise the partial output is removed and ok is false.
func (r *Repairer) Repair(ctx context.Context, path string) (string, bool) {
	logger := logging.WithContext(ctx, r.logger)
	output := capture.RepairedPath(path)

	args := append(ffmpeg.BaseArgs(),
		"-fflags", "+genpts",
		"-i", path,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	)
	if _, err := r.runner.Run(ctx, args...); err != nil {
		logging.WarnWithContext(logger, "repair remux failed", "repair_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "segment is likely truncated beyond container recovery"),
			logging.String(logging.FieldImpact, "segment excluded from this run"),
		)
		r.discard(logger, output)
		return "", false
	}

	if !r.verifier.Verify(ctx, output) {
		logging.WarnWithContext(logger, "repaired file failed verification", "repair_unverified",
			logging.String("path", path),
			logging.String("repaired", output),
			logging.String(logging.FieldErrorHint, "inspect the original segment manually"),
			logging.String(logging.FieldImpact, "segment excluded from this run"),
		)
		r.discard(logger, output)
		return "", false
	}

	logger.Info("segment repaired",
		logging.String("path", path),
		logging.String("repaired", output),
	)
	return output, true
}

func (r *Repairer) discard(logger *slog.Logger, path string) {
	if err := fileutil.Remove(path); err != nil {
		logger.Debug("remove failed repair output", logging.String("path", path), logging.Error(err))
	}
}
