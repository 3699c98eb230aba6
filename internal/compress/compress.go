package compress

import (
	"context"
	"log/slog"
	"path/filepath"

	"watcher/internal/fileutil"
	"watcher/internal/logging"
	"watcher/internal/media/ffmpeg"
	"watcher/internal/services"
)

// Encoder runs a single profile encode.
type Encoder struct {
	runner ffmpeg.Runner
	logger *slog.Logger
}

// NewEncoder constructs an Encoder.
func NewEncoder(runner ffmpeg.Runner, logger *slog.Logger) *Encoder {
	return &Encoder{runner: runner, logger: logging.NewComponentLogger(logger, "encoder")}
}

// Encode re-encodes input to output with profile. A failed or empty encode
// removes output and returns an error.
func (e *Encoder) Encode(ctx context.Context, profile Profile, input, output string, stage Stage) (Artifact, error) {
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("encoding",
		logging.String("profile", profile.Name),
		logging.String("input", input),
		logging.String("output", output),
	)

	args := append(ffmpeg.BaseArgs(), profile.Args(input, output)...)
	if _, err := e.runner.Run(ctx, args...); err != nil {
		_ = fileutil.Remove(output)
		marker := services.ErrExternalTool
		if ffmpeg.TimedOut(err) {
			marker = services.ErrTimeout
		}
		return Artifact{}, services.Wrap(marker, "compress", profile.Name, "ffmpeg encode failed", err)
	}
	if !fileutil.NonEmpty(output) {
		_ = fileutil.Remove(output)
		return Artifact{}, services.Wrap(services.ErrExternalTool, "compress", profile.Name, "ffmpeg produced no output", nil)
	}
	return NewArtifact(output, stage)
}

// Compressor applies the ladder's first pass and, when needed, one extra pass.
// Further escalation is the delivery client's job.
type Compressor struct {
	encoder *Encoder
	workDir string
	logger  *slog.Logger
}

// New constructs a Compressor writing into workDir.
func New(encoder *Encoder, workDir string, logger *slog.Logger) *Compressor {
	return &Compressor{encoder: encoder, workDir: workDir, logger: logging.NewComponentLogger(logger, "compressor")}
}

// OutputPath returns the first-pass artifact path for run.
func (c *Compressor) OutputPath(run string) string {
	return filepath.Join(c.workDir, "compressed_"+run+".mp4")
}

// ExtraPath returns the extra-pass artifact path for run.
func (c *Compressor) ExtraPath(run string) string {
	return filepath.Join(c.workDir, "compressed_"+run+"_extra.mp4")
}

// Compress returns an artifact that may or may not fit budget. An error means
// the first encode itself failed. A failed extra pass keeps the first-pass
// artifact. Once the extra pass runs, the result is never larger than input:
// the smaller encode wins, and the input itself wins over both.
func (c *Compressor) Compress(ctx context.Context, run string, input Artifact, budget int64) (Artifact, error) {
	logger := logging.WithContext(ctx, c.logger)

	initial := InitialProfile(input.SizeBytes, budget)
	reason := "input fits budget"
	if initial == Aggressive {
		reason = "input exceeds budget"
	}
	attrs := append(logging.DecisionAttrs("compression_profile", initial.Name, reason),
		logging.Int64("input_bytes", input.SizeBytes),
		logging.Int64("budget_bytes", budget),
	)
	logger.Info("compression profile selected", logging.Args(attrs...)...)

	current, err := c.encoder.Encode(ctx, initial, input.Path, c.OutputPath(run), StageCompressed)
	if err != nil {
		return Artifact{}, err
	}
	if current.Fits(budget) {
		logger.Info("compressed artifact fits budget",
			logging.Int64("size_bytes", current.SizeBytes),
			logging.Float64("size_mb", fileutil.MegaBytes(current.SizeBytes)),
		)
		return current, nil
	}

	logger.Info("compressed artifact over budget; applying extra pass",
		logging.Int64("size_bytes", current.SizeBytes),
		logging.Int64("budget_bytes", budget),
	)
	extra, err := c.encoder.Encode(ctx, Extra, current.Path, c.ExtraPath(run), StageExtraCompressed)
	if err != nil {
		logging.WarnWithContext(logger, "extra compression pass failed; keeping previous artifact", "extra_pass_failed",
			logging.Error(err),
			logging.String("kept", current.Path),
			logging.String(logging.FieldImpact, "delivery will apply the emergency re-encode if still over budget"),
		)
		return current, nil
	}
	best := extra
	superseded := current
	if extra.SizeBytes >= current.SizeBytes {
		logging.WarnWithContext(logger, "extra compression pass did not shrink artifact", "extra_pass_no_gain",
			logging.Int64("previous_bytes", current.SizeBytes),
			logging.Int64("extra_bytes", extra.SizeBytes),
			logging.String(logging.FieldImpact, "previous artifact kept"),
		)
		best, superseded = current, extra
	}
	c.discard(logger, superseded.Path)

	if best.SizeBytes > input.SizeBytes {
		logging.WarnWithContext(logger, "re-encodes grew the merged artifact; keeping input", "compression_no_gain",
			logging.Int64("input_bytes", input.SizeBytes),
			logging.Int64("encoded_bytes", best.SizeBytes),
			logging.String(logging.FieldImpact, "merged artifact is delivered as-is"),
		)
		c.discard(logger, best.Path)
		return input, nil
	}
	logger.Info("extra pass complete",
		logging.String("stage", string(best.Stage)),
		logging.Int64("size_bytes", best.SizeBytes),
		logging.Bool("fits_budget", best.Fits(budget)),
	)
	return best, nil
}

func (c *Compressor) discard(logger *slog.Logger, path string) {
	if err := fileutil.Remove(path); err != nil {
		logging.WarnWithContext(logger, "remove superseded artifact failed", "artifact_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "stale artifact remains in work_dir"),
		)
	}
}
