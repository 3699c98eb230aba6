package integrity

import (
	"context"
	"log/slog"

	"watcher/internal/logging"
	"watcher/internal/media/ffprobe"
)

// Verifier checks a media file's structural soundness with ffprobe.
type Verifier struct {
	prober ffprobe.Prober
	logger *slog.Logger
}

// NewVerifier constructs a Verifier.
func NewVerifier(prober ffprobe.Prober, logger *slog.Logger) *Verifier {
	return &Verifier{prober: prober, logger: logging.NewComponentLogger(logger, "verifier")}
}

// Verify reports whether the probe succeeds and finds stream metadata. It has
// no side effects, so repeated calls on an unchanged file agree.
func (v *Verifier) Verify(ctx context.Context, path string) bool {
	result, err := v.prober.Inspect(ctx, path)
	if err != nil {
		logging.WithContext(ctx, v.logger).Debug("probe failed",
			logging.String("path", path),
			logging.Error(err),
		)
		return false
	}
	if !result.Readable() {
		logging.WithContext(ctx, v.logger).Debug("probe returned no stream metadata",
			logging.String("path", path),
			logging.String("format", result.Format.FormatName),
			logging.Int("streams", len(result.Streams)),
		)
		return false
	}
	return true
}
