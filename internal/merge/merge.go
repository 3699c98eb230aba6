package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"watcher/internal/fileutil"
	"watcher/internal/logging"
	"watcher/internal/media/ffmpeg"
	"watcher/internal/services"
)

// MinSegments is the smallest merge set worth producing.
const MinSegments = 2

// Merger concatenates verified segments with the concat demuxer. It never
// re-encodes, so output validity depends entirely on its inputs.
type Merger struct {
	runner  ffmpeg.Runner
	workDir string
	logger  *slog.Logger
}

// New constructs a Merger writing into workDir.
func New(runner ffmpeg.Runner, workDir string, logger *slog.Logger) *Merger {
	return &Merger{runner: runner, workDir: workDir, logger: logging.NewComponentLogger(logger, "merger")}
}

// OutputPath returns the merged artifact path for run.
func (m *Merger) OutputPath(run string) string {
	return filepath.Join(m.workDir, "merged_"+run+".mp4")
}

// ManifestPath returns the concat manifest path for run.
func (m *Merger) ManifestPath(run string) string {
	return filepath.Join(m.workDir, "merge_"+run+".txt")
}

// Merge writes paths, in order, into one file. The manifest is removed on
// every outcome. On error no output file is left behind.
func (m *Merger) Merge(ctx context.Context, run string, paths []string) (string, error) {
	logger := logging.WithContext(ctx, m.logger)
	if len(paths) < MinSegments {
		return "", services.Wrap(services.ErrValidation, "merge", "prepare",
			fmt.Sprintf("need at least %d segments, got %d", MinSegments, len(paths)), nil)
	}

	manifest := m.ManifestPath(run)
	output := m.OutputPath(run)
	if err := writeManifest(manifest, paths); err != nil {
		return "", services.Wrap(services.ErrTransient, "merge", "write manifest", manifest, err)
	}
	defer func() {
		if err := fileutil.Remove(manifest); err != nil {
			logger.Debug("remove merge manifest failed", logging.String("path", manifest), logging.Error(err))
		}
	}()

	args := append(ffmpeg.BaseArgs(),
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		output,
	)
	if _, err := m.runner.Run(ctx, args...); err != nil {
		_ = fileutil.Remove(output)
		return "", services.Wrap(markerFor(err), "merge", "concat", "ffmpeg concat failed", err)
	}
	if !fileutil.NonEmpty(output) {
		_ = fileutil.Remove(output)
		return "", services.Wrap(services.ErrExternalTool, "merge", "concat", "ffmpeg produced no output", nil)
	}

	size, _ := fileutil.Size(output)
	logger.Info("segments merged",
		logging.Int("segments", len(paths)),
		logging.String("output", output),
		logging.Int64("size_bytes", size),
	)
	return output, nil
}

// writeManifest emits one "file '<path>'" line per input with single quotes
// escaped for the concat demuxer.
func writeManifest(path string, inputs []string) error {
	var b strings.Builder
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func markerFor(err error) error {
	if ffmpeg.TimedOut(err) {
		return services.ErrTimeout
	}
	return services.ErrExternalTool
}
