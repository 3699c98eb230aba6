package detection

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"watcher/internal/alert"
	"watcher/internal/locale"
	"watcher/internal/logging"
	"watcher/internal/media/ffprobe"
	"watcher/internal/services"
	"watcher/internal/timeutil"
)

// StartFunc launches a Detector for one sweep.
type StartFunc func(ctx context.Context) (Detector, error)

// WorkerStarter returns a StartFunc that spawns the configured worker.
func WorkerStarter(cfg WorkerConfig, logger *slog.Logger) StartFunc {
	return func(ctx context.Context) (Detector, error) {
		return StartWorker(ctx, cfg, logger)
	}
}

// SweepOptions configures a Sweeper.
type SweepOptions struct {
	Interval   time.Duration
	Policy     alert.Policy
	Sender     alert.PhotoSender
	Clock      timeutil.Clock
	Translator *locale.Translator
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Screenshots []Screenshot
	Sampled     int
	Qualifying  int
	Alerts      alert.Stats
}

// Delivered returns the screenshots that reached the chat.
func (r SweepResult) Delivered() []Screenshot {
	var out []Screenshot
	for _, shot := range r.Screenshots {
		if shot.Delivered {
			out = append(out, shot)
		}
	}
	return out
}

// Sweeper samples a delivered video, detects people, and routes qualifying
// frames through a fresh alert throttle.
type Sweeper struct {
	prober   ffprobe.Prober
	sampler  *Sampler
	start    StartFunc
	renderer *Renderer
	opts     SweepOptions
	logger   *slog.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(prober ffprobe.Prober, sampler *Sampler, start StartFunc, renderer *Renderer, opts SweepOptions, logger *slog.Logger) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	return &Sweeper{
		prober:   prober,
		sampler:  sampler,
		start:    start,
		renderer: renderer,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "detection"),
	}
}

// Sweep analyzes one frame per interval of videoPath in increasing video-time
// order. Frames without a person at or above threshold do not touch the
// throttle. Alert state starts empty on every call. The returned result is
// valid even when an error is returned.
func (s *Sweeper) Sweep(ctx context.Context, videoPath string, threshold float64) (result SweepResult, err error) {
	logger := logging.WithContext(ctx, s.logger)

	probe, err := s.prober.Inspect(ctx, videoPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "detection", "probe", videoPath, err)
	}
	fps := probe.FrameRate()
	frames := probe.FrameCount()
	points := SamplePoints(fps, frames, s.opts.Interval)
	if len(points) == 0 {
		return result, services.Wrap(services.ErrValidation, "detection", "probe", "video has no usable frame rate or frame count", nil)
	}
	var width, height int
	if stream, ok := probe.VideoStream(); ok {
		width, height = stream.Width, stream.Height
	}
	logger.Info("detection sweep starting",
		logging.String("video", videoPath),
		logging.Float64("fps", fps),
		logging.Int64("frames", frames),
		logging.Int("samples", len(points)),
		logging.Float64("threshold", threshold),
	)

	detector, err := s.start(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := detector.Close(); cerr != nil {
			logger.Debug("detector close failed", logging.Error(cerr))
		}
	}()

	throttle := alert.NewThrottle(s.opts.Policy, s.opts.Sender, s.opts.Clock, s.logger)
	defer func() { result.Alerts = throttle.Stats() }()

	for seq, point := range points {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		data, err := s.sampler.Extract(ctx, videoPath, point.Timestamp)
		if err != nil {
			logging.WarnWithContext(logger, "frame extraction failed", "frame_extract_failed",
				logging.Float64("video_timestamp", point.Timestamp),
				logging.Error(err),
				logging.String(logging.FieldImpact, "frame skipped"),
			)
			continue
		}
		result.Sampled++

		detections, err := detector.Detect(ctx, Frame{Data: data, Width: width, Height: height, Seq: seq, VideoTimestamp: point.Timestamp})
		if err != nil {
			return result, err
		}
		persons := Qualifying(detections, threshold)
		if len(persons) == 0 {
			continue
		}
		result.Qualifying++

		var shot Screenshot
		outcome, _, err := throttle.Consider(ctx, point.Timestamp, func() (alert.Alert, error) {
			rendered, rerr := s.renderer.Render(data, videoPath, point.Timestamp, persons)
			if rerr != nil {
				return alert.Alert{}, rerr
			}
			shot = rendered
			return alert.Alert{Path: rendered.Path, Caption: Caption(s.opts.Translator, rendered)}, nil
		})
		if shot.Path != "" {
			shot.Delivered = outcome == alert.Delivered
			result.Screenshots = append(result.Screenshots, shot)
		}
		if err != nil {
			return result, err
		}
	}

	logger.Info("detection sweep finished",
		logging.Int("sampled", result.Sampled),
		logging.Int("qualifying", result.Qualifying),
		logging.Int("screenshots", len(result.Screenshots)),
	)
	return result, nil
}

// Caption builds the alert message accompanying a screenshot.
func Caption(tr *locale.Translator, shot Screenshot) string {
	lines := []string{
		tr.Translate(locale.PersonAlert),
		tr.Translate(locale.AlertVideo, filepath.Base(shot.SourceVideo)),
		tr.Translate(locale.AlertVideoTime, FormatVideoTime(shot.VideoTimestamp)),
		tr.Translate(locale.AlertPersonCount, len(shot.Detections)),
	}
	for i, d := range shot.Detections {
		lines = append(lines, tr.Translate(locale.AlertPersonScore, i+1, d.Confidence*100))
	}
	return strings.Join(lines, "\n")
}
