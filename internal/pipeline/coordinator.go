package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"watcher/internal/alert"
	"watcher/internal/capture"
	"watcher/internal/compress"
	"watcher/internal/config"
	"watcher/internal/delivery"
	"watcher/internal/detection"
	"watcher/internal/fileutil"
	"watcher/internal/integrity"
	"watcher/internal/locale"
	"watcher/internal/logging"
	"watcher/internal/media/ffmpeg"
	"watcher/internal/media/ffprobe"
	"watcher/internal/merge"
	"watcher/internal/notifications"
	"watcher/internal/preflight"
	"watcher/internal/runstore"
	"watcher/internal/services"
	"watcher/internal/timeutil"
)

const labelLayout = "20060102_150405"

// Sender uploads the delivered video and detection alerts.
type Sender interface {
	delivery.VideoSender
	alert.PhotoSender
}

// StorageCheck reports whether the filesystem holding path keeps minPercent free.
type StorageCheck func(ctx context.Context, path string, minPercent float64) (bool, preflight.Storage, error)

// Dependencies are the collaborators a Coordinator drives. Runner, Prober,
// and Sender are required; the rest fall back to quiet defaults.
type Dependencies struct {
	Runner     ffmpeg.Runner
	Prober     ffprobe.Prober
	Sender     Sender
	Notifier   notifications.Service
	Store      *runstore.Store
	Capability detection.Capability
	Detector   detection.StartFunc
	Clock      timeutil.Clock
	Translator *locale.Translator
	Storage    StorageCheck
}

// Outcome describes one finished run.
type Outcome struct {
	RunID     string
	Label     string
	State     State
	Segments  int
	Rejected  []string
	Delivered compress.Artifact
	Emergency bool
	Sweep     detection.SweepResult
	// Err is the failure that moved the run into StateAbortedPreserving.
	Err error
}

// Failed reports whether the run ended without delivering.
func (o Outcome) Failed() bool {
	return o.State == StateAbortedPreserving
}

// Coordinator drives one run at a time through verify, merge, compress,
// deliver, and the post-delivery sweep and cleanup.
type Coordinator struct {
	cfg        *config.Config
	deps       Dependencies
	logger     *slog.Logger
	clock      timeutil.Clock
	tr         *locale.Translator
	notifier   notifications.Service
	checker    *integrity.Checker
	merger     *merge.Merger
	compressor *compress.Compressor
	deliverer  *delivery.Deliverer
	sweeper    *detection.Sweeper
	janitor    *detection.Janitor

	mu      sync.Mutex
	current State
}

// New wires a Coordinator. The sweep is only built when deps.Capability is
// available and a detector starter is supplied.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Coordinator, error) {
	if cfg == nil || deps.Runner == nil || deps.Prober == nil || deps.Sender == nil {
		return nil, errors.New("pipeline requires config, runner, prober, and sender")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	tr := deps.Translator
	if tr == nil {
		tr = locale.New(cfg.Notifications.Language)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil, tr)
	}

	verifier := integrity.NewVerifier(deps.Prober, logger)
	encoder := compress.NewEncoder(deps.Runner, logger)
	c := &Coordinator{
		cfg:        cfg,
		deps:       deps,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		clock:      clock,
		tr:         tr,
		notifier:   notifier,
		checker:    integrity.NewChecker(verifier, integrity.NewRepairer(deps.Runner, verifier, logger), logger),
		merger:     merge.New(deps.Runner, cfg.Paths.WorkDir, logger),
		compressor: compress.New(encoder, cfg.Paths.WorkDir, logger),
		deliverer:  delivery.NewDeliverer(deps.Sender, encoder, cfg.Paths.WorkDir, logger),
		janitor:    detection.NewJanitor(cfg.Paths.ScreenshotsDir, time.Duration(cfg.Detection.ScreenshotMaxAgeHours)*time.Hour, clock.Now, logger),
		current:    StateIdle,
	}

	if deps.Capability.Available && deps.Detector != nil {
		c.sweeper = detection.NewSweeper(
			deps.Prober,
			detection.NewSampler(deps.Runner),
			deps.Detector,
			detection.NewRenderer(cfg.Paths.ScreenshotsDir, clock.Now),
			detection.SweepOptions{
				Interval:   time.Duration(cfg.Detection.SampleIntervalSeconds) * time.Second,
				Policy:     alert.PolicyFromConfig(cfg.Alerts),
				Sender:     deps.Sender,
				Clock:      clock,
				Translator: tr,
			},
			logger,
		)
	}
	return c, nil
}

// Current returns the state of the run in progress, or StateIdle.
func (c *Coordinator) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Run executes one pass over the segments directory. The returned error is
// ErrBusy when another run holds the lock; stage failures are reported in
// Outcome.Err with the inputs left on disk.
func (c *Coordinator) Run(ctx context.Context) (Outcome, error) {
	lock, err := AcquireRunLock(c.cfg.LockPath())
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			c.logger.Warn("release run lock failed", logging.Error(err))
		}
	}()

	started := c.clock.Now()
	out := Outcome{RunID: uuid.NewString(), Label: started.Format(labelLayout), State: StateIdle}
	ctx = services.WithRunID(ctx, out.RunID)
	logger := logging.WithContext(ctx, c.logger).With(logging.String("run_label", out.Label))
	logger.Info("pipeline run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("segments_dir", c.cfg.Paths.SegmentsDir),
	)

	c.checkStorage(ctx, logger)
	c.recordBegin(ctx, logger, out, started)

	c.execute(ctx, logger, &out)

	c.recordFinish(ctx, logger, out, started)
	c.setCurrent(StateIdle)
	logger.Info("pipeline run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("state", string(out.State)),
		logging.Int("segments", out.Segments),
		logging.Int("rejected", len(out.Rejected)),
		logging.Duration("duration", c.clock.Now().Sub(started)),
	)
	return out, nil
}

func (c *Coordinator) execute(ctx context.Context, logger *slog.Logger, out *Outcome) {
	c.transition(logger, out, StateVerifying)
	paths, err := capture.ListSegments(c.cfg.Paths.SegmentsDir)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "verify", "list segments", c.cfg.Paths.SegmentsDir, err)
		c.notify(ctx, logger, "error", func(ctx context.Context) error {
			return c.notifier.NotifyError(ctx, err, "verify")
		})
		c.abort(logger, out, err)
		return
	}
	usable, rejected := c.checker.Prepare(services.WithStage(ctx, "verify"), paths)
	out.Segments = len(usable)
	out.Rejected = rejected
	if err := ctx.Err(); err != nil {
		c.abort(logger, out, err)
		return
	}
	if len(usable) < merge.MinSegments {
		attrs := append(logging.DecisionAttrs("merge_gate", "skip", "fewer usable segments than a merge needs"),
			logging.Int("found", len(paths)),
			logging.Int("usable", len(usable)),
			logging.Int("rejected", len(rejected)),
		)
		logger.Info("not enough segments to merge; nothing to do", logging.Args(attrs...)...)
		c.transition(logger, out, StateDone)
		return
	}

	c.transition(logger, out, StateMerging)
	mergeCtx := services.WithStage(ctx, "merge")
	mergedPath, err := c.merger.Merge(mergeCtx, out.Label, segmentPaths(usable))
	var merged compress.Artifact
	if err == nil {
		merged, err = compress.NewArtifact(mergedPath, compress.StageMerged)
	}
	if err != nil {
		c.removeRepaired(logger, usable)
		c.notify(mergeCtx, logger, "merge_failed", func(ctx context.Context) error {
			return c.notifier.NotifyMergeFailed(ctx, err)
		})
		c.abort(logger, out, err)
		return
	}

	c.transition(logger, out, StateCompressing)
	compressCtx := services.WithStage(ctx, "compress")
	compressed, err := c.compressor.Compress(compressCtx, out.Label, merged, c.cfg.BudgetBytes())
	if err != nil {
		c.removeRepaired(logger, usable)
		c.notify(compressCtx, logger, "compression_failed", func(ctx context.Context) error {
			return c.notifier.NotifyCompressionFailed(ctx, err)
		})
		c.abort(logger, out, err)
		return
	}

	c.transition(logger, out, StateDelivering)
	deliverCtx := services.WithStage(ctx, "deliver")
	caption := c.tr.Translate(locale.VideoCaption, out.Label, len(usable))
	result, err := c.deliverer.Deliver(deliverCtx, out.Label, compressed, c.cfg.BudgetBytes(), caption)
	if err != nil {
		c.notify(deliverCtx, logger, "delivery_failed", func(ctx context.Context) error {
			return c.notifier.NotifyDeliveryFailed(ctx, err)
		})
		c.abort(logger, out, err)
		return
	}
	out.Delivered = result.Uploaded
	out.Emergency = result.Emergency
	c.notify(deliverCtx, logger, "delivered", func(ctx context.Context) error {
		return c.notifier.NotifyDelivered(ctx, filepath.Base(compressed.Path), result.Uploaded.SizeBytes)
	})

	// The sweep reads the compressed artifact, so it runs before cleanup.
	c.transition(logger, out, StateDetectingAndCleanup)
	c.sweep(services.WithStage(ctx, "detect"), logger, out, compressed.Path)
	c.cleanScreenshots(ctx, logger)
	c.cleanup(logger, usable, merged.Path, compressed.Path)
	c.transition(logger, out, StateDone)
}

func (c *Coordinator) sweep(ctx context.Context, logger *slog.Logger, out *Outcome, video string) {
	if c.sweeper == nil {
		reason := "no detector configured"
		if err := c.deps.Capability.Require(); err != nil {
			reason = err.Error()
		}
		logger.Info("detection sweep skipped", logging.Args(logging.DecisionAttrs("detection_sweep", "skip", reason)...)...)
		return
	}
	result, err := c.sweeper.Sweep(ctx, video, c.cfg.Detection.ConfidenceThreshold)
	out.Sweep = result
	if err != nil {
		logging.WarnWithContext(logger, "detection sweep failed", "detection_sweep_failed",
			logging.Error(err),
			logging.Int("screenshots", len(result.Screenshots)),
			logging.String(logging.FieldErrorHint, "run watcher check to verify the detector worker"),
			logging.String(logging.FieldImpact, "video was delivered; undelivered screenshots are kept"),
		)
	}
	for _, shot := range result.Delivered() {
		c.remove(logger, "screenshot", shot.Path)
	}
	logger.Info("detection sweep complete",
		logging.Int("sampled", result.Sampled),
		logging.Int("qualifying", result.Qualifying),
		logging.Int("alerts_delivered", result.Alerts.Delivered),
		logging.Int("alerts_suppressed", result.Alerts.Suppressed),
		logging.Int("alerts_failed", result.Alerts.Failed),
	)
}

func (c *Coordinator) cleanScreenshots(ctx context.Context, logger *slog.Logger) {
	removed, err := c.janitor.Clean(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "screenshot cleanup failed", "screenshot_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old screenshots remain until the next run"),
		)
		return
	}
	if removed > 0 {
		logger.Info("old screenshots removed", logging.Int("count", removed))
	}
}

// cleanup removes everything the delivered video was built from. Rejected
// segments are not passed in and stay on disk.
func (c *Coordinator) cleanup(logger *slog.Logger, usable []integrity.Segment, artifacts ...string) {
	removed := 0
	for _, seg := range usable {
		if c.remove(logger, "segment", seg.Original) {
			removed++
		}
		if seg.Repaired && c.remove(logger, "repaired segment", seg.Path) {
			removed++
		}
	}
	for _, path := range artifacts {
		if c.remove(logger, "artifact", path) {
			removed++
		}
	}
	logger.Info("delivered inputs removed", logging.Int("files", removed))
}

func (c *Coordinator) removeRepaired(logger *slog.Logger, usable []integrity.Segment) {
	for _, seg := range usable {
		if seg.Repaired {
			c.remove(logger, "repaired segment", seg.Path)
		}
	}
}

func (c *Coordinator) remove(logger *slog.Logger, kind, path string) bool {
	if err := fileutil.Remove(path); err != nil {
		logging.WarnWithContext(logger, "remove "+kind+" failed", "cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "file remains on disk"),
		)
		return false
	}
	return true
}

func (c *Coordinator) checkStorage(ctx context.Context, logger *slog.Logger) {
	if c.deps.Storage == nil {
		return
	}
	ok, st, err := c.deps.Storage(ctx, c.cfg.Paths.SegmentsDir, c.cfg.Notifications.MinFreePercent)
	if err != nil {
		logging.WarnWithContext(logger, "storage check failed", "storage_check_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "low storage warning skipped for this run"),
		)
		return
	}
	if ok {
		return
	}
	logging.WarnWithContext(logger, "storage space low", "storage_low",
		logging.Float64("free_percent", st.FreePercent),
		logging.Float64("min_free_percent", c.cfg.Notifications.MinFreePercent),
		logging.String(logging.FieldErrorHint, "free space on the segments filesystem"),
		logging.String(logging.FieldImpact, "run continues"),
	)
	c.notify(ctx, logger, "storage_low", func(ctx context.Context) error {
		return c.notifier.NotifyLowStorage(ctx, st.FreePercent)
	})
}

// notify never fails the run.
func (c *Coordinator) notify(ctx context.Context, logger *slog.Logger, event string, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, notification not sent", logging.String("notification", event))
			return
		}
		logger.Debug("notification failed", logging.String("notification", event), logging.Error(err))
	}
}

func (c *Coordinator) abort(logger *slog.Logger, out *Outcome, err error) {
	out.Err = err
	logging.ErrorWithContext(logger, "pipeline run aborted; inputs preserved", "run_aborted",
		logging.String("failed_state", string(out.State)),
		logging.String("failure_kind", services.FailureKind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "files are kept on disk; the next run retries"),
	)
	c.transition(logger, out, StateAbortedPreserving)
}

func (c *Coordinator) transition(logger *slog.Logger, out *Outcome, to State) {
	from := out.State
	if !CanTransition(from, to) {
		logging.WarnWithContext(logger, "unexpected state transition", "state_transition_invalid",
			logging.String("from", string(from)),
			logging.String("to", string(to)),
		)
	}
	out.State = to
	c.setCurrent(to)
	logger.Debug("pipeline state changed",
		logging.String(logging.FieldEventType, "state_transition"),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
	)
}

func (c *Coordinator) setCurrent(state State) {
	c.mu.Lock()
	c.current = state
	c.mu.Unlock()
}

func segmentPaths(usable []integrity.Segment) []string {
	paths := make([]string, 0, len(usable))
	for _, seg := range usable {
		paths = append(paths, seg.Path)
	}
	return paths
}
