package alert

import (
	"context"
	"log/slog"
	"time"

	"watcher/internal/config"
	"watcher/internal/logging"
	"watcher/internal/timeutil"
)

// PhotoSender uploads one alert image.
type PhotoSender interface {
	SendPhoto(ctx context.Context, path, caption string) error
}

// Policy is the content throttle (cooldown, in video time) plus the API rate
// throttle (per-alert delay and batch timeout, in wall time).
type Policy struct {
	Cooldown     time.Duration
	Delay        time.Duration
	BatchSize    int
	BatchTimeout time.Duration
}

// PolicyFromConfig converts alert configuration into a Policy.
func PolicyFromConfig(cfg config.Alerts) Policy {
	return Policy{
		Cooldown:     time.Duration(cfg.CooldownSeconds) * time.Second,
		Delay:        time.Duration(cfg.DelaySeconds) * time.Second,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Duration(cfg.BatchTimeoutSeconds) * time.Second,
	}
}

// State is process-local and starts fresh for every run.
type State struct {
	HasAlerted         bool
	LastAlertTimestamp float64
	BatchCount         int
}

// Stats counts throttle outcomes for one run.
type Stats struct {
	Delivered  int
	Suppressed int
	Failed     int
}

// Outcome is the result of considering one qualifying frame.
type Outcome int

const (
	Suppressed Outcome = iota
	Delivered
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	default:
		return "suppressed"
	}
}

// Alert is a rendered image ready to send.
type Alert struct {
	Path    string
	Caption string
}

// RenderFunc materializes the alert image. It is only called once the
// cooldown check has passed.
type RenderFunc func() (Alert, error)

// Throttle gates detection alerts. Its sleeps block the caller on purpose so
// the sweep cannot outrun the Bot API's rate limits.
type Throttle struct {
	policy Policy
	sender PhotoSender
	clock  timeutil.Clock
	logger *slog.Logger
	state  State
	stats  Stats
}

// NewThrottle constructs a Throttle with empty state.
func NewThrottle(policy Policy, sender PhotoSender, clock timeutil.Clock, logger *slog.Logger) *Throttle {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Throttle{policy: policy, sender: sender, clock: clock, logger: logging.NewComponentLogger(logger, "alerts")}
}

// Allow reports whether a detection at videoTimestamp (seconds) is outside
// the cooldown window of the last delivered alert.
func (t *Throttle) Allow(videoTimestamp float64) bool {
	if !t.state.HasAlerted {
		return true
	}
	elapsed := time.Duration((videoTimestamp - t.state.LastAlertTimestamp) * float64(time.Second))
	return elapsed >= t.policy.Cooldown
}

// Consider runs one qualifying detection through the throttle. A render or
// delivery failure leaves the cooldown state untouched, so the next qualifying
// detection may retry. The returned error is non-nil only when ctx ended
// during a backpressure sleep.
func (t *Throttle) Consider(ctx context.Context, videoTimestamp float64, render RenderFunc) (Outcome, Alert, error) {
	logger := logging.WithContext(ctx, t.logger)
	if !t.Allow(videoTimestamp) {
		t.stats.Suppressed++
		logger.Debug("detection suppressed by cooldown",
			logging.Float64("video_timestamp", videoTimestamp),
			logging.Float64("last_alert_timestamp", t.state.LastAlertTimestamp),
		)
		return Suppressed, Alert{}, nil
	}

	shot, err := render()
	if err != nil {
		t.stats.Failed++
		logging.WarnWithContext(logger, "render alert image failed", "alert_render_failed",
			logging.Float64("video_timestamp", videoTimestamp),
			logging.Error(err),
			logging.String(logging.FieldImpact, "alert skipped for this frame"),
		)
		return Failed, Alert{}, nil
	}

	if err := t.sender.SendPhoto(ctx, shot.Path, shot.Caption); err != nil {
		t.stats.Failed++
		logging.WarnWithContext(logger, "alert delivery failed; image retained", "alert_delivery_failed",
			logging.String("path", shot.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the janitor removes it after screenshot_max_age_hours"),
			logging.String(logging.FieldImpact, "alert not delivered"),
		)
		return Failed, shot, t.clock.Sleep(ctx, t.policy.Delay)
	}

	t.state.HasAlerted = true
	t.state.LastAlertTimestamp = videoTimestamp
	t.state.BatchCount++
	t.stats.Delivered++
	logger.Info("alert delivered",
		logging.String("path", shot.Path),
		logging.Float64("video_timestamp", videoTimestamp),
		logging.Int("batch_count", t.state.BatchCount),
	)

	if t.policy.BatchSize > 0 && t.state.BatchCount >= t.policy.BatchSize {
		logger.Info("alert batch limit reached; pausing",
			logging.Int("batch_size", t.policy.BatchSize),
			logging.Duration("pause", t.policy.BatchTimeout),
		)
		t.state.BatchCount = 0
		return Delivered, shot, t.clock.Sleep(ctx, t.policy.BatchTimeout)
	}
	return Delivered, shot, t.clock.Sleep(ctx, t.policy.Delay)
}

// State returns a copy of the current throttle state.
func (t *Throttle) State() State {
	return t.state
}

// Stats returns outcome counters for the run.
func (t *Throttle) Stats() Stats {
	return t.stats
}
