package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"watcher/internal/config"
	"watcher/internal/logging"
	"watcher/internal/pipeline"
	"watcher/internal/runstore"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.Outcome, error)
	Current() pipeline.State
}

// Daemon triggers pipeline runs on an interval and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   Runner
	store    *runstore.Store
	interval time.Duration

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	lastErr error
	passes  int
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	State        pipeline.State
	Passes       int
	LastRun      *runstore.Run
	LastError    string
	LockFilePath string
	RunStorePath string
}

// New constructs a daemon. store may be nil, in which case Status omits history.
func New(cfg *config.Config, runner Runner, store *runstore.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and pipeline runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Daemon.IntervalSeconds) * time.Second
	if interval <= 0 {
		return nil, fmt.Errorf("daemon interval must be positive, got %ds", cfg.Daemon.IntervalSeconds)
	}

	lockPath := LockPath(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		runner:   runner,
		store:    store,
		interval: interval,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the flock file held while a daemon is running.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "watcherd.lock")
}

// Start acquires the daemon lock and launches the schedule. The first pass
// runs immediately.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another watcher daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.loop(d.ctx, d.done)

	d.logger.Info("watcher daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("interval", d.interval),
	)
	return nil
}

// Stop cancels the schedule, waits for an in-flight pass, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("watcher daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	status := Status{
		Running:      d.running.Load(),
		State:        d.runner.Current(),
		Passes:       d.passes,
		LockFilePath: d.lockPath,
		RunStorePath: d.cfg.RunStorePath(),
	}
	if d.lastErr != nil {
		status.LastError = d.lastErr.Error()
	}
	d.mu.Unlock()

	if d.store != nil {
		last, err := d.store.Last(ctx)
		if err != nil {
			d.logger.Debug("run history unavailable", logging.Error(err))
		} else {
			status.LastRun = last
		}
	}
	return status
}

func (d *Daemon) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	out, err := d.runner.Run(ctx)
	if errors.Is(err, pipeline.ErrBusy) {
		d.logger.Info("scheduled run skipped",
			logging.Args(logging.DecisionAttrs("scheduled_run", "skip", "another run holds the lock")...)...)
		return
	}
	if err == nil {
		err = out.Err
	}

	d.mu.Lock()
	d.passes++
	d.lastErr = err
	d.mu.Unlock()

	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		d.logger.Debug("daemon shutting down, run interrupted")
		return
	}
	logging.WarnWithContext(d.logger, "scheduled run did not deliver", "scheduled_run_failed",
		logging.String("state", string(out.State)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the next scheduled run retries with the preserved files"),
		logging.String(logging.FieldImpact, "recordings stay on disk until a run delivers"),
	)
}
