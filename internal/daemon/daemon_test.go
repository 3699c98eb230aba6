package daemon_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watcher/internal/config"
	"watcher/internal/daemon"
	"watcher/internal/logging"
	"watcher/internal/pipeline"
	"watcher/internal/testsupport"
)

type countingRunner struct {
	mu    sync.Mutex
	runs  int
	err   error
	out   pipeline.Outcome
	ready chan struct{}
}

func (r *countingRunner) Run(ctx context.Context) (pipeline.Outcome, error) {
	r.mu.Lock()
	r.runs++
	n := r.runs
	r.mu.Unlock()
	if n == 2 && r.ready != nil {
		close(r.ready)
	}
	return r.out, r.err
}

func (r *countingRunner) Current() pipeline.State {
	return pipeline.StateIdle
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Daemon.IntervalSeconds = 1
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	runner := &countingRunner{}
	d, err := daemon.New(cfg, runner, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.State != pipeline.StateIdle {
		t.Fatalf("unexpected state %s", status.State)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if runner.count() < 1 {
		t.Fatal("expected an immediate first run")
	}
}

func TestDaemonRunsOnInterval(t *testing.T) {
	cfg := testConfig(t)
	runner := &countingRunner{ready: make(chan struct{})}
	d, err := daemon.New(cfg, runner, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-runner.ready:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a second scheduled run, got %d", runner.count())
	}
	d.Stop()
	if got := d.Status(context.Background()).Passes; got < 2 {
		t.Fatalf("expected at least two passes, got %d", got)
	}
}

func TestDaemonRecordsLastError(t *testing.T) {
	cfg := testConfig(t)
	runner := &countingRunner{out: pipeline.Outcome{State: pipeline.StateAbortedPreserving, Err: errors.New("upload failed")}}
	store := testsupport.MustOpenRunStore(t, cfg)
	d, err := daemon.New(cfg, runner, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	status := d.Status(context.Background())
	if status.LastError != "upload failed" {
		t.Fatalf("LastError = %q", status.LastError)
	}
	if status.LastRun != nil {
		t.Fatalf("expected empty history, got %+v", status.LastRun)
	}
}

func TestDaemonSkipsBusyRuns(t *testing.T) {
	cfg := testConfig(t)
	runner := &countingRunner{err: pipeline.ErrBusy}
	d, err := daemon.New(cfg, runner, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	status := d.Status(context.Background())
	if status.Passes != 0 || status.LastError != "" {
		t.Fatalf("busy run should not count as a pass: %+v", status)
	}
}

func TestSecondDaemonInstanceRefused(t *testing.T) {
	cfg := testConfig(t)
	first, err := daemon.New(cfg, &countingRunner{}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, &countingRunner{}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Daemon.IntervalSeconds = 0
	if _, err := daemon.New(cfg, &countingRunner{}, nil, nil); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
