package detection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"watcher/internal/logging"
	"watcher/internal/services"
)

const defaultStopTimeout = 2 * time.Second

// Detector runs person detection on single frames.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
	Close() error
}

// WorkerConfig describes the external detector process.
type WorkerConfig struct {
	Command     string
	ModelPath   string
	StopTimeout time.Duration
}

// Worker is a Detector backed by an external process speaking the
// length-prefixed msgpack protocol over stdin and stdout. Calls are serialized;
// the sweep submits one frame at a time.
type Worker struct {
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stdout      *bufio.Reader
	stopTimeout time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	exited chan struct{}
	waited error
	closed bool
}

// StartWorker spawns the detector process. The process lives until Close or
// until ctx ends; cancellation sends SIGTERM and kills the process once the
// stop timeout elapses.
func StartWorker(ctx context.Context, cfg WorkerConfig, logger *slog.Logger) (*Worker, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "detection", "start worker", "worker command not configured", nil)
	}
	stop := cfg.StopTimeout
	if stop <= 0 {
		stop = defaultStopTimeout
	}
	logger = logging.NewComponentLogger(logger, "detector")

	cmd := exec.CommandContext(ctx, cfg.Command, "--model", cfg.ModelPath, "--classes", "0")
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = stop
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("detector stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("detector stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("detector stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "detection", "start worker", cfg.Command, err)
	}

	w := &Worker{
		cmd:         cmd,
		stdin:       stdin,
		stdout:      bufio.NewReader(stdout),
		stopTimeout: stop,
		logger:      logger,
		exited:      make(chan struct{}),
	}
	go w.logStderr(stderr)
	go func() {
		w.waited = cmd.Wait()
		close(w.exited)
	}()

	logger.Info("detector worker started",
		logging.String("command", cfg.Command),
		logging.String("model", cfg.ModelPath),
		logging.Int("pid", cmd.Process.Pid),
	)
	return w, nil
}

// Detect submits frame and waits for its detections. A protocol or process
// failure is terminal for the worker.
func (w *Worker) Detect(ctx context.Context, frame Frame) ([]Detection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, errors.New("detector worker closed")
	}

	type outcome struct {
		resp response
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		if err := writeMessage(w.stdin, newRequest(frame)); err != nil {
			out.err = err
		} else {
			out.err = readMessage(w.stdout, &out.resp)
		}
		done <- out
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "detection", "detect", "worker protocol failure", out.err)
		}
		if out.resp.Error != "" {
			return nil, services.Wrap(services.ErrExternalTool, "detection", "detect", out.resp.Error, nil)
		}
		w.logger.Debug("frame analyzed",
			logging.Int("seq", frame.Seq),
			logging.Int("detections", len(out.resp.Detections)),
			logging.Float64("inference_ms", out.resp.Timing.InferenceMS),
		)
		return out.resp.Detections, nil
	case <-w.exited:
		return nil, services.Wrap(services.ErrExternalTool, "detection", "detect", "worker exited", w.waited)
	case <-ctx.Done():
		w.closed = true
		w.stop()
		return nil, ctx.Err()
	}
}

// Close closes stdin so the worker can exit on its own. A worker still running
// after the stop timeout gets SIGTERM, then SIGKILL after another timeout.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.stop()
	return nil
}

// stop runs once, guarded by the closed flag.
func (w *Worker) stop() {
	_ = w.stdin.Close()
	if w.waitExit() {
		w.logger.Debug("detector worker exited")
		return
	}
	_ = w.cmd.Process.Signal(unix.SIGTERM)
	if w.waitExit() {
		w.logger.Debug("detector worker exited after SIGTERM")
		return
	}
	logging.WarnWithContext(w.logger, "detector worker did not exit; killing", "detector_stop_timeout",
		logging.Duration("timeout", w.stopTimeout),
		logging.String(logging.FieldImpact, "worker terminated forcefully"),
	)
	_ = w.cmd.Process.Kill()
	<-w.exited
}

func (w *Worker) waitExit() bool {
	timer := time.NewTimer(w.stopTimeout)
	defer timer.Stop()
	select {
	case <-w.exited:
		return true
	case <-timer.C:
		return false
	}
}

func (w *Worker) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.Contains(line, "ERROR"), strings.Contains(line, "CRITICAL"):
			w.logger.Error(line)
		case strings.Contains(line, "WARN"):
			w.logger.Warn(line)
		default:
			w.logger.Debug(line)
		}
	}
}
