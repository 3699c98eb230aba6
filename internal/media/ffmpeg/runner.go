package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultGracePeriod bounds how long a process may take to exit after SIGTERM
// before it is killed.
const DefaultGracePeriod = 5 * time.Second

const stderrTailLines = 20

// Runner executes an external media tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// CLI runs a binary (ffmpeg by default). When ctx is done the process receives
// SIGTERM, then SIGKILL once GracePeriod elapses.
type CLI struct {
	Binary      string
	GracePeriod time.Duration
}

// Run implements Runner.
func (c CLI) Run(ctx context.Context, args ...string) ([]byte, error) {
	binary := strings.TrimSpace(c.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	grace := c.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cause := err
		if ctxErr := ctx.Err(); ctxErr != nil {
			cause = ctxErr
		}
		return nil, &ToolError{
			Tool:   binary,
			Args:   append([]string(nil), args...),
			Stderr: tail(stderr.String(), stderrTailLines),
			Err:    cause,
		}
	}
	return stdout.Bytes(), nil
}

// ToolError carries the diagnostic payload of a failed invocation.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Tool, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// TimedOut reports whether err came from a process stopped by its deadline.
func TimedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// BaseArgs returns the flags every invocation starts with: quiet output and
// overwrite of the target file.
func BaseArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error", "-y"}
}

func tail(text string, lines int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, " | ")
}
