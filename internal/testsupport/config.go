package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"watcher/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The directories are created so stages can write into them immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SegmentsDir = filepath.Join(base, "videos")
	cfgVal.Paths.WorkDir = filepath.Join(base, "merged")
	cfgVal.Paths.ScreenshotsDir = filepath.Join(base, "screenshots")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Delivery.BotToken = "123:test"
	cfgVal.Delivery.ChatID = "42"
	cfgVal.Alerts.DelaySeconds = 0
	cfgVal.Detection.ModelPath = filepath.Join(base, "models", "person.onnx")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBudgetMB sets the delivery size budget.
func WithBudgetMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.MaxFileSizeMB = mb
	}
}

// WithAPIBaseURL points delivery at a test server.
func WithAPIBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.APIBaseURL = url
	}
}

// WithDetection enables the person sweep.
func WithDetection() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.Enabled = true
	}
}

// WithoutCredentials clears the Telegram bot credentials.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.BotToken = ""
		b.cfg.Delivery.ChatID = ""
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SegmentsDir)
}
