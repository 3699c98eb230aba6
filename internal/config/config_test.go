package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"watcher/internal/config"
)

func clearWatcherEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "FPS", "RESOLUTION", "DURATION",
		"CAMERA_DEVICE", "MAX_FILE_SIZE_MB", "PERSON_DETECT_CONFIDENCE",
		"PERSON_DETECT_COOLDOWN", "PERSON_DETECT_MAX_AGE_HOURS", "ALERT_DELAY_SECONDS",
		"ALERT_BATCH_SIZE", "ALERT_BATCH_TIMEOUT_SECONDS", "PERSON_DETECT_ENABLED", "WATCHER_LANG",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearWatcherEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantSegments := filepath.Join(tempHome, ".local", "share", "watcher", "videos")
	if cfg.Paths.SegmentsDir != wantSegments {
		t.Fatalf("unexpected segments dir: got %q want %q", cfg.Paths.SegmentsDir, wantSegments)
	}
	if cfg.Capture.FPS != 30 || cfg.Capture.Resolution != "1280x720" || cfg.Capture.DurationSeconds != 55 {
		t.Fatalf("unexpected capture defaults: %+v", cfg.Capture)
	}
	if cfg.Capture.CameraDevice != "auto" {
		t.Fatalf("unexpected camera device: %q", cfg.Capture.CameraDevice)
	}
	if cfg.BudgetBytes() != 50*1024*1024 {
		t.Fatalf("unexpected budget: %d", cfg.BudgetBytes())
	}
	if cfg.Detection.Enabled {
		t.Fatal("expected detection disabled by default")
	}
	if cfg.Detection.ConfidenceThreshold != 0.5 {
		t.Fatalf("unexpected confidence: %v", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Alerts.CooldownSeconds != 10 || cfg.Alerts.DelaySeconds != 2 || cfg.Alerts.BatchSize != 10 || cfg.Alerts.BatchTimeoutSeconds != 60 {
		t.Fatalf("unexpected alert defaults: %+v", cfg.Alerts)
	}
	if cfg.Delivery.VideoTimeoutSeconds != 300 || cfg.Delivery.PhotoTimeoutSeconds != 30 {
		t.Fatalf("unexpected delivery timeouts: %+v", cfg.Delivery)
	}
	if cfg.DeliveryConfigured() {
		t.Fatal("expected delivery to be unconfigured without credentials")
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearWatcherEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	payload := []byte(`
[delivery]
bot_token = "file-token"
chat_id = "file-chat"
max_file_size_mb = 40

[alerts]
cooldown_seconds = 30
`)
	if err := os.WriteFile(cfgPath, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("MAX_FILE_SIZE_MB", "20")
	t.Setenv("PERSON_DETECT_CONFIDENCE", "0.7")
	t.Setenv("PERSON_DETECT_ENABLED", "true")
	t.Setenv("WATCHER_LANG", "RU")

	cfg, _, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Delivery.BotToken != "env-token" {
		t.Fatalf("expected env token to win, got %q", cfg.Delivery.BotToken)
	}
	if cfg.Delivery.ChatID != "file-chat" {
		t.Fatalf("expected chat id from file, got %q", cfg.Delivery.ChatID)
	}
	if cfg.Delivery.MaxFileSizeMB != 20 {
		t.Fatalf("expected budget from env, got %d", cfg.Delivery.MaxFileSizeMB)
	}
	if cfg.Alerts.CooldownSeconds != 30 {
		t.Fatalf("expected cooldown from file, got %d", cfg.Alerts.CooldownSeconds)
	}
	if cfg.Detection.ConfidenceThreshold != 0.7 || !cfg.Detection.Enabled {
		t.Fatalf("unexpected detection overrides: %+v", cfg.Detection)
	}
	if cfg.Notifications.Language != "ru" {
		t.Fatalf("expected normalized language, got %q", cfg.Notifications.Language)
	}
	if !cfg.DeliveryConfigured() {
		t.Fatal("expected delivery configured")
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ALERT_BATCH_SIZE", "ten")

	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "ALERT_BATCH_SIZE") {
		t.Fatalf("expected ALERT_BATCH_SIZE error, got %v", err)
	}
}

func TestLoadCustomPathWithTildeExpansion(t *testing.T) {
	clearWatcherEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	customPath := filepath.Join(tempHome, "configs", "watcher.toml")
	if err := os.MkdirAll(filepath.Dir(customPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgValues := config.Default()
	cfgValues.Paths.SegmentsDir = "~/segments"
	cfgValues.Paths.WorkDir = "~/work"
	cfgValues.Logging.Format = "JSON"
	data, err := toml.Marshal(cfgValues)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(customPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("~/configs/watcher.toml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected custom config to exist")
	}
	if resolved != customPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, customPath)
	}
	if cfg.Paths.SegmentsDir != filepath.Join(tempHome, "segments") {
		t.Fatalf("unexpected segments dir: %q", cfg.Paths.SegmentsDir)
	}
	if cfg.LockPath() != filepath.Join(tempHome, "work", "watcher.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"budget", func(c *config.Config) { c.Delivery.MaxFileSizeMB = 0 }, "delivery.max_file_size_mb"},
		{"confidence", func(c *config.Config) { c.Detection.ConfidenceThreshold = 1.5 }, "detection.confidence_threshold"},
		{"batch size", func(c *config.Config) { c.Alerts.BatchSize = 0 }, "alerts.batch_size"},
		{"cooldown", func(c *config.Config) { c.Alerts.CooldownSeconds = -1 }, "alerts.cooldown_seconds"},
		{"resolution", func(c *config.Config) { c.Capture.Resolution = "720p" }, "capture.resolution"},
		{"language", func(c *config.Config) { c.Notifications.Language = "de" }, "notifications.language"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesEachPath(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SegmentsDir = filepath.Join(base, "videos")
	cfg.Paths.WorkDir = filepath.Join(base, "merged")
	cfg.Paths.ScreenshotsDir = filepath.Join(base, "shots")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.SegmentsDir, cfg.Paths.WorkDir, cfg.Paths.ScreenshotsDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Daemon.IntervalSeconds != 3600 {
		t.Fatalf("unexpected daemon interval: %d", cfg.Daemon.IntervalSeconds)
	}
}
