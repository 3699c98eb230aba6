package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directories owned by the pipeline.
type Paths struct {
	SegmentsDir    string `toml:"segments_dir"`
	WorkDir        string `toml:"work_dir"`
	ScreenshotsDir string `toml:"screenshots_dir"`
	LogDir         string `toml:"log_dir"`
}

// Capture mirrors the recorder settings. The recorder itself runs outside
// this binary; the values are surfaced so both processes read one file.
type Capture struct {
	FPS             int    `toml:"fps"`
	Resolution      string `toml:"resolution"`
	DurationSeconds int    `toml:"duration_seconds"`
	CameraDevice    string `toml:"camera_device"`
	OverlayText     bool   `toml:"overlay_text"`
}

// Delivery contains configuration for the Telegram Bot API endpoint.
type Delivery struct {
	BotToken            string `toml:"bot_token"`
	ChatID              string `toml:"chat_id"`
	APIBaseURL          string `toml:"api_base_url"`
	MaxFileSizeMB       int    `toml:"max_file_size_mb"`
	VideoTimeoutSeconds int    `toml:"video_timeout_seconds"`
	PhotoTimeoutSeconds int    `toml:"photo_timeout_seconds"`
}

// Detection contains configuration for the post-delivery person sweep.
type Detection struct {
	Enabled bool `toml:"enabled"`
	// WorkerCommand is the detector process speaking the length-prefixed
	// msgpack protocol on stdin/stdout.
	WorkerCommand         string  `toml:"worker_command"`
	ModelPath             string  `toml:"model_path"`
	ConfidenceThreshold   float64 `toml:"confidence_threshold"`
	SampleIntervalSeconds int     `toml:"sample_interval_seconds"`
	ScreenshotMaxAgeHours int     `toml:"screenshot_max_age_hours"`
}

// Alerts contains the throttle policy applied to detection alerts.
type Alerts struct {
	CooldownSeconds     int `toml:"cooldown_seconds"`
	DelaySeconds        int `toml:"delay_seconds"`
	BatchSize           int `toml:"batch_size"`
	BatchTimeoutSeconds int `toml:"batch_timeout_seconds"`
}

// Notifications contains configuration for out-of-band operator messages.
type Notifications struct {
	Enabled            bool    `toml:"enabled"`
	NtfyTopic          string  `toml:"ntfy_topic"`
	RequestTimeout     int     `toml:"request_timeout"`
	MinFreePercent     float64 `toml:"min_free_percent"`
	LargeFileWarningMB int     `toml:"large_file_warning_mb"`
	Language           string  `toml:"language"`
}

// Daemon contains configuration for the scheduled run loop.
type Daemon struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Watcher.
//
// Configuration sections by subsystem:
//   - Paths: segment, work, screenshot, and log directories
//   - Capture: recorder settings shared with the capture process
//   - Delivery: Telegram bot credentials, size budget, upload timeouts
//   - Detection: person sweep feature flag, worker, thresholds
//   - Alerts: cooldown and batch backoff for detection alerts
//   - Notifications: operator messages and storage warnings
//   - Daemon: scheduled run interval
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Capture       Capture       `toml:"capture"`
	Delivery      Delivery      `toml:"delivery"`
	Detection     Detection     `toml:"detection"`
	Alerts        Alerts        `toml:"alerts"`
	Notifications Notifications `toml:"notifications"`
	Daemon        Daemon        `toml:"daemon"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/watcher/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded. The returned config has
// all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("watcher.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the segment, work, screenshot, and log
// directories. Each is created independently when absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SegmentsDir, c.Paths.WorkDir, c.Paths.ScreenshotsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BudgetBytes returns the delivery size budget in bytes.
func (c *Config) BudgetBytes() int64 {
	return int64(c.Delivery.MaxFileSizeMB) * 1024 * 1024
}

// FFmpegBinary returns the ffmpeg executable name used for every re-encode.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// DeliveryConfigured reports whether bot credentials are present.
func (c *Config) DeliveryConfigured() bool {
	return strings.TrimSpace(c.Delivery.BotToken) != "" && strings.TrimSpace(c.Delivery.ChatID) != ""
}

// LockPath returns the flock file that serializes pipeline runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "watcher.lock")
}

// RunStorePath returns the SQLite database holding run history.
func (c *Config) RunStorePath() string {
	return filepath.Join(c.Paths.LogDir, "runs.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
