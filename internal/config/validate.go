package config

import (
	"errors"
	"fmt"
	"regexp"
)

var resolutionPattern = regexp.MustCompile(`^[0-9]+x[0-9]+$`)

// Validate ensures the configuration is usable. Telegram credentials are not
// required here; commands that deliver check DeliveryConfigured themselves.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateAlerts(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCapture() error {
	if c.Capture.FPS <= 0 {
		return errors.New("capture.fps must be positive")
	}
	if !resolutionPattern.MatchString(c.Capture.Resolution) {
		return fmt.Errorf("capture.resolution %q must look like WIDTHxHEIGHT", c.Capture.Resolution)
	}
	if c.Capture.DurationSeconds <= 0 {
		return errors.New("capture.duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if c.Delivery.MaxFileSizeMB <= 0 {
		return errors.New("delivery.max_file_size_mb must be positive")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return errors.New("detection.confidence_threshold must be between 0 and 1")
	}
	if c.Detection.ScreenshotMaxAgeHours <= 0 {
		return errors.New("detection.screenshot_max_age_hours must be positive")
	}
	return nil
}

func (c *Config) validateAlerts() error {
	if c.Alerts.CooldownSeconds < 0 {
		return errors.New("alerts.cooldown_seconds must be >= 0")
	}
	if c.Alerts.DelaySeconds < 0 {
		return errors.New("alerts.delay_seconds must be >= 0")
	}
	if c.Alerts.BatchSize <= 0 {
		return errors.New("alerts.batch_size must be positive")
	}
	if c.Alerts.BatchTimeoutSeconds < 0 {
		return errors.New("alerts.batch_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.MinFreePercent < 0 || c.Notifications.MinFreePercent > 100 {
		return errors.New("notifications.min_free_percent must be between 0 and 100")
	}
	switch c.Notifications.Language {
	case "en", "ru":
	default:
		return fmt.Errorf("notifications.language %q is not supported (use en or ru)", c.Notifications.Language)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.IntervalSeconds <= 0 {
		return errors.New("daemon.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
