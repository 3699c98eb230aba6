package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeDelivery()
	if err := c.normalizeDetection(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SegmentsDir, err = expandPath(c.Paths.SegmentsDir); err != nil {
		return fmt.Errorf("paths.segments_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.ScreenshotsDir, err = expandPath(c.Paths.ScreenshotsDir); err != nil {
		return fmt.Errorf("paths.screenshots_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Resolution = strings.ToLower(strings.TrimSpace(c.Capture.Resolution))
	if c.Capture.Resolution == "" {
		c.Capture.Resolution = defaultResolution
	}
	c.Capture.CameraDevice = strings.TrimSpace(c.Capture.CameraDevice)
	if c.Capture.CameraDevice == "" {
		c.Capture.CameraDevice = defaultCameraDevice
	}
}

func (c *Config) normalizeDelivery() {
	c.Delivery.BotToken = strings.TrimSpace(c.Delivery.BotToken)
	c.Delivery.ChatID = strings.TrimSpace(c.Delivery.ChatID)
	c.Delivery.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Delivery.APIBaseURL), "/")
	if c.Delivery.APIBaseURL == "" {
		c.Delivery.APIBaseURL = defaultAPIBaseURL
	}
	if c.Delivery.VideoTimeoutSeconds <= 0 {
		c.Delivery.VideoTimeoutSeconds = defaultVideoTimeoutSeconds
	}
	if c.Delivery.PhotoTimeoutSeconds <= 0 {
		c.Delivery.PhotoTimeoutSeconds = defaultPhotoTimeoutSeconds
	}
}

func (c *Config) normalizeDetection() error {
	c.Detection.WorkerCommand = strings.TrimSpace(c.Detection.WorkerCommand)
	if c.Detection.WorkerCommand == "" {
		c.Detection.WorkerCommand = defaultWorkerCommand
	}
	if strings.TrimSpace(c.Detection.ModelPath) == "" {
		c.Detection.ModelPath = defaultModelPath
	}
	var err error
	if c.Detection.ModelPath, err = expandPath(c.Detection.ModelPath); err != nil {
		return fmt.Errorf("detection.model_path: %w", err)
	}
	if c.Detection.SampleIntervalSeconds <= 0 {
		c.Detection.SampleIntervalSeconds = defaultSampleIntervalSeconds
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.LargeFileWarningMB <= 0 {
		c.Notifications.LargeFileWarningMB = defaultLargeFileWarningMB
	}
	c.Notifications.Language = strings.ToLower(strings.TrimSpace(c.Notifications.Language))
	if c.Notifications.Language == "" {
		c.Notifications.Language = defaultLanguage
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
