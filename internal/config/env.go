package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv overlays environment variables on top of file values. A variable
// that is set but empty is ignored.
func (c *Config) applyEnv() error {
	stringVars := []struct {
		name   string
		target *string
	}{
		{"TELEGRAM_BOT_TOKEN", &c.Delivery.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Delivery.ChatID},
		{"RESOLUTION", &c.Capture.Resolution},
		{"CAMERA_DEVICE", &c.Capture.CameraDevice},
		{"WATCHER_LANG", &c.Notifications.Language},
	}
	for _, v := range stringVars {
		if value, ok := lookupEnv(v.name); ok {
			*v.target = value
		}
	}

	intVars := []struct {
		name   string
		target *int
	}{
		{"FPS", &c.Capture.FPS},
		{"DURATION", &c.Capture.DurationSeconds},
		{"MAX_FILE_SIZE_MB", &c.Delivery.MaxFileSizeMB},
		{"PERSON_DETECT_COOLDOWN", &c.Alerts.CooldownSeconds},
		{"PERSON_DETECT_MAX_AGE_HOURS", &c.Detection.ScreenshotMaxAgeHours},
		{"ALERT_DELAY_SECONDS", &c.Alerts.DelaySeconds},
		{"ALERT_BATCH_SIZE", &c.Alerts.BatchSize},
		{"ALERT_BATCH_TIMEOUT_SECONDS", &c.Alerts.BatchTimeoutSeconds},
	}
	for _, v := range intVars {
		value, ok := lookupEnv(v.name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", v.name, value)
		}
		*v.target = parsed
	}

	if value, ok := lookupEnv("PERSON_DETECT_CONFIDENCE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("PERSON_DETECT_CONFIDENCE: invalid number %q", value)
		}
		c.Detection.ConfidenceThreshold = parsed
	}
	if value, ok := lookupEnv("PERSON_DETECT_ENABLED"); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("PERSON_DETECT_ENABLED: invalid boolean %q", value)
		}
		c.Detection.Enabled = parsed
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
