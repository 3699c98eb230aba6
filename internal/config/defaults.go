package config

const (
	defaultSegmentsDir           = "~/.local/share/watcher/videos"
	defaultWorkDir               = "~/.local/share/watcher/merged"
	defaultScreenshotsDir        = "~/.local/share/watcher/screenshots"
	defaultLogDir                = "~/.local/share/watcher/logs"
	defaultFPS                   = 30
	defaultResolution            = "1280x720"
	defaultCaptureDuration       = 55
	defaultCameraDevice          = "auto"
	defaultAPIBaseURL            = "https://api.telegram.org"
	defaultMaxFileSizeMB         = 50
	defaultVideoTimeoutSeconds   = 300
	defaultPhotoTimeoutSeconds   = 30
	defaultWorkerCommand         = "watcher-detect"
	defaultModelPath             = "~/.local/share/watcher/models/yolov8n.onnx"
	defaultConfidenceThreshold   = 0.5
	defaultSampleIntervalSeconds = 3
	defaultScreenshotMaxAgeHours = 24
	defaultCooldownSeconds       = 10
	defaultAlertDelaySeconds     = 2
	defaultAlertBatchSize        = 10
	defaultBatchTimeoutSeconds   = 60
	defaultNotifyRequestTimeout  = 10
	defaultMinFreePercent        = 10
	defaultLargeFileWarningMB    = 50
	defaultLanguage              = "en"
	defaultDaemonInterval        = 3600
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SegmentsDir:    defaultSegmentsDir,
			WorkDir:        defaultWorkDir,
			ScreenshotsDir: defaultScreenshotsDir,
			LogDir:         defaultLogDir,
		},
		Capture: Capture{
			FPS:             defaultFPS,
			Resolution:      defaultResolution,
			DurationSeconds: defaultCaptureDuration,
			CameraDevice:    defaultCameraDevice,
			OverlayText:     true,
		},
		Delivery: Delivery{
			APIBaseURL:          defaultAPIBaseURL,
			MaxFileSizeMB:       defaultMaxFileSizeMB,
			VideoTimeoutSeconds: defaultVideoTimeoutSeconds,
			PhotoTimeoutSeconds: defaultPhotoTimeoutSeconds,
		},
		Detection: Detection{
			Enabled:               false,
			WorkerCommand:         defaultWorkerCommand,
			ModelPath:             defaultModelPath,
			ConfidenceThreshold:   defaultConfidenceThreshold,
			SampleIntervalSeconds: defaultSampleIntervalSeconds,
			ScreenshotMaxAgeHours: defaultScreenshotMaxAgeHours,
		},
		Alerts: Alerts{
			CooldownSeconds:     defaultCooldownSeconds,
			DelaySeconds:        defaultAlertDelaySeconds,
			BatchSize:           defaultAlertBatchSize,
			BatchTimeoutSeconds: defaultBatchTimeoutSeconds,
		},
		Notifications: Notifications{
			Enabled:            true,
			RequestTimeout:     defaultNotifyRequestTimeout,
			MinFreePercent:     defaultMinFreePercent,
			LargeFileWarningMB: defaultLargeFileWarningMB,
			Language:           defaultLanguage,
		},
		Daemon: Daemon{
			IntervalSeconds: defaultDaemonInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
