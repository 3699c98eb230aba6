package preflight

import (
	"context"

	"watcher/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory, storage, and detection checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Segments directory", cfg.Paths.SegmentsDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Screenshots directory", cfg.Paths.ScreenshotsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStorage(ctx, "Free space", cfg.Paths.SegmentsDir, cfg.Notifications.MinFreePercent),
		CheckDetection(cfg),
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
