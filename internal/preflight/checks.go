package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"watcher/internal/config"
	"watcher/internal/deps"
	"watcher/internal/detection"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries cfg needs. The run command
// and "watcher check" share this list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

// CheckDetection reports the resolved detection capability. A disabled
// feature passes.
func CheckDetection(cfg *config.Config) Result {
	const name = "Person detection"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Detection.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	capability := detection.ResolveCapability(cfg.Detection)
	if !capability.Available {
		return Result{Name: name, Detail: capability.Reason}
	}
	return Result{Name: name, Passed: true, Detail: "Available"}
}
