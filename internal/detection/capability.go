package detection

import (
	"errors"
	"fmt"
	"os/exec"

	"watcher/internal/config"
	"watcher/internal/fileutil"
)

// Capability records whether the sweep can run. It is resolved once at
// startup and threaded through the pipeline.
type Capability struct {
	Available bool
	Reason    string
}

var lookPath = exec.LookPath

// ResolveCapability checks the feature flag, the worker command, and the
// model file, in that order.
func ResolveCapability(cfg config.Detection) Capability {
	if !cfg.Enabled {
		return Capability{Reason: "detection disabled in configuration"}
	}
	if _, err := lookPath(cfg.WorkerCommand); err != nil {
		return Capability{Reason: fmt.Sprintf("detector worker %q not found on PATH", cfg.WorkerCommand)}
	}
	if !fileutil.NonEmpty(cfg.ModelPath) {
		return Capability{Reason: fmt.Sprintf("model file %q missing or empty", cfg.ModelPath)}
	}
	return Capability{Available: true}
}

func (c Capability) String() string {
	if c.Available {
		return "available"
	}
	return "unavailable: " + c.Reason
}

// ErrUnavailable is returned when a sweep is requested without capability.
var ErrUnavailable = errors.New("detection unavailable")

// Require returns ErrUnavailable with the capability's reason when the sweep
// cannot run.
func (c Capability) Require() error {
	if c.Available {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, c.Reason)
}
