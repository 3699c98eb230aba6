package pipeline

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"watcher/internal/fileutil"
)

// ErrBusy is returned when another run holds the run lock.
var ErrBusy = errors.New("another pipeline run is in progress")

// AcquireRunLock takes the run lock at path without blocking. It returns ErrBusy
// when another process holds it.
func AcquireRunLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return lock, nil
}

// Locked reports whether a run currently holds the lock at path.
func Locked(path string) (bool, error) {
	if !fileutil.Exists(path) {
		return false, nil
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe run lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	return false, lock.Unlock()
}
