package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Size returns the size of the regular file at path.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NonEmpty reports whether path is a regular file with at least one byte.
// Stages use it to confirm an output was actually written before acting on it.
func NonEmpty(path string) bool {
	size, err := Size(path)
	return err == nil && size > 0
}

// Remove deletes path, treating an already-missing file as success.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MegaBytes converts a byte count to binary megabytes.
func MegaBytes(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
