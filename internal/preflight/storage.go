package preflight

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
)

// Storage describes the filesystem holding a directory.
type Storage struct {
	Path        string
	TotalBytes  uint64
	FreeBytes   uint64
	FreePercent float64
}

// usage is swapped in tests.
var usage = disk.UsageWithContext

// MeasureStorage reports free space on the filesystem containing path.
func MeasureStorage(ctx context.Context, path string) (Storage, error) {
	stat, err := usage(ctx, path)
	if err != nil {
		return Storage{}, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	st := Storage{Path: path, TotalBytes: stat.Total, FreeBytes: stat.Free}
	if stat.Total > 0 {
		st.FreePercent = float64(stat.Free) / float64(stat.Total) * 100
	}
	return st, nil
}

// CheckFreeSpace reports whether the filesystem holding path has at least
// minPercent free. The measured storage is returned for notification text.
func CheckFreeSpace(ctx context.Context, path string, minPercent float64) (bool, Storage, error) {
	st, err := MeasureStorage(ctx, path)
	if err != nil {
		return false, Storage{}, err
	}
	return st.FreePercent >= minPercent, st, nil
}

// CheckStorage is the Result form of CheckFreeSpace.
func CheckStorage(ctx context.Context, name, path string, minPercent float64) Result {
	ok, st, err := CheckFreeSpace(ctx, path, minPercent)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%.1f%% free (%s of %s)", st.FreePercent, humanize.IBytes(st.FreeBytes), humanize.IBytes(st.TotalBytes))
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s, below %.0f%%", detail, minPercent)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
