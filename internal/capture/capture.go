// Package capture defines the recorder collaborator contract and the segment
// naming rules shared with it. The recorder itself runs as a separate process.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	segmentPrefix   = "video_"
	segmentExt      = ".mp4"
	repairedSuffix  = "_repaired"
	timestampLayout = "20060102_150405"
)

// Request describes one recording invocation.
type Request struct {
	Device      string
	Resolution  string
	FPS         int
	Duration    time.Duration
	OverlayText bool
}

// Recorder writes one segment and returns its path. Implementations must stop
// the recording process gracefully when ctx is cancelled.
type Recorder interface {
	StartCapture(ctx context.Context, req Request) (string, error)
}

// SegmentName returns the file name for a segment captured at t.
func SegmentName(t time.Time) string {
	return segmentPrefix + t.Format(timestampLayout) + segmentExt
}

// CapturedAt parses the capture time embedded in a segment file name.
func CapturedAt(name string) (time.Time, error) {
	base := filepath.Base(name)
	if !IsSegment(base) {
		return time.Time{}, fmt.Errorf("%q is not a segment file name", base)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, segmentPrefix), segmentExt)
	return time.ParseInLocation(timestampLayout, stamp, time.Local)
}

// IsSegment reports whether name is a raw segment. Repaired copies are not.
func IsSegment(name string) bool {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, segmentPrefix) || !strings.HasSuffix(base, segmentExt) {
		return false
	}
	return !IsRepaired(base)
}

// IsRepaired reports whether name is a repaired copy of a segment.
func IsRepaired(name string) bool {
	return strings.HasSuffix(strings.TrimSuffix(filepath.Base(name), segmentExt), repairedSuffix)
}

// RepairedPath returns the path a repaired copy of segment is written to.
func RepairedPath(segment string) string {
	ext := filepath.Ext(segment)
	return strings.TrimSuffix(segment, ext) + repairedSuffix + ext
}

// ListSegments returns the raw segments in dir in capture order. The embedded
// timestamp sorts lexically, so name order is capture order.
func ListSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSegment(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
