package detection

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"watcher/internal/fileutil"
	"watcher/internal/logging"
)

// Janitor removes screenshots whose delivery never succeeded once they exceed
// the maximum age.
type Janitor struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewJanitor constructs a Janitor for dir. A nil now uses time.Now.
func NewJanitor(dir string, maxAge time.Duration, now func() time.Time, logger *slog.Logger) *Janitor {
	if now == nil {
		now = time.Now
	}
	return &Janitor{dir: dir, maxAge: maxAge, now: now, logger: logging.NewComponentLogger(logger, "janitor")}
}

// Pending lists retained screenshots, oldest name first.
func (j *Janitor) Pending() ([]string, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !isScreenshot(entry.Name()) {
			continue
		}
		out = append(out, filepath.Join(j.dir, entry.Name()))
	}
	slices.Sort(out)
	return out, nil
}

// Clean deletes screenshots older than the maximum age and returns how many
// were removed. Individual removal failures are logged and skipped.
func (j *Janitor) Clean(ctx context.Context) (int, error) {
	logger := logging.WithContext(ctx, j.logger)
	pending, err := j.Pending()
	if err != nil {
		return 0, err
	}
	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, path := range pending {
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := fileutil.Remove(path); err != nil {
			logging.WarnWithContext(logger, "remove old screenshot failed", "screenshot_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "screenshot retained until next cleanup"),
			)
			continue
		}
		removed++
		logger.Debug("removed old screenshot", logging.String("path", path))
	}
	if removed > 0 {
		logger.Info("screenshot cleanup finished", logging.Int("removed", removed), logging.Duration("max_age", j.maxAge))
	}
	return removed, nil
}

func isScreenshot(name string) bool {
	return strings.HasPrefix(name, "person_") && strings.EqualFold(filepath.Ext(name), ".jpg")
}
