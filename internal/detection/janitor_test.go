package detection

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"watcher/internal/logging"
	"watcher/internal/testsupport"
)

func TestJanitorRemovesOnlyOldScreenshots(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, "person_a_t1.0s_20240429_100000.jpg")
	fresh := filepath.Join(dir, "person_b_t2.0s_20240501_110000.jpg")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, other} {
		testsupport.WriteFile(t, path, 10)
	}
	if err := os.Chtimes(old, now.Add(-48*time.Hour), now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(fresh, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(other, now.Add(-72*time.Hour), now.Add(-72*time.Hour)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	janitor := NewJanitor(dir, 24*time.Hour, func() time.Time { return now }, logging.NewNop())
	removed, err := janitor.Clean(context.Background())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	testsupport.AssertMissing(t, old)
	testsupport.AssertExists(t, fresh, other)
}

func TestJanitorPendingSorted(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "person_b.jpg")
	a := filepath.Join(dir, "person_a.jpg")
	testsupport.WriteFile(t, b, 1)
	testsupport.WriteFile(t, a, 1)
	pending, err := NewJanitor(dir, time.Hour, nil, nil).Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if diff := cmp.Diff([]string{a, b}, pending); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestJanitorMissingDirectory(t *testing.T) {
	janitor := NewJanitor(filepath.Join(t.TempDir(), "absent"), time.Hour, nil, nil)
	removed, err := janitor.Clean(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op, got %d %v", removed, err)
	}
}
