package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"watcher/internal/delivery"
	"watcher/internal/locale"
	"watcher/internal/logging"
	"watcher/internal/pipeline"
	"watcher/internal/testsupport"
	"watcher/internal/timeutil"
)

type fakeAlbumSender struct {
	photos []string
	albums [][]delivery.MediaItem
	failAt int
}

func (f *fakeAlbumSender) SendPhoto(_ context.Context, path, caption string) error {
	if f.failAt > 0 && len(f.photos)+len(f.albums)+1 == f.failAt {
		return errors.New("telegram down")
	}
	f.photos = append(f.photos, filepath.Base(path)+"|"+caption)
	return nil
}

func (f *fakeAlbumSender) SendMediaGroup(_ context.Context, items []delivery.MediaItem) error {
	if f.failAt > 0 && len(f.photos)+len(f.albums)+1 == f.failAt {
		return errors.New("telegram down")
	}
	f.albums = append(f.albums, items)
	return nil
}

func writeScreenshots(t *testing.T, dir string, n int) []string {
	t.Helper()
	var paths []string
	for i := range n {
		path := filepath.Join(dir, "person_20261016_12000"+string(rune('0'+i))+".jpg")
		testsupport.WriteFile(t, path, 128)
		paths = append(paths, path)
	}
	return paths
}

func TestJanitorRemovesOldScreenshots(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.cfg.Paths.ScreenshotsDir
	old := filepath.Join(dir, "person_20261014_090000.jpg")
	fresh := filepath.Join(dir, "person_20261016_115900.jpg")
	other := filepath.Join(dir, "notes.txt")
	testsupport.WriteFile(t, old, 64)
	testsupport.WriteFile(t, fresh, 64)
	testsupport.WriteFile(t, other, 64)
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"janitor"}, env.configPath)
	if err != nil {
		t.Fatalf("janitor: %v", err)
	}
	requireContains(t, out, "Removed 1 screenshots")
	testsupport.AssertMissing(t, old)
	testsupport.AssertExists(t, fresh, other)
}

func TestSendScreenshotsGroupsAlbums(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Alerts.BatchSize = 2
	cfg.Alerts.BatchTimeoutSeconds = 60
	paths := writeScreenshots(t, cfg.Paths.ScreenshotsDir, 5)
	sender := &fakeAlbumSender{}
	tr := locale.New("en")
	clock := timeutil.NewMockClock(time.Date(2026, 10, 16, 12, 0, 0, 0, time.Local))

	sent, err := sendScreenshots(context.Background(), cfg, sender, clock, tr, paths, logging.NewNop())
	if err != nil {
		t.Fatalf("sendScreenshots: %v", err)
	}
	if sent != 5 {
		t.Fatalf("sent = %d, want 5", sent)
	}

	sizes := make([]int, len(sender.albums))
	for i, album := range sender.albums {
		sizes[i] = len(album)
	}
	if diff := cmp.Diff([]int{2, 2}, sizes); diff != "" {
		t.Fatalf("album sizes mismatch (-want +got):\n%s", diff)
	}
	caption := tr.Translate(locale.PendingScreenshots, 5)
	if sender.albums[0][0].Caption != caption {
		t.Fatalf("first album caption = %q, want %q", sender.albums[0][0].Caption, caption)
	}
	if sender.albums[1][0].Caption != "" {
		t.Fatalf("caption repeated on second album: %q", sender.albums[1][0].Caption)
	}
	if diff := cmp.Diff([]string{filepath.Base(paths[4]) + "|"}, sender.photos); diff != "" {
		t.Fatalf("single photo mismatch (-want +got):\n%s", diff)
	}
	if got := testsupport.ListDir(t, cfg.Paths.ScreenshotsDir); len(got) != 0 {
		t.Fatalf("expected sent screenshots removed, found %v", got)
	}
	if diff := cmp.Diff([]time.Duration{time.Minute, time.Minute}, clock.Sleeps()); diff != "" {
		t.Fatalf("pauses between albums mismatch (-want +got):\n%s", diff)
	}
}

func TestSendScreenshotsStopsOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Alerts.BatchSize = 2
	cfg.Alerts.BatchTimeoutSeconds = 30
	paths := writeScreenshots(t, cfg.Paths.ScreenshotsDir, 4)
	sender := &fakeAlbumSender{failAt: 2}
	clock := timeutil.NewMockClock(time.Date(2026, 10, 16, 12, 0, 0, 0, time.Local))

	sent, err := sendScreenshots(context.Background(), cfg, sender, clock, locale.New("en"), paths, logging.NewNop())
	if err == nil {
		t.Fatal("expected failure from second album")
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	testsupport.AssertMissing(t, paths[0], paths[1])
	testsupport.AssertExists(t, paths[2], paths[3])
	if diff := cmp.Diff([]time.Duration{30 * time.Second}, clock.Sleeps()); diff != "" {
		t.Fatalf("pause mismatch (-want +got):\n%s", diff)
	}
}

func TestJanitorRefusesWhileRunHoldsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	shot := filepath.Join(env.cfg.Paths.ScreenshotsDir, "person_20261014_090000.jpg")
	testsupport.WriteFile(t, shot, 64)
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(shot, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	lock, err := pipeline.AcquireRunLock(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, []string{"janitor", "--send-pending"}, env.configPath)
	if !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	testsupport.AssertExists(t, shot)
}
