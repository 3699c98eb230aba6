package runstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"watcher/internal/runstore"
	"watcher/internal/testsupport"
)

func TestBeginFinishRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRunStore(t, cfg)
	ctx := context.Background()

	started := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Begin(ctx, "id-1", "20240201_100000", started); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	running, err := store.Get(ctx, "id-1")
	if err != nil || running == nil {
		t.Fatalf("Get: %v %v", running, err)
	}
	if running.State != runstore.StateRunning || !running.FinishedAt.IsZero() || running.Duration() != 0 {
		t.Fatalf("unexpected running record %+v", running)
	}

	finished := runstore.Run{
		ID:            "id-1",
		Label:         "20240201_100000",
		State:         "done",
		StartedAt:     started,
		FinishedAt:    started.Add(90 * time.Second),
		Segments:      3,
		Rejected:      1,
		ArtifactBytes: 52_428_800,
		Emergency:     true,
		AlertsSent:    2,
	}
	if err := store.Finish(ctx, finished); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err := store.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(finished, *got); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}
	if got.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %v", got.Duration())
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := testsupport.MustOpenRunStore(t, testsupport.NewConfig(t))
	if err := store.Finish(context.Background(), runstore.Run{ID: "missing", State: "done"}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRecentNewestFirstAndPrune(t *testing.T) {
	store := testsupport.MustOpenRunStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.Begin(ctx, id, id, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	ids := []string{runs[0].ID, runs[1].ID}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	last, err := store.Last(ctx)
	if err != nil || last == nil || last.ID != "c" {
		t.Fatalf("Last: %+v %v", last, err)
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil || removed != 2 {
		t.Fatalf("Prune: %d %v", removed, err)
	}
	if gone, _ := store.Get(ctx, "a"); gone != nil {
		t.Fatal("expected oldest run pruned")
	}
}

func TestLastOnEmptyHistory(t *testing.T) {
	store := testsupport.MustOpenRunStore(t, testsupport.NewConfig(t))
	last, err := store.Last(context.Background())
	if err != nil || last != nil {
		t.Fatalf("expected nil run, got %+v %v", last, err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runstore.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Begin(context.Background(), "x", "x", time.Now()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = store.Close()

	reopened, err := runstore.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if run, err := reopened.Get(context.Background(), "x"); err != nil || run == nil {
		t.Fatalf("expected run after reopen, got %+v %v", run, err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runstore.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := runstore.SetSchemaVersionForTest(store, 99); err != nil {
		t.Fatalf("set version: %v", err)
	}
	_ = store.Close()

	_, err = runstore.OpenPath(path)
	if !errors.Is(err, runstore.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
