package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"watcher/internal/compress"
	"watcher/internal/pipeline"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Pipeline run", statusInfo, "Idle", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Pipeline run:", "[INFO] Idle")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTableAlignsNumericColumns(t *testing.T) {
	rendered := renderTable([]string{"Label", "Segments"}, [][]string{{"20261016_120000", "3"}}, 1)
	requireContains(t, rendered, "20261016_120000")
	requireContains(t, rendered, "Segments")
	requireContains(t, rendered, "╭")
}

func TestSummarizeOutcome(t *testing.T) {
	out := pipeline.Outcome{
		Label:     "20261016_120000",
		State:     pipeline.StateDone,
		Segments:  3,
		Rejected:  []string{"bad.mp4"},
		Delivered: compress.Artifact{Path: "/tmp/compressed.mp4", SizeBytes: 1536 * 1024},
		Emergency: true,
	}
	got := summarizeOutcome(out)
	want := "Run 20261016_120000: done (3 segments, 1 rejected, 1.5 MiB after emergency re-encode delivered)"
	if got != want {
		t.Fatalf("summarizeOutcome\n got: %q\nwant: %q", got, want)
	}

	failed := pipeline.Outcome{Label: "x", State: pipeline.StateAbortedPreserving, Segments: 2, Err: errors.New("boom")}
	if got := summarizeOutcome(failed); got != "Run x: aborted_preserving (2 segments)" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("a long failure message", 8); len([]rune(got)) > 8 {
		t.Fatalf("truncate did not bound width: %q", got)
	}
}
