package detection

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"watcher/internal/services"
	"watcher/internal/testsupport"
)

func TestSamplePointsOnePerInterval(t *testing.T) {
	got := SamplePoints(30, 300, 3*time.Second)
	want := []SamplePoint{
		{Index: 0, Timestamp: 0},
		{Index: 90, Timestamp: 3},
		{Index: 180, Timestamp: 6},
		{Index: 270, Timestamp: 9},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sample points mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleStepMinimumOne(t *testing.T) {
	if got := SampleStep(0.1, time.Second); got != 1 {
		t.Fatalf("expected step 1, got %d", got)
	}
	if got := SampleStep(29.97, 3*time.Second); got != 90 {
		t.Fatalf("expected rounded step 90, got %d", got)
	}
}

func TestSamplePointsEmptyForUnknownRate(t *testing.T) {
	if SamplePoints(0, 300, time.Second) != nil || SamplePoints(30, 0, time.Second) != nil {
		t.Fatal("expected no points without frame rate or frames")
	}
}

func TestExtractPipesSingleFrame(t *testing.T) {
	media := testsupport.NewMedia()
	sampler := NewSampler(media)
	data, err := sampler.Extract(context.Background(), "/videos/a.mp4", 4.5)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected frame bytes")
	}
	calls := media.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(calls))
	}
	call := calls[0]
	ss := slices.Index(call, "-ss")
	if ss < 0 || call[ss+1] != "4.500" {
		t.Fatalf("expected -ss 4.500 in %v", call)
	}
	if call[len(call)-1] != "pipe:1" || !slices.Contains(call, "mjpeg") {
		t.Fatalf("expected mjpeg pipe output in %v", call)
	}
}

func TestExtractFailureIsExternalTool(t *testing.T) {
	media := testsupport.NewMedia()
	media.Fail = func([]string) error { return errors.New("exit status 1") }
	_, err := NewSampler(media).Extract(context.Background(), "/videos/a.mp4", 0)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
