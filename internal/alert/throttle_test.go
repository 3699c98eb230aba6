package alert

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"watcher/internal/logging"
	"watcher/internal/timeutil"
)

type fakeSender struct {
	sent []string
	fail map[string]bool
}

func (f *fakeSender) SendPhoto(_ context.Context, path, _ string) error {
	f.sent = append(f.sent, path)
	if f.fail[path] {
		return errors.New("status 500")
	}
	return nil
}

func renderAt(ts float64) RenderFunc {
	return func() (Alert, error) {
		return Alert{Path: fmt.Sprintf("shot_%.1f.jpg", ts)}, nil
	}
}

func newThrottle(policy Policy, sender PhotoSender) (*Throttle, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewThrottle(policy, sender, clock, logging.NewNop()), clock
}

func TestCooldownSuppressesSecondDetection(t *testing.T) {
	sender := &fakeSender{}
	throttle, _ := newThrottle(Policy{Cooldown: 10 * time.Second, BatchSize: 10}, sender)
	ctx := context.Background()

	first, _, err := throttle.Consider(ctx, 5.0, renderAt(5.0))
	if err != nil || first != Delivered {
		t.Fatalf("first detection: %v %v", first, err)
	}
	rendered := false
	second, _, err := throttle.Consider(ctx, 8.0, func() (Alert, error) {
		rendered = true
		return Alert{Path: "x"}, nil
	})
	if err != nil || second != Suppressed {
		t.Fatalf("second detection: %v %v", second, err)
	}
	if rendered {
		t.Fatal("suppressed detection must not render an image")
	}
	if diff := cmp.Diff([]string{"shot_5.0.jpg"}, sender.sent); diff != "" {
		t.Fatalf("sent mismatch (-want +got):\n%s", diff)
	}
	if throttle.Stats() != (Stats{Delivered: 1, Suppressed: 1}) {
		t.Fatalf("unexpected stats %+v", throttle.Stats())
	}
}

func TestCooldownElapsedAllowsAlert(t *testing.T) {
	sender := &fakeSender{}
	throttle, _ := newThrottle(Policy{Cooldown: 10 * time.Second, BatchSize: 10}, sender)
	ctx := context.Background()

	for _, ts := range []float64{0, 9.9, 10, 21} {
		_, _, _ = throttle.Consider(ctx, ts, renderAt(ts))
	}
	want := []string{"shot_0.0.jpg", "shot_10.0.jpg", "shot_21.0.jpg"}
	if diff := cmp.Diff(want, sender.sent); diff != "" {
		t.Fatalf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedDeliveryDoesNotAdvanceCooldown(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"shot_5.0.jpg": true}}
	throttle, clock := newThrottle(Policy{Cooldown: 10 * time.Second, Delay: 2 * time.Second, BatchSize: 10}, sender)
	ctx := context.Background()

	outcome, shot, err := throttle.Consider(ctx, 5.0, renderAt(5.0))
	if err != nil || outcome != Failed || shot.Path != "shot_5.0.jpg" {
		t.Fatalf("expected failed outcome with retained image, got %v %+v %v", outcome, shot, err)
	}
	if throttle.State().HasAlerted {
		t.Fatal("failed delivery must not mark an alert")
	}

	outcome, _, _ = throttle.Consider(ctx, 8.0, renderAt(8.0))
	if outcome != Delivered {
		t.Fatalf("expected retry at 8.0 to deliver, got %v", outcome)
	}
	if throttle.State().LastAlertTimestamp != 8.0 {
		t.Fatalf("unexpected last alert timestamp %v", throttle.State().LastAlertTimestamp)
	}
	if diff := cmp.Diff([]time.Duration{2 * time.Second, 2 * time.Second}, clock.Sleeps()); diff != "" {
		t.Fatalf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchTimeoutAfterBatchSizeAlerts(t *testing.T) {
	sender := &fakeSender{}
	policy := Policy{Cooldown: time.Second, Delay: 2 * time.Second, BatchSize: 3, BatchTimeout: time.Minute}
	throttle, clock := newThrottle(policy, sender)
	ctx := context.Background()

	for i := range 4 {
		ts := float64(i * 5)
		if outcome, _, err := throttle.Consider(ctx, ts, renderAt(ts)); outcome != Delivered || err != nil {
			t.Fatalf("alert %d: %v %v", i, outcome, err)
		}
	}

	want := []time.Duration{2 * time.Second, 2 * time.Second, time.Minute, 2 * time.Second}
	if diff := cmp.Diff(want, clock.Sleeps()); diff != "" {
		t.Fatalf("sleeps mismatch (-want +got):\n%s", diff)
	}
	if throttle.State().BatchCount != 1 {
		t.Fatalf("expected batch count reset then incremented, got %d", throttle.State().BatchCount)
	}
}

func TestRenderFailureCountsAsFailed(t *testing.T) {
	sender := &fakeSender{}
	throttle, clock := newThrottle(Policy{BatchSize: 1}, sender)
	outcome, _, err := throttle.Consider(context.Background(), 1, func() (Alert, error) {
		return Alert{}, errors.New("disk full")
	})
	if err != nil || outcome != Failed {
		t.Fatalf("expected failed, got %v %v", outcome, err)
	}
	if len(sender.sent) != 0 || len(clock.Sleeps()) != 0 {
		t.Fatal("render failure must not send or sleep")
	}
}

func TestConsiderStopsOnCancelledSleep(t *testing.T) {
	sender := &fakeSender{}
	throttle := NewThrottle(Policy{Delay: time.Hour, BatchSize: 10}, sender, timeutil.RealClock{}, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := throttle.Consider(ctx, 1, renderAt(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation from sleep, got %v", err)
	}
}
