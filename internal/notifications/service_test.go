package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"watcher/internal/locale"
	"watcher/internal/notifications"
	"watcher/internal/testsupport"
)

type captured struct {
	path     string
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, status int, into *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		into.path = r.URL.Path
		into.title = r.Header.Get("Title")
		into.tags = r.Header.Get("Tags")
		into.priority = r.Header.Get("Priority")
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			_ = r.ParseForm()
			into.body = r.PostForm.Get("text")
		} else {
			body, _ := io.ReadAll(r.Body)
			into.body = string(body)
		}
		w.WriteHeader(status)
		if strings.Contains(r.URL.Path, "/bot") {
			_, _ = io.WriteString(w, `{"ok":true}`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewServiceNoopWithoutTransport(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg, nil)
	if err := svc.NotifyMergeFailed(context.Background(), errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNewServiceNoopWhenDisabled(t *testing.T) {
	var got captured
	server := captureServer(t, http.StatusOK, &got)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIBaseURL(server.URL))
	cfg.Notifications.Enabled = false
	if err := notifications.NewService(cfg, nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if got.path != "" {
		t.Fatalf("disabled notifications must not send, got %s", got.path)
	}
}

func TestTelegramTransportPrefixesMessages(t *testing.T) {
	var got captured
	server := captureServer(t, http.StatusOK, &got)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIBaseURL(server.URL))

	svc := notifications.NewService(cfg, locale.New("en"))
	if err := svc.NotifyDeliveryFailed(context.Background(), errors.New("status 502")); err != nil {
		t.Fatalf("NotifyDeliveryFailed: %v", err)
	}
	if got.path != "/bot123:test/sendMessage" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.body != "🚨 ❌ Failed to send to Telegram: status 502" {
		t.Fatalf("unexpected text %q", got.body)
	}
}

func TestNtfyTransportFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:           "merge failed",
			send:           func(s notifications.Service) error { return s.NotifyMergeFailed(context.Background(), errors.New("exit status 1")) },
			expectTitle:    "Watcher - Merge Failed",
			expectMessage:  "❌ Video merge failed: exit status 1",
			expectTags:     "watcher,merge,failed",
			expectPriority: "high",
		},
		{
			name:          "delivered small",
			send:          func(s notifications.Service) error { return s.NotifyDelivered(context.Background(), "merged.mp4", 10<<20) },
			expectTitle:   "Watcher - Delivered",
			expectMessage: "✅ File sent to Telegram: merged.mp4",
			expectTags:    "watcher,delivery,completed",
		},
		{
			name:          "delivered large",
			send:          func(s notifications.Service) error { return s.NotifyDelivered(context.Background(), "merged.mp4", 60<<20) },
			expectTitle:   "Watcher - Delivered",
			expectMessage: "✅ File sent to Telegram: merged.mp4\n📦 Large file detected: 60.0 MB",
			expectTags:    "watcher,delivery,completed",
		},
		{
			name:           "low storage",
			send:           func(s notifications.Service) error { return s.NotifyLowStorage(context.Background(), 4.5) },
			expectTitle:    "Watcher - Low Storage",
			expectMessage:  "⚠️ Storage space low: 4.5% remaining",
			expectTags:     "watcher,storage,warning",
			expectPriority: "high",
		},
		{
			name:           "error",
			send:           func(s notifications.Service) error { return s.NotifyError(context.Background(), errors.New("disk full"), "compress") },
			expectTitle:    "Watcher - Error",
			expectMessage:  "💥 Watcher run failed: compress: disk full",
			expectTags:     "watcher,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "Watcher - Test",
			expectMessage:  "🔔 Watcher test notification",
			expectTags:     "watcher,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := captureServer(t, http.StatusOK, &got)
			cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(cfg, locale.New("en"))); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	var got captured
	server := captureServer(t, http.StatusInternalServerError, &got)
	cfg := testsupport.NewConfig(t, testsupport.WithoutCredentials())
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(cfg, nil).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
