package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watcher/internal/config"
	"watcher/internal/delivery"
	"watcher/internal/locale"
)

const userAgent = "Watcher-Go/0.1.0"

// telegramPrefix marks operator messages in the shared chat.
const telegramPrefix = "🚨 "

// Service defines the notification surface exposed to pipeline components.
// Callers treat every method as best effort.
type Service interface {
	NotifyMergeFailed(ctx context.Context, err error) error
	NotifyCompressionFailed(ctx context.Context, err error) error
	NotifyDeliveryFailed(ctx context.Context, err error) error
	NotifyDelivered(ctx context.Context, name string, sizeBytes int64) error
	NotifyLowStorage(ctx context.Context, freePercent float64) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService picks a transport: Telegram sendMessage when bot credentials are
// configured, else the ntfy topic when set, else a noop.
func NewService(cfg *config.Config, tr *locale.Translator) Service {
	if cfg == nil || !cfg.Notifications.Enabled {
		return noopService{}
	}
	if tr == nil {
		tr = locale.New(cfg.Notifications.Language)
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var t transport
	switch {
	case cfg.DeliveryConfigured():
		t = &telegramTransport{client: delivery.NewClient(cfg.Delivery), timeout: timeout}
	case strings.TrimSpace(cfg.Notifications.NtfyTopic) != "":
		t = &ntfyTransport{endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic), client: &http.Client{Timeout: timeout}}
	default:
		return noopService{}
	}
	return &service{
		transport:      t,
		tr:             tr,
		largeFileBytes: int64(cfg.Notifications.LargeFileWarningMB) * 1024 * 1024,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type transport interface {
	send(ctx context.Context, data payload) error
}

type service struct {
	transport      transport
	tr             *locale.Translator
	largeFileBytes int64
}

func (s *service) NotifyMergeFailed(ctx context.Context, err error) error {
	return s.transport.send(ctx, payload{
		title:    "Watcher - Merge Failed",
		message:  s.tr.Translate(locale.MergeFailed, errorText(err)),
		tags:     []string{"watcher", "merge", "failed"},
		priority: "high",
	})
}

func (s *service) NotifyCompressionFailed(ctx context.Context, err error) error {
	return s.transport.send(ctx, payload{
		title:    "Watcher - Compression Failed",
		message:  s.tr.Translate(locale.CompressionFailed, errorText(err)),
		tags:     []string{"watcher", "compress", "failed"},
		priority: "high",
	})
}

func (s *service) NotifyDeliveryFailed(ctx context.Context, err error) error {
	return s.transport.send(ctx, payload{
		title:    "Watcher - Delivery Failed",
		message:  s.tr.Translate(locale.DeliveryFailed, errorText(err)),
		tags:     []string{"watcher", "delivery", "failed"},
		priority: "high",
	})
}

func (s *service) NotifyDelivered(ctx context.Context, name string, sizeBytes int64) error {
	message := s.tr.Translate(locale.Delivered, strings.TrimSpace(name))
	if s.largeFileBytes > 0 && sizeBytes > s.largeFileBytes {
		message += "\n" + s.tr.Translate(locale.LargeFileWarning, float64(sizeBytes)/(1024*1024))
	}
	return s.transport.send(ctx, payload{
		title:   "Watcher - Delivered",
		message: message,
		tags:    []string{"watcher", "delivery", "completed"},
	})
}

func (s *service) NotifyLowStorage(ctx context.Context, freePercent float64) error {
	return s.transport.send(ctx, payload{
		title:    "Watcher - Low Storage",
		message:  s.tr.Translate(locale.StorageWarning, freePercent),
		tags:     []string{"watcher", "storage", "warning"},
		priority: "high",
	})
}

func (s *service) NotifyError(ctx context.Context, err error, contextLabel string) error {
	detail := errorText(err)
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		detail = contextLabel + ": " + detail
	}
	return s.transport.send(ctx, payload{
		title:    "Watcher - Error",
		message:  s.tr.Translate(locale.RunError, detail),
		tags:     []string{"watcher", "error", "alert"},
		priority: "high",
	})
}

func (s *service) TestNotification(ctx context.Context) error {
	return s.transport.send(ctx, payload{
		title:    "Watcher - Test",
		message:  s.tr.Translate(locale.TestNotification),
		tags:     []string{"watcher", "test"},
		priority: "low",
	})
}

func errorText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

type telegramTransport struct {
	client  *delivery.Client
	timeout time.Duration
}

func (t *telegramTransport) send(ctx context.Context, data payload) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.client.SendMessage(ctx, telegramPrefix+data.message)
}

type ntfyTransport struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyTransport) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyMergeFailed(context.Context, error) error       { return nil }
func (noopService) NotifyCompressionFailed(context.Context, error) error { return nil }
func (noopService) NotifyDeliveryFailed(context.Context, error) error    { return nil }
func (noopService) NotifyDelivered(context.Context, string, int64) error { return nil }
func (noopService) NotifyLowStorage(context.Context, float64) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
