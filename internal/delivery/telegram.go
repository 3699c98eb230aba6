package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"watcher/internal/config"
	"watcher/internal/services"
)

const userAgent = "Watcher-Go/0.1.0"

// MaxMediaGroup is the largest album sendMediaGroup accepts.
const MaxMediaGroup = 10

var (
	// ErrPayloadTooLarge marks a size rejection from the Bot API. Operators
	// should lower delivery.max_file_size_mb when it appears.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrOverBudget marks a file still over budget after the emergency pass.
	ErrOverBudget = errors.New("artifact over budget")
)

// Client talks to the Telegram Bot API.
type Client struct {
	baseURL      string
	token        string
	chatID       string
	videoTimeout time.Duration
	photoTimeout time.Duration
	httpClient   *http.Client
}

// NewClient builds a Client from delivery configuration.
func NewClient(cfg config.Delivery) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.APIBaseURL, "/"),
		token:        cfg.BotToken,
		chatID:       cfg.ChatID,
		videoTimeout: time.Duration(cfg.VideoTimeoutSeconds) * time.Second,
		photoTimeout: time.Duration(cfg.PhotoTimeoutSeconds) * time.Second,
		httpClient:   &http.Client{},
	}
}

// MediaItem is one photo in a media group.
type MediaItem struct {
	Path    string
	Caption string
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendVideo uploads path with the long video timeout.
func (c *Client) SendVideo(ctx context.Context, path, caption string) error {
	fields := map[string]string{"chat_id": c.chatID, "supports_streaming": "true"}
	if caption != "" {
		fields["caption"] = caption
	}
	return c.upload(ctx, "sendVideo", c.videoTimeout, fields, []filePart{{field: "video", path: path}})
}

// SendPhoto uploads path with the short photo timeout.
func (c *Client) SendPhoto(ctx context.Context, path, caption string) error {
	fields := map[string]string{"chat_id": c.chatID}
	if caption != "" {
		fields["caption"] = caption
	}
	return c.upload(ctx, "sendPhoto", c.photoTimeout, fields, []filePart{{field: "photo", path: path}})
}

// SendMediaGroup uploads up to MaxMediaGroup photos as one album.
func (c *Client) SendMediaGroup(ctx context.Context, items []MediaItem) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) > MaxMediaGroup {
		return services.Wrap(services.ErrValidation, "delivery", "sendMediaGroup",
			fmt.Sprintf("%d items exceeds limit of %d", len(items), MaxMediaGroup), nil)
	}
	type inputMedia struct {
		Type    string `json:"type"`
		Media   string `json:"media"`
		Caption string `json:"caption,omitempty"`
	}
	media := make([]inputMedia, 0, len(items))
	parts := make([]filePart, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("photo%d", i)
		media = append(media, inputMedia{Type: "photo", Media: "attach://" + field, Caption: item.Caption})
		parts = append(parts, filePart{field: field, path: item.Path})
	}
	encoded, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("encode media group: %w", err)
	}
	fields := map[string]string{"chat_id": c.chatID, "media": string(encoded)}
	return c.upload(ctx, "sendMediaGroup", c.photoTimeout*time.Duration(len(items)), fields, parts)
}

// SendMessage posts a plain text message.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	form := url.Values{"chat_id": {c.chatID}, "text": {text}}
	ctx, cancel := withTimeout(ctx, c.photoTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, "sendMessage")
}

type filePart struct {
	field string
	path  string
}

// upload streams a multipart body so large videos are never held in memory.
func (c *Client) upload(ctx context.Context, method string, timeout time.Duration, fields map[string]string, files []filePart) error {
	for _, part := range files {
		if _, err := os.Stat(part.path); err != nil {
			return services.Wrap(services.ErrValidation, "delivery", method, "open upload", err)
		}
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(writer, fields, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), pr)
	if err != nil {
		_ = pr.Close()
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	err = c.do(req, method)
	_ = pr.Close()
	return err
}

func writeMultipart(writer *multipart.Writer, fields map[string]string, files []filePart) error {
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	for _, part := range files {
		if err := copyFilePart(writer, part); err != nil {
			return err
		}
	}
	return writer.Close()
}

func copyFilePart(writer *multipart.Writer, part filePart) error {
	f, err := os.Open(part.path)
	if err != nil {
		return err
	}
	defer f.Close()
	dst, err := writer.CreateFormFile(part.field, filepath.Base(part.path))
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}

func (c *Client) do(req *http.Request, method string) error {
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && c.token != "" {
			urlErr.URL = strings.Replace(urlErr.URL, c.token, "<token>", 1)
		}
		if isTimeout(err) {
			return services.Wrap(services.ErrTimeout, "delivery", method, "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "delivery", method, "request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.OK {
		return nil
	}
	detail := strings.TrimSpace(parsed.Description)
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	message := fmt.Sprintf("status %d: %s", resp.StatusCode, detail)
	if tooLarge(resp.StatusCode, parsed.ErrorCode, detail) {
		return services.Wrap(ErrPayloadTooLarge, "delivery", method, message, nil)
	}
	return services.Wrap(services.ErrTransient, "delivery", method, message, nil)
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func tooLarge(status, code int, description string) bool {
	if status == http.StatusRequestEntityTooLarge || code == http.StatusRequestEntityTooLarge {
		return true
	}
	lower := strings.ToLower(description)
	return strings.Contains(lower, "too large") || strings.Contains(lower, "too big")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
