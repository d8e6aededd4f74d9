package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spool/internal/config"
)

const userAgent = "Spool/0.1.0"

// Service defines the operator notification surface exposed to workflow
// components.
type Service interface {
	NotifyItemQueued(ctx context.Context, title, kind string) error
	NotifyDownloadStarted(ctx context.Context, title string) error
	NotifyDownloadCompleted(ctx context.Context, title string) error
	NotifyDeliveryCompleted(ctx context.Context, title, kind string) error
	NotifyReviewRequired(ctx context.Context, title, reason string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topicEndpoint(topic),
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

// topicEndpoint accepts either a bare topic name or a full ntfy URL.
func topicEndpoint(topic string) string {
	if strings.Contains(topic, "://") {
		return strings.TrimRight(topic, "/")
	}
	return "https://ntfy.sh/" + topic
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyItemQueued(ctx context.Context, title, kind string) error {
	if !n.events.Queue {
		return nil
	}
	title = strings.TrimSpace(title)
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "unknown"
	}
	data := payload{
		title:   "Spool - Queued",
		message: fmt.Sprintf("📥 Queued: %s (%s)", title, kind),
		tags:    []string{"spool", "queue", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDownloadStarted(ctx context.Context, title string) error {
	if !n.events.Delivery {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Spool - Download Started",
		message: fmt.Sprintf("Started downloading: %s", title),
		tags:    []string{"spool", "download", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDownloadCompleted(ctx context.Context, title string) error {
	if !n.events.Delivery {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Spool - Download Complete",
		message: fmt.Sprintf("⬇️ Download complete: %s", title),
		tags:    []string{"spool", "download", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeliveryCompleted(ctx context.Context, title, kind string) error {
	if !n.events.Delivery {
		return nil
	}
	title = strings.TrimSpace(title)
	kind = strings.TrimSpace(kind)
	message := fmt.Sprintf("✅ Delivered: %s", title)
	if kind != "" {
		message = fmt.Sprintf("%s (%s)", message, kind)
	}
	data := payload{
		title:    "Spool - Delivered",
		message:  message,
		tags:     []string{"spool", "delivery", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewRequired(ctx context.Context, title, reason string) error {
	if !n.events.Errors {
		return nil
	}
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Needs review: %s", title)
	if reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:   "Spool - Review Required",
		message: message,
		tags:    []string{"spool", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	if !n.events.Queue {
		return nil
	}
	data := payload{
		title:   "Spool - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"spool", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.events.Queue {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "Spool - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "Spool - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"spool", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Spool - Error",
		message:  builder.String(),
		tags:     []string{"spool", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Spool - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"spool", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

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

func (noopService) NotifyItemQueued(context.Context, string, string) error              { return nil }
func (noopService) NotifyDownloadStarted(context.Context, string) error                 { return nil }
func (noopService) NotifyDownloadCompleted(context.Context, string) error               { return nil }
func (noopService) NotifyDeliveryCompleted(context.Context, string, string) error       { return nil }
func (noopService) NotifyReviewRequired(context.Context, string, string) error          { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
