package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortforge/internal/config"
)

const userAgent = "shortforge/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventJobReview      Event = "job_review"
	EventJobCompleted   Event = "job_completed"
	EventJobFailed      Event = "job_failed"
	EventBatchCompleted Event = "batch_completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Values are rendered with %v.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobReview:      cfg.Notifications.Review,
			EventJobCompleted:   cfg.Notifications.Completion,
			EventJobFailed:      cfg.Notifications.Errors,
			EventError:          cfg.Notifications.Errors,
			EventBatchCompleted: cfg.Notifications.Batch,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobReview:
		return message{
			title: "shortforge - Ready for Review",
			body:  fmt.Sprintf("📝 %s is ready for review (%d segments)", text(payload, "theme", "job"), number(payload, "segments")),
			tags:  []string{"shortforge", "job", "review"},
		}, true
	case EventJobCompleted:
		body := fmt.Sprintf("✅ Rendered: %s", text(payload, "theme", "job"))
		if video := text(payload, "video", ""); video != "" {
			body += "\nFile: " + video
		}
		return message{
			title:    "shortforge - Complete",
			body:     body,
			tags:     []string{"shortforge", "job", "completed"},
			priority: "high",
		}, true
	case EventJobFailed:
		return message{
			title:    "shortforge - Job Failed",
			body:     fmt.Sprintf("❌ %s failed during %s: %s", text(payload, "theme", "job"), text(payload, "step", "processing"), text(payload, "error", "unknown")),
			tags:     []string{"shortforge", "job", "failed"},
			priority: "high",
		}, true
	case EventBatchCompleted:
		failed := number(payload, "failed")
		title := "shortforge - Batch Complete"
		body := fmt.Sprintf("Batch %s complete: %d advanced", text(payload, "operation", "advance"), number(payload, "advanced"))
		if review := number(payload, "review"); review > 0 {
			body += fmt.Sprintf(", %d awaiting review", review)
		}
		if failed > 0 {
			title = "shortforge - Batch Complete (with errors)"
			body += fmt.Sprintf(", %d failed", failed)
		}
		return message{title: title, body: body, tags: []string{"shortforge", "batch", "completed"}}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := text(payload, "context", ""); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(text(payload, "error", "unknown"))
		return message{
			title:    "shortforge - Error",
			body:     b.String(),
			tags:     []string{"shortforge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "shortforge - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"shortforge", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func text(payload Payload, key, fallback string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return fallback
	}
	var s string
	switch v := value.(type) {
	case error:
		s = v.Error()
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

func number(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
