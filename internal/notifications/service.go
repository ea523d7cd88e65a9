package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Piravision/Votaciones/internal/config"
)

const userAgent = "cinebot/1.0"

// Service is the notification surface used by the poll loop and the CLI.
type Service interface {
	NotifySessionClosed(ctx context.Context, title, year string, rating float64, votes int) error
	NotifyPublishFailed(ctx context.Context, err error, commitMessage string) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds an ntfy-backed service, or a no-op one when the topic is
// empty.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
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
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) NotifySessionClosed(ctx context.Context, title, year string, rating float64, votes int) error {
	label := strings.TrimSpace(title)
	if year = strings.TrimSpace(year); year != "" {
		label = fmt.Sprintf("%s (%s)", label, year)
	}
	noun := "votos"
	if votes == 1 {
		noun = "voto"
	}
	return n.send(ctx, payload{
		title:   "Cinebot - Sesión cerrada",
		message: fmt.Sprintf("🎬 %s: %.2f/10 con %d %s", label, rating, votes, noun),
		tags:    []string{"cinebot", "session", "closed"},
	})
}

func (n *ntfyService) NotifyPublishFailed(ctx context.Context, err error, commitMessage string) error {
	var builder strings.Builder
	builder.WriteString("❌ No se pudo publicar el calendario")
	if commitMessage = strings.TrimSpace(commitMessage); commitMessage != "" {
		builder.WriteString(" (")
		builder.WriteString(commitMessage)
		builder.WriteString(")")
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Cinebot - Error de publicación",
		message:  builder.String(),
		tags:     []string{"cinebot", "publish", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Cinebot - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cinebot", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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

func (noopService) NotifySessionClosed(context.Context, string, string, float64, int) error {
	return nil
}
func (noopService) NotifyPublishFailed(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
func (noopService) Enabled() bool                                            { return false }
