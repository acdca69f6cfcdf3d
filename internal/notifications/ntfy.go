package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podd/internal/podcast"
	"podd/internal/services"
	"podd/internal/version"
)

// ntfy bodies are short push messages; longer reports are cut.
const ntfyMaxEpisodes = 20

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	subject  string
	client   *http.Client
}

func newNtfyService(topic, subject string, timeout time.Duration) *ntfyService {
	return &ntfyService{
		endpoint: strings.TrimSpace(topic),
		subject:  subject,
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *ntfyService) NotifyReport(ctx context.Context, results []podcast.PodcastResult) error {
	if len(results) == 0 {
		return nil
	}
	total := episodeCount(results)

	var b strings.Builder
	fmt.Fprintf(&b, "Downloaded %d episode(s) from %d podcast(s)", total, len(results))
	listed := 0
	for _, res := range results {
		for _, ep := range res.Episodes {
			if listed == ntfyMaxEpisodes {
				fmt.Fprintf(&b, "\n… and %d more", total-listed)
				return n.send(ctx, n.reportPayload(b.String()))
			}
			fmt.Fprintf(&b, "\n%s - %s", res.Name, ep.Title)
			listed++
		}
	}
	return n.send(ctx, n.reportPayload(b.String()))
}

func (n *ntfyService) reportPayload(message string) payload {
	return payload{
		title:   n.subject,
		message: message,
		tags:    []string{"podd", "download", "completed"},
	}
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    n.subject + " (test)",
		message:  "Notification system test",
		tags:     []string{"podd", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageNotify, "build ntfy request", "", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
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
		return services.Wrap(services.ErrNotification, stageNotify, "send ntfy notification", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrNotification, stageNotify, "send ntfy notification",
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
