package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"podd/internal/config"
	"podd/internal/notifications"
	"podd/internal/podcast"
	"podd/internal/services"
	"podd/internal/testsupport"
)

func sampleResults() []podcast.PodcastResult {
	return []podcast.PodcastResult{
		{
			Name:  "Morning <Show>",
			Image: "https://img.example.com/show.jpg",
			Episodes: []podcast.Episode{
				{ID: "1", Title: "Pilot", Summary: "Intro & welcome", Image: "https://img.example.com/ep1.jpg"},
				{ID: "2", Title: "Second", Summary: podcast.PlaceholderSummary},
			},
		},
		{
			Name:     "Evening",
			Episodes: []podcast.Episode{{ID: "e", Title: "Wrap-up", Summary: "Done"}},
		},
	}
}

func TestNewServiceReturnsNoopWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Enabled = false
	svc, err := notifications.NewService(&cfg)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	if err := svc.NotifyReport(context.Background(), sampleResults()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNewServiceRejectsUnknownTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Enabled = true
	cfg.Notifications.Transport = "pigeon"
	if _, err := notifications.NewService(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type ntfyRequest struct {
	title, tags, priority, body string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *[]ntfyRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []ntfyRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, ntfyRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestNtfyServiceSendsReport(t *testing.T) {
	srv, requests := newNtfyServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfy(srv.URL+"/podd"))

	svc, err := notifications.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	if err := svc.NotifyReport(context.Background(), sampleResults()); err != nil {
		t.Fatalf("NotifyReport returned error: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected one request, got %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != notifications.DefaultSubject {
		t.Fatalf("unexpected title %q", got.title)
	}
	if got.tags != "podd,download,completed" {
		t.Fatalf("unexpected tags %q", got.tags)
	}
	for _, want := range []string{"Downloaded 3 episode(s) from 2 podcast(s)", "Morning <Show> - Pilot", "Evening - Wrap-up"} {
		if !strings.Contains(got.body, want) {
			t.Fatalf("expected body to contain %q, got %q", want, got.body)
		}
	}
}

func TestNtfyServiceSkipsEmptyReport(t *testing.T) {
	srv, requests := newNtfyServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfy(srv.URL+"/podd"))
	svc, err := notifications.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	if err := svc.NotifyReport(context.Background(), nil); err != nil {
		t.Fatalf("NotifyReport returned error: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no request for empty results, got %d", len(*requests))
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	srv, _ := newNtfyServer(t, http.StatusTooManyRequests)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfy(srv.URL+"/podd"))
	svc, err := notifications.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	err = svc.TestNotification(context.Background())
	if !errors.Is(err, services.ErrNotification) {
		t.Fatalf("expected notification error, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestRenderGroupsEpisodesAndEscapesHTML(t *testing.T) {
	digest, err := notifications.Render(notifications.DefaultSubject, sampleResults())
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if digest.Subject != "Podcast Download Report" {
		t.Fatalf("unexpected subject %q", digest.Subject)
	}
	if !strings.Contains(digest.HTML, "Morning &lt;Show&gt;") {
		t.Fatalf("expected escaped podcast name in html:\n%s", digest.HTML)
	}
	if !strings.Contains(digest.HTML, `src="https://img.example.com/ep1.jpg"`) {
		t.Fatalf("expected episode image in html:\n%s", digest.HTML)
	}
	if !strings.Contains(digest.HTML, "3 new episodes downloaded.") {
		t.Fatalf("expected total in html:\n%s", digest.HTML)
	}
	if strings.Index(digest.Text, "Pilot") > strings.Index(digest.Text, "Evening") {
		t.Fatalf("expected episodes grouped under their podcast:\n%s", digest.Text)
	}
	for _, want := range []string{"== Morning <Show> ==", "* Pilot", "Intro & welcome", podcast.PlaceholderSummary} {
		if !strings.Contains(digest.Text, want) {
			t.Fatalf("expected text to contain %q:\n%s", want, digest.Text)
		}
	}
}
