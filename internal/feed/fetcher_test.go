package feed_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"podd/internal/feed"
	"podd/internal/podcast"
	"podd/internal/testsupport"
)

func newFetcher() *feed.Fetcher {
	return feed.NewFetcher(feed.Options{UserAgent: "podd-test"})
}

func TestFetchParsesEntries(t *testing.T) {
	srv := testsupport.NewFeedServer(t)
	url := srv.Feed("/show.xml", testsupport.RSS("Some Show", "https://img.example.com/show.jpg",
		testsupport.Item{
			GUID:         "ep-2",
			Title:        "Second",
			Description:  "The second one",
			Link:         "https://example.com/ep2",
			EnclosureURL: "https://cdn.example.com/ep2.mp3",
			ImageURL:     "https://img.example.com/ep2.jpg",
			Published:    "Tue, 02 Jan 2024 10:00:00 GMT",
		},
		testsupport.Item{Link: "https://example.com/ep1"},
		testsupport.Item{Description: "no identifier at all"},
	))

	doc, err := newFetcher().Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if doc.Name != "Some Show" || doc.ImageURL != "https://img.example.com/show.jpg" {
		t.Fatalf("unexpected podcast metadata: %#v", doc)
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Entries))
	}

	first := doc.Entries[0]
	if first.ID != "ep-2" || first.Title != "Second" || first.Summary != "The second one" {
		t.Fatalf("unexpected first entry: %#v", first)
	}
	if first.Published == nil || first.Published.Year() != 2024 {
		t.Fatalf("expected parsed publish date, got %v", first.Published)
	}
	if first.ImageURL != "https://img.example.com/ep2.jpg" {
		t.Fatalf("unexpected entry image %q", first.ImageURL)
	}
	if len(first.Links) != 2 || first.Links[0].Rel != "enclosure" || first.Links[0].Type != "audio/mpeg" {
		t.Fatalf("unexpected links: %#v", first.Links)
	}

	second := doc.Entries[1]
	if second.ID != "https://example.com/ep1" {
		t.Fatalf("expected link to be used as id, got %q", second.ID)
	}
	if second.Title != podcast.PlaceholderTitle || second.Summary != podcast.PlaceholderSummary {
		t.Fatalf("expected placeholders, got %q / %q", second.Title, second.Summary)
	}
	if srv.Hits("/show.xml") != 1 {
		t.Fatalf("expected exactly one request, got %d", srv.Hits("/show.xml"))
	}
}

func TestFetchFallsBackToURLForName(t *testing.T) {
	srv := testsupport.NewFeedServer(t)
	url := srv.Feed("/untitled.xml", testsupport.RSS("", ""))

	doc, err := newFetcher().Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if doc.Name != url {
		t.Fatalf("expected url as name, got %q", doc.Name)
	}
	if len(doc.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(doc.Entries))
	}
}

func TestFetchClassifiesFailures(t *testing.T) {
	srv := testsupport.NewFeedServer(t)
	notFound := srv.Status("/gone.xml", http.StatusNotFound)
	garbage := srv.File("/garbage.xml", []byte("definitely not a feed"))

	cases := []struct {
		name   string
		url    string
		kind   string
		status int
	}{
		{"http status", notFound, podcast.KindHTTPStatus, http.StatusNotFound},
		{"malformed", garbage, podcast.KindParse, 0},
		{"refused", "http://127.0.0.1:1/feed.xml", podcast.KindNetwork, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newFetcher().Fetch(context.Background(), tc.url)
			if err == nil {
				t.Fatal("expected error")
			}
			var fetchErr *podcast.FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected FetchError, got %T %v", err, err)
			}
			if fetchErr.Kind != tc.kind {
				t.Fatalf("expected kind %q, got %q (%v)", tc.kind, fetchErr.Kind, err)
			}
			if fetchErr.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, fetchErr.StatusCode)
			}
			if fetchErr.URL != tc.url {
				t.Fatalf("expected url %q, got %q", tc.url, fetchErr.URL)
			}
		})
	}
}
