package podcast_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"podd/internal/podcast"
)

func TestDownloadErrorUnwrapsAndClassifies(t *testing.T) {
	err := &podcast.DownloadError{
		URL:  "https://cdn.example.com/ep1.mp3",
		Kind: podcast.KindNoAudio,
		Err:  podcast.ErrNoAudioLink,
	}
	wrapped := fmt.Errorf("worker: %w", err)

	if !errors.Is(wrapped, podcast.ErrNoAudioLink) {
		t.Fatalf("expected ErrNoAudioLink in chain, got %v", wrapped)
	}
	if kind := podcast.Kind(wrapped); kind != podcast.KindNoAudio {
		t.Fatalf("unexpected kind %q", kind)
	}
	var target *podcast.DownloadError
	if !errors.As(wrapped, &target) || target.URL != err.URL {
		t.Fatalf("expected DownloadError via errors.As, got %#v", target)
	}
}

func TestFetchErrorMessageIncludesStatus(t *testing.T) {
	err := &podcast.FetchError{URL: "https://feeds.example.com/a.xml", Kind: podcast.KindHTTPStatus, StatusCode: 404}
	msg := err.Error()
	for _, fragment := range []string{"https://feeds.example.com/a.xml", "404"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
}

func TestKindOfUnclassifiedError(t *testing.T) {
	if kind := podcast.Kind(errors.New("boom")); kind != "" {
		t.Fatalf("expected empty kind, got %q", kind)
	}
	if kind := podcast.Kind(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %q", kind)
	}
}

func TestTagErrorKeepsFormat(t *testing.T) {
	err := &podcast.TagError{Filename: "/tmp/ep.ogg", Kind: podcast.KindUnsupported, Format: "audio/ogg", Err: podcast.ErrUnsupportedFormat}
	if !errors.Is(err, podcast.ErrUnsupportedFormat) {
		t.Fatal("expected ErrUnsupportedFormat")
	}
	if !strings.Contains(err.Error(), "audio/ogg") {
		t.Fatalf("expected format in message: %q", err.Error())
	}
}

func TestEpisodeSucceeded(t *testing.T) {
	ep := podcast.Episode{ID: "a", PodcastURL: "u", TagErr: errors.New("tag failed")}
	if !ep.Succeeded() {
		t.Fatal("tag failure must not count as download failure")
	}
	ep.Err = errors.New("refused")
	if ep.Succeeded() {
		t.Fatal("expected failure")
	}
	if ref := ep.Ref(); ref.FeedURL != "u" || ref.EpisodeID != "a" {
		t.Fatalf("unexpected ref %#v", ref)
	}
}
