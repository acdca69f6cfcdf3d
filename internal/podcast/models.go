package podcast

import (
	"context"
	"time"
)

const (
	// PlaceholderTitle replaces missing entry titles.
	PlaceholderTitle = "No title available."
	// PlaceholderSummary replaces missing entry summaries.
	PlaceholderSummary = "No summary available."
	// Genre is written into every tagged file.
	Genre = "Podcast"
)

// Subscription is one followed feed. FeedURL is unique across subscriptions.
type Subscription struct {
	Name      string
	FeedURL   string
	Directory string
}

// Link is a normalized feed link. Enclosures carry Rel "enclosure".
type Link struct {
	Href string
	Rel  string
	Type string
}

// RawEntry is a single feed item as reported by the feed parser.
type RawEntry struct {
	ID        string
	Title     string
	Summary   string
	Published *time.Time
	Links     []Link
	ImageURL  string
}

// FeedDocument is the normalized view of one fetched feed.
type FeedDocument struct {
	Name     string
	ImageURL string
	Entries  []RawEntry
}

// Summary identifies the podcast a batch of episodes was discovered for.
type Summary struct {
	Name  string
	URL   string
	Image string
}

// Episode is a download candidate and, after the download stage, its outcome.
// Err is set when the download failed; TagErr is informational only.
type Episode struct {
	ID          string
	PodcastName string
	PodcastURL  string
	Title       string
	Summary     string
	Image       string
	AudioURL    string
	Filename    string
	Published   *time.Time

	Err    error
	TagErr error
}

// Succeeded reports whether the episode file was downloaded.
func (e Episode) Succeeded() bool {
	return e.Err == nil
}

// Ref returns the store key for the episode.
func (e Episode) Ref() EpisodeRef {
	return EpisodeRef{FeedURL: e.PodcastURL, EpisodeID: e.ID}
}

// EpisodeRef addresses one entry in a feed's seen-set.
type EpisodeRef struct {
	FeedURL   string
	EpisodeID string
}

// PodcastResult is one podcast's section of a download report. Episodes only
// holds episodes that downloaded successfully.
type PodcastResult struct {
	Name     string
	Image    string
	Episodes []Episode
}

// Repository is the persistence surface the download pipeline depends on.
type Repository interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	SeenEpisodes(ctx context.Context, feedURL string) (map[string]struct{}, error)
	RecordEpisodes(ctx context.Context, refs []EpisodeRef) error
}
