// Package feed retrieves podcast feeds and reduces them to the fields the
// download pipeline needs.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podd/internal/logging"
	"podd/internal/podcast"
)

// Source fetches one feed document.
type Source interface {
	Fetch(ctx context.Context, feedURL string) (*podcast.FeedDocument, error)
}

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

// Fetcher is a Source backed by gofeed.
type Fetcher struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewFetcher builds a Fetcher. A zero Timeout leaves the client without one.
func NewFetcher(opts Options) *Fetcher {
	parser := gofeed.NewParser()
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	parser.Client = client
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		parser.UserAgent = ua
	}
	return &Fetcher{
		parser: parser,
		logger: logging.NewComponentLogger(opts.Logger, "feed"),
	}
}

// Fetch downloads and parses feedURL. Failures are returned as
// *podcast.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*podcast.FeedDocument, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, classify(feedURL, err)
	}
	doc := Convert(parsed, feedURL, f.logger)
	f.logger.Debug("feed parsed",
		logging.FeedURL(feedURL),
		logging.Podcast(doc.Name),
		logging.Int("entries", len(doc.Entries)),
	)
	return doc, nil
}

func classify(feedURL string, err error) error {
	fetchErr := &podcast.FetchError{URL: feedURL, Kind: podcast.KindParse, Err: err}

	var httpErr gofeed.HTTPError
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.As(err, &httpErr):
		fetchErr.Kind = podcast.KindHTTPStatus
		fetchErr.StatusCode = httpErr.StatusCode
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fetchErr.Kind = podcast.KindNetwork
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		fetchErr.Kind = podcast.KindNetwork
	}
	return fetchErr
}

// Convert maps a parsed gofeed document onto podcast.FeedDocument. Entries
// without a GUID, link, or title cannot be tracked and are dropped.
func Convert(parsed *gofeed.Feed, feedURL string, logger *slog.Logger) *podcast.FeedDocument {
	doc := &podcast.FeedDocument{Name: strings.TrimSpace(parsed.Title)}
	if doc.Name == "" {
		doc.Name = feedURL
	}
	if parsed.Image != nil && parsed.Image.URL != "" {
		doc.ImageURL = parsed.Image.URL
	} else if parsed.ITunesExt != nil {
		doc.ImageURL = parsed.ITunesExt.Image
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		id := entryID(item)
		if id == "" {
			if logger != nil {
				logger.Debug("feed entry skipped; no identifier", logging.FeedURL(feedURL))
			}
			continue
		}
		doc.Entries = append(doc.Entries, convertItem(item, id))
	}
	return doc
}

func entryID(item *gofeed.Item) string {
	for _, candidate := range []string{item.GUID, item.Link, item.Title} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func convertItem(item *gofeed.Item, id string) podcast.RawEntry {
	entry := podcast.RawEntry{
		ID:        id,
		Title:     strings.TrimSpace(item.Title),
		Published: item.PublishedParsed,
	}
	if entry.Title == "" {
		entry.Title = podcast.PlaceholderTitle
	}
	entry.Summary = strings.TrimSpace(item.Description)
	if entry.Summary == "" {
		entry.Summary = strings.TrimSpace(item.Content)
	}
	if entry.Summary == "" {
		entry.Summary = podcast.PlaceholderSummary
	}

	for _, enc := range item.Enclosures {
		if enc == nil || strings.TrimSpace(enc.URL) == "" {
			continue
		}
		entry.Links = append(entry.Links, podcast.Link{
			Href: strings.TrimSpace(enc.URL),
			Rel:  "enclosure",
			Type: strings.ToLower(strings.TrimSpace(enc.Type)),
		})
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		entry.Links = append(entry.Links, podcast.Link{Href: link, Rel: "alternate"})
	}

	if item.Image != nil && item.Image.URL != "" {
		entry.ImageURL = item.Image.URL
	} else if item.ITunesExt != nil {
		entry.ImageURL = item.ITunesExt.Image
	}
	return entry
}
