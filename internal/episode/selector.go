// Package episode decides which feed entries are new and derives the local
// file each one will be written to.
package episode

import (
	"path/filepath"
	"strings"

	"podd/internal/podcast"
)

// Select returns one Episode per entry whose ID is not in seen, in feed
// order. Entries without an audio link are still returned with an empty
// AudioURL so the download stage can report them. Filenames are made unique
// within the result and against files already in dir.
func Select(doc *podcast.FeedDocument, seen map[string]struct{}, dir, podcastName, podcastURL string) []podcast.Episode {
	if doc == nil {
		return nil
	}
	var out []podcast.Episode
	for _, entry := range doc.Entries {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		out = append(out, build(entry, dir, podcastName, podcastURL))
	}
	return UniqueFilenames(out)
}

func build(entry podcast.RawEntry, dir, podcastName, podcastURL string) podcast.Episode {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = podcast.PlaceholderTitle
	}
	title = SanitizeTitle(title)

	summary := strings.TrimSpace(entry.Summary)
	if summary == "" {
		summary = podcast.PlaceholderSummary
	}

	audio := AudioLink(entry.Links)
	return podcast.Episode{
		ID:          entry.ID,
		PodcastName: podcastName,
		PodcastURL:  podcastURL,
		Title:       title,
		Summary:     summary,
		Image:       entry.ImageURL,
		AudioURL:    audio,
		Filename:    filepath.Join(dir, title+Extension(audio)),
		Published:   entry.Published,
	}
}

// AudioLink returns the first link that is an enclosure or carries an audio
// media type, or "" when none qualifies.
func AudioLink(links []podcast.Link) string {
	for _, link := range links {
		if link.Href == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(link.Type), "audio/") || link.Rel == "enclosure" {
			return link.Href
		}
	}
	return ""
}
