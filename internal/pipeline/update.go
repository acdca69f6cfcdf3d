package pipeline

import (
	"context"

	"podd/internal/episode"
	"podd/internal/logging"
	"podd/internal/podcast"
	"podd/internal/services"
	"podd/internal/workpool"
)

// StageUpdate names the feed polling stage in logs.
const StageUpdate = "update"

// Discovery is one podcast with at least one new episode.
type Discovery struct {
	Podcast  podcast.Summary
	Episodes []podcast.Episode
}

// Update fetches every subscription and returns the podcasts that have new
// episodes. Feeds that fail to load, or have nothing new, contribute nothing.
// Discoveries follow subscription order.
func (r *Runner) Update(ctx context.Context, subs []podcast.Subscription) []Discovery {
	ctx = services.WithStage(ctx, StageUpdate)
	found := workpool.Map(ctx, r.fetchWorkers, subs, r.updateOne)

	var out []Discovery
	for _, d := range found {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

func (r *Runner) updateOne(ctx context.Context, sub podcast.Subscription) *Discovery {
	ctx = services.WithFeedURL(ctx, sub.FeedURL)
	logger := logging.WithContext(ctx, r.logger).With(logging.Args(logging.Podcast(sub.Name))...)
	r.observer.FeedUpdating(sub)

	seen, err := r.repo.SeenEpisodes(ctx, sub.FeedURL)
	if err != nil {
		logging.ErrorWithContext(logger, "download history unavailable; feed skipped", "seen_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database connectivity"),
		)
		return nil
	}

	doc, err := r.source.Fetch(ctx, sub.FeedURL)
	if err != nil {
		logging.WarnWithContext(logger, "feed fetch failed; feed skipped", "feed_fetch_failed",
			logging.Error(err),
			logging.String("error_kind", podcast.Kind(err)),
			logging.String(logging.FieldErrorHint, fetchHint(err)),
			logging.String(logging.FieldImpact, "no episodes from this feed in this run"),
		)
		return nil
	}

	name := sub.Name
	if name == "" {
		name = doc.Name
	}
	episodes := episode.Select(doc, seen, sub.Directory, name, sub.FeedURL)
	if len(episodes) == 0 {
		logger.Debug("no new episodes", logging.Int("entries", len(doc.Entries)))
		return nil
	}

	logger.Info("new episodes found",
		logging.Int("new", len(episodes)),
		logging.Int("entries", len(doc.Entries)),
		logging.String(logging.FieldEventType, "feed_updated"),
	)
	return &Discovery{
		Podcast:  podcast.Summary{Name: name, URL: sub.FeedURL, Image: doc.ImageURL},
		Episodes: episodes,
	}
}

func fetchHint(err error) string {
	switch podcast.Kind(err) {
	case podcast.KindHTTPStatus:
		return "check that the feed URL is still published"
	case podcast.KindParse:
		return "the server did not return RSS or Atom; verify the feed URL"
	default:
		return "check network connectivity; the feed will be retried next run"
	}
}
