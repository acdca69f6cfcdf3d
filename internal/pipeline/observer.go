package pipeline

import "podd/internal/podcast"

// Observer receives progress callbacks from worker goroutines. Implementations
// must be safe for concurrent use.
type Observer interface {
	FeedUpdating(sub podcast.Subscription)
	EpisodeDownloading(ep podcast.Episode)
	EpisodeFinished(ep podcast.Episode)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) FeedUpdating(podcast.Subscription) {}

func (NopObserver) EpisodeDownloading(podcast.Episode) {}

func (NopObserver) EpisodeFinished(podcast.Episode) {}
