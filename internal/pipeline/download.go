package pipeline

import (
	"context"

	"podd/internal/episode"
	"podd/internal/logging"
	"podd/internal/podcast"
	"podd/internal/services"
	"podd/internal/workpool"
)

// StageDownload names the transfer and tagging stage in logs.
const StageDownload = "download"

type outcome struct {
	episode podcast.Episode
	done    bool
}

// Run downloads and tags eps with a bounded pool and returns one Episode per
// input, in input order, with Err set on failures. Episodes whose Filename
// clashes with an earlier one or with an existing file are renamed first. After every worker has
// returned, the successful episodes are recorded in one store write; a
// failure of that write is returned alongside the episodes.
func (r *Runner) Run(ctx context.Context, eps []podcast.Episode) ([]podcast.Episode, error) {
	ctx = services.WithStage(ctx, StageDownload)
	eps = episode.UniqueFilenames(eps)
	outcomes := workpool.Map(ctx, r.downloadWorkers, eps, r.downloadOne)

	results := make([]podcast.Episode, len(eps))
	refs := make([]podcast.EpisodeRef, 0, len(eps))
	for i, o := range outcomes {
		if !o.done {
			results[i] = eps[i]
			results[i].Err = context.Cause(ctx)
			continue
		}
		results[i] = o.episode
		if o.episode.Succeeded() {
			refs = append(refs, o.episode.Ref())
		}
	}

	if err := r.repo.RecordEpisodes(context.WithoutCancel(ctx), refs); err != nil {
		return results, services.Wrap(services.ErrStore, StageDownload, "record episodes", "", err)
	}
	return results, nil
}

func (r *Runner) downloadOne(ctx context.Context, ep podcast.Episode) outcome {
	ctx = services.WithFeedURL(ctx, ep.PodcastURL)
	logger := logging.WithContext(ctx, r.logger).With(logging.Args(
		logging.Podcast(ep.PodcastName),
		logging.EpisodeID(ep.ID),
	)...)
	r.observer.EpisodeDownloading(ep)

	written, err := r.downloader.Download(ctx, ep)
	if err != nil {
		ep.Err = err
		logging.WarnWithContext(logger, "episode download failed", "episode_download_failed",
			logging.Error(err),
			logging.String("error_kind", podcast.Kind(err)),
			logging.String("audio_url", ep.AudioURL),
			logging.String(logging.FieldImpact, "episode will be retried next run"),
		)
		r.observer.EpisodeFinished(ep)
		return outcome{episode: ep, done: true}
	}

	if err := r.tagger.Tag(ep); err != nil {
		ep.TagErr = err
		logging.WarnWithContext(logger, "episode tagging failed; file kept untagged", "episode_tag_failed",
			logging.Error(err),
			logging.Filename(ep.Filename),
			logging.String(logging.FieldErrorHint, "the file is playable but carries no podcast metadata"),
			logging.String(logging.FieldImpact, "episode counted as downloaded"),
		)
	}

	logger.Info("episode downloaded",
		logging.Filename(ep.Filename),
		logging.Int64("bytes", written),
		logging.String(logging.FieldEventType, "episode_downloaded"),
	)
	r.observer.EpisodeFinished(ep)
	return outcome{episode: ep, done: true}
}
