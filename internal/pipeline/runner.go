package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"podd/internal/feed"
	"podd/internal/logging"
	"podd/internal/podcast"
	"podd/internal/workpool"
)

// Downloader writes one episode to disk.
type Downloader interface {
	Download(ctx context.Context, ep podcast.Episode) (int64, error)
}

// Tagger writes metadata into a downloaded file.
type Tagger interface {
	Tag(ep podcast.Episode) error
}

// Options wires a Runner.
type Options struct {
	Repository      podcast.Repository
	Source          feed.Source
	Downloader      Downloader
	Tagger          Tagger
	FetchWorkers    int
	DownloadWorkers int
	Logger          *slog.Logger
	Observer        Observer
}

// Runner executes download runs.
type Runner struct {
	repo            podcast.Repository
	source          feed.Source
	downloader      Downloader
	tagger          Tagger
	fetchWorkers    int
	downloadWorkers int
	logger          *slog.Logger
	observer        Observer
}

// New validates opts and builds a Runner. Worker counts below one fall back
// to workpool.DefaultLimit.
func New(opts Options) (*Runner, error) {
	switch {
	case opts.Repository == nil:
		return nil, errors.New("pipeline: repository is required")
	case opts.Source == nil:
		return nil, errors.New("pipeline: feed source is required")
	case opts.Downloader == nil:
		return nil, errors.New("pipeline: downloader is required")
	case opts.Tagger == nil:
		return nil, errors.New("pipeline: tagger is required")
	}
	r := &Runner{
		repo:            opts.Repository,
		source:          opts.Source,
		downloader:      opts.Downloader,
		tagger:          opts.Tagger,
		fetchWorkers:    opts.FetchWorkers,
		downloadWorkers: opts.DownloadWorkers,
		logger:          logging.NewComponentLogger(opts.Logger, "pipeline"),
		observer:        opts.Observer,
	}
	if r.fetchWorkers <= 0 {
		r.fetchWorkers = workpool.DefaultLimit
	}
	if r.downloadWorkers <= 0 {
		r.downloadWorkers = workpool.DefaultLimit
	}
	if r.observer == nil {
		r.observer = NopObserver{}
	}
	return r, nil
}
