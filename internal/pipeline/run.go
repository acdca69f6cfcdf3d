package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"podd/internal/logging"
	"podd/internal/podcast"
	"podd/internal/services"
)

// Report describes one completed run.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Feeds     int
	Attempted int
	// Results lists podcasts with at least one successful episode, and only
	// those episodes.
	Results []podcast.PodcastResult
	// Failed holds every episode whose download failed.
	Failed []podcast.Episode
}

// Downloaded counts successful episodes across Results.
func (r Report) Downloaded() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Episodes)
	}
	return n
}

// Execute performs one full run and returns the podcasts with new episodes.
// An empty result means nothing new was downloaded.
func (r *Runner) Execute(ctx context.Context) ([]podcast.PodcastResult, error) {
	report, err := r.ExecuteReport(ctx)
	return report.Results, err
}

// ExecuteReport is Execute with run statistics and the failed episodes.
func (r *Runner) ExecuteReport(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), Started: time.Now()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	subs, err := r.repo.ListSubscriptions(ctx)
	if err != nil {
		return report, services.Wrap(services.ErrStore, StageUpdate, "list subscriptions", "", err)
	}
	report.Feeds = len(subs)
	if len(subs) == 0 {
		logger.Info("no subscriptions configured")
		report.Finished = time.Now()
		return report, nil
	}

	discoveries := r.Update(ctx, subs)
	if len(discoveries) == 0 {
		logger.Info("no new episodes", logging.Int("feeds", len(subs)))
		report.Finished = time.Now()
		return report, nil
	}

	var pending []podcast.Episode
	for _, d := range discoveries {
		pending = append(pending, d.Episodes...)
	}
	report.Attempted = len(pending)

	episodes, err := r.Run(ctx, pending)
	if err != nil {
		report.Finished = time.Now()
		return report, err
	}

	report.Results = group(discoveries, episodes)
	for _, ep := range episodes {
		if !ep.Succeeded() {
			report.Failed = append(report.Failed, ep)
		}
	}
	report.Finished = time.Now()
	logger.Info("download run complete",
		logging.Int("feeds", report.Feeds),
		logging.Int("attempted", report.Attempted),
		logging.Int("downloaded", report.Downloaded()),
		logging.Int("failed", len(report.Failed)),
		logging.Duration("elapsed", report.Finished.Sub(report.Started)),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return report, nil
}

// group regroups successful episodes under their podcast, keeping discovery
// order, and drops podcasts where nothing succeeded.
func group(discoveries []Discovery, episodes []podcast.Episode) []podcast.PodcastResult {
	index := make(map[string]int, len(discoveries))
	results := make([]podcast.PodcastResult, len(discoveries))
	for i, d := range discoveries {
		index[d.Podcast.URL] = i
		results[i] = podcast.PodcastResult{Name: d.Podcast.Name, Image: d.Podcast.Image}
	}
	for _, ep := range episodes {
		if !ep.Succeeded() {
			continue
		}
		if i, ok := index[ep.PodcastURL]; ok {
			results[i].Episodes = append(results[i].Episodes, ep)
		}
	}

	out := results[:0]
	for _, res := range results {
		if len(res.Episodes) > 0 {
			out = append(out, res)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
