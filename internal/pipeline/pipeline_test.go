package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"podd/internal/download"
	"podd/internal/feed"
	"podd/internal/pipeline"
	"podd/internal/podcast"
	"podd/internal/services"
	"podd/internal/tagging"
	"podd/internal/testsupport"
)

type fixture struct {
	srv  *testsupport.FeedServer
	repo *testsupport.MemoryRepository
	dir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		srv:  testsupport.NewFeedServer(t),
		repo: testsupport.NewMemoryRepository(),
		dir:  t.TempDir(),
	}
}

// subscribe registers a feed and its subscription directory.
func (f *fixture) subscribe(t *testing.T, name, path, body string) podcast.Subscription {
	t.Helper()
	dir := filepath.Join(f.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sub := podcast.Subscription{Name: name, FeedURL: f.srv.Feed(path, body), Directory: dir}
	f.repo = testsupport.NewMemoryRepository(append(f.subs(t), sub)...)
	return sub
}

func (f *fixture) subs(t *testing.T) []podcast.Subscription {
	t.Helper()
	subs, err := f.repo.ListSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return subs
}

func (f *fixture) runner(t *testing.T, opts ...func(*pipeline.Options)) *pipeline.Runner {
	t.Helper()
	o := pipeline.Options{
		Repository: f.repo,
		Source:     feed.NewFetcher(feed.Options{Timeout: 5 * time.Second}),
		Downloader: download.New(download.Options{}),
		Tagger:     tagging.New(nil),
	}
	for _, opt := range opts {
		opt(&o)
	}
	r, err := pipeline.New(o)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return r
}

func item(id, title, url string) testsupport.Item {
	return testsupport.Item{GUID: id, Title: title, Description: "about " + title, EnclosureURL: url}
}

func TestExecuteDownloadsNewEpisodesOnce(t *testing.T) {
	f := newFixture(t)
	audio := testsupport.MP3Payload()
	ep1 := f.srv.File("/media/ep1.mp3", audio)
	ep2 := f.srv.File("/media/ep2.mp3", audio)
	f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "https://img.example.com/show.jpg",
		item("ep-2", "Second", ep2),
		item("ep-1", "First", ep1),
	))

	results, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(results) != 1 || len(results[0].Episodes) != 2 {
		t.Fatalf("unexpected results %#v", results)
	}
	if results[0].Name != "Show" || results[0].Image != "https://img.example.com/show.jpg" {
		t.Fatalf("unexpected podcast fields %#v", results[0])
	}
	if results[0].Episodes[0].Title != "Second" {
		t.Fatalf("expected feed order, got %q first", results[0].Episodes[0].Title)
	}
	for _, name := range []string{"First.mp3", "Second.mp3"} {
		if _, err := os.Stat(filepath.Join(f.dir, "Show", name)); err != nil {
			t.Fatalf("expected %s on disk: %v", name, err)
		}
	}
	feedURL := f.srv.URL("/show.xml")
	if seen := f.repo.Seen(feedURL); len(seen) != 2 {
		t.Fatalf("expected both ids recorded, got %v", seen)
	}

	again, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("second Execute returned error: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no results on second run, got %#v", again)
	}
	if f.srv.Hits("/media/ep1.mp3") != 1 || f.srv.Hits("/media/ep2.mp3") != 1 {
		t.Fatalf("expected each file fetched once, got %d/%d", f.srv.Hits("/media/ep1.mp3"), f.srv.Hits("/media/ep2.mp3"))
	}
}

func TestExecuteKeepsEpisodesWithDuplicateTitles(t *testing.T) {
	f := newFixture(t)
	first := []byte("first bonus")
	second := []byte("second bonus")
	f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "",
		item("bonus-1", "Bonus", f.srv.File("/media/b1.mp3", first)),
		item("bonus-2", "Bonus", f.srv.File("/media/b2.mp3", second)),
	))

	results, err := f.runner(t, func(o *pipeline.Options) {
		o.Tagger = nopTagger{}
		o.DownloadWorkers = 1
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(results) != 1 || len(results[0].Episodes) != 2 {
		t.Fatalf("unexpected results %#v", results)
	}
	for _, ep := range results[0].Episodes {
		if ep.Err != nil {
			t.Fatalf("episode %s failed: %v", ep.ID, ep.Err)
		}
	}
	show := filepath.Join(f.dir, "Show")
	if got := testsupport.ReadFile(t, filepath.Join(show, "Bonus.mp3")); string(got) != string(first) {
		t.Fatalf("Bonus.mp3 holds %q", got)
	}
	if got := testsupport.ReadFile(t, filepath.Join(show, "Bonus (2).mp3")); string(got) != string(second) {
		t.Fatalf("Bonus (2).mp3 holds %q", got)
	}
	if seen := f.repo.Seen(f.srv.URL("/show.xml")); len(seen) != 2 {
		t.Fatalf("expected both ids recorded, got %v", seen)
	}
}

func TestExecuteSkipsSeenEntries(t *testing.T) {
	f := newFixture(t)
	ep1 := f.srv.File("/media/ep1.mp3", testsupport.MP3Payload())
	ep2 := f.srv.File("/media/ep2.mp3", testsupport.MP3Payload())
	sub := f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "",
		item("ep-2", "Second", ep2),
		item("ep-1", "First", ep1),
	))
	f.repo.MarkSeen(sub.FeedURL, "ep-1")

	results, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(results) != 1 || len(results[0].Episodes) != 1 || results[0].Episodes[0].ID != "ep-2" {
		t.Fatalf("unexpected results %#v", results)
	}
	if f.srv.Hits("/media/ep1.mp3") != 0 {
		t.Fatal("seen episode must not be downloaded")
	}
}

func TestExecuteIsolatesFeedFailures(t *testing.T) {
	f := newFixture(t)
	good := f.srv.File("/media/good.mp3", testsupport.MP3Payload())
	f.subscribe(t, "Good", "/good.xml", testsupport.RSS("Good", "", item("g1", "Fine", good)))
	f.subscribe(t, "Broken", "/broken.xml", "")
	f.srv.Status("/broken.xml", http.StatusInternalServerError)
	f.subscribe(t, "Garbage", "/garbage.xml", "<html>not a feed</html>")

	results, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Good" {
		t.Fatalf("expected only the healthy feed, got %#v", results)
	}
}

func TestExecutePartialDownloadFailure(t *testing.T) {
	f := newFixture(t)
	ok := f.srv.File("/media/ok.mp3", testsupport.MP3Payload())
	missing := f.srv.Status("/media/missing.mp3", http.StatusNotFound)
	sub := f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "",
		item("ok", "Works", ok),
		item("missing", "Broken", missing),
		testsupport.Item{GUID: "video", Title: "No Audio", Link: "https://example.com/video"},
	))

	report, err := f.runner(t).ExecuteReport(context.Background())
	if err != nil {
		t.Fatalf("ExecuteReport returned error: %v", err)
	}
	if report.Attempted != 3 || report.Downloaded() != 1 || len(report.Failed) != 2 {
		t.Fatalf("unexpected report: attempted=%d downloaded=%d failed=%d", report.Attempted, report.Downloaded(), len(report.Failed))
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}
	seen := f.repo.Seen(sub.FeedURL)
	if _, ok := seen["ok"]; !ok || len(seen) != 1 {
		t.Fatalf("expected only the successful id recorded, got %v", seen)
	}
	kinds := map[string]bool{}
	for _, ep := range report.Failed {
		kinds[podcast.Kind(ep.Err)] = true
	}
	if !kinds[podcast.KindHTTPStatus] || !kinds[podcast.KindNoAudio] {
		t.Fatalf("unexpected failure kinds %v", kinds)
	}

	// The failed entries are retried on the next run.
	f.srv.File("/media/missing.mp3", testsupport.MP3Payload())
	results, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("retry Execute returned error: %v", err)
	}
	if len(results) != 1 || len(results[0].Episodes) != 1 || results[0].Episodes[0].ID != "missing" {
		t.Fatalf("expected retried episode, got %#v", results)
	}
}

func TestExecuteDropsPodcastsWithoutSuccess(t *testing.T) {
	f := newFixture(t)
	good := f.srv.File("/media/good.mp3", testsupport.MP3Payload())
	bad := f.srv.Status("/media/bad.mp3", http.StatusForbidden)
	f.subscribe(t, "Good", "/good.xml", testsupport.RSS("Good", "", item("g", "Fine", good)))
	f.subscribe(t, "Bad", "/bad.xml", testsupport.RSS("Bad", "", item("b", "Nope", bad)))

	results, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Good" {
		t.Fatalf("expected podcasts without successes to be dropped, got %#v", results)
	}
}

func TestExecuteTagFailureStillCounts(t *testing.T) {
	f := newFixture(t)
	text := f.srv.File("/media/notes.mp3", []byte("this is not audio at all\n"))
	sub := f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "", item("t", "Text", text)))

	results, err := f.runner(t).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(results) != 1 || len(results[0].Episodes) != 1 {
		t.Fatalf("expected the untaggable episode to be reported, got %#v", results)
	}
	ep := results[0].Episodes[0]
	if ep.Err != nil {
		t.Fatalf("tag failure must not set Err, got %v", ep.Err)
	}
	if podcast.Kind(ep.TagErr) != podcast.KindUnsupported {
		t.Fatalf("expected unsupported TagErr, got %v", ep.TagErr)
	}
	if _, ok := f.repo.Seen(sub.FeedURL)["t"]; !ok {
		t.Fatal("expected untaggable episode to be recorded")
	}
}

func TestExecuteEmpty(t *testing.T) {
	f := newFixture(t)
	results, err := f.runner(t).Execute(context.Background())
	if err != nil || results != nil {
		t.Fatalf("expected nil, nil for no subscriptions, got %#v %v", results, err)
	}
	if f.repo.RecordCalls() != 0 {
		t.Fatal("expected no store writes without subscriptions")
	}

	sub := f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "", item("a", "A", "https://cdn.example.com/a.mp3")))
	f.repo.MarkSeen(sub.FeedURL, "a")
	results, err = f.runner(t).Execute(context.Background())
	if err != nil || results != nil {
		t.Fatalf("expected nil, nil when everything is seen, got %#v %v", results, err)
	}
}

func TestExecuteFatalStoreErrors(t *testing.T) {
	f := newFixture(t)
	f.repo.ListErr = errors.New("database is locked")
	_, err := f.runner(t).Execute(context.Background())
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}

	f = newFixture(t)
	audio := f.srv.File("/media/a.mp3", testsupport.MP3Payload())
	f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "", item("a", "A", audio)))
	f.repo.RecordErr = errors.New("disk full")
	_, err = f.runner(t).Execute(context.Background())
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected barrier write failure to be fatal, got %v", err)
	}
}

func TestExecuteSkipsFeedWhenHistoryUnreadable(t *testing.T) {
	f := newFixture(t)
	audio := f.srv.File("/media/a.mp3", testsupport.MP3Payload())
	f.subscribe(t, "Show", "/show.xml", testsupport.RSS("Show", "", item("a", "A", audio)))
	f.repo.SeenErr = errors.New("read failed")

	results, err := f.runner(t).Execute(context.Background())
	if err != nil || results != nil {
		t.Fatalf("expected feed to be skipped, got %#v %v", results, err)
	}
	if f.srv.Hits("/show.xml") != 0 {
		t.Fatal("feed must not be fetched without its history")
	}
}

type countingDownloader struct {
	active, peak atomic.Int32
}

func (d *countingDownloader) Download(_ context.Context, ep podcast.Episode) (int64, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	if ep.ID == "fail" {
		return 0, &podcast.DownloadError{Kind: podcast.KindNetwork, Err: errors.New("reset")}
	}
	return 1, nil
}

type nopTagger struct{}

func (nopTagger) Tag(podcast.Episode) error { return nil }

type recordingObserver struct {
	mu       sync.Mutex
	updating []string
	started  []string
	finished []string
}

func (o *recordingObserver) FeedUpdating(sub podcast.Subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updating = append(o.updating, sub.Name)
}

func (o *recordingObserver) EpisodeDownloading(ep podcast.Episode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, ep.ID)
}

func (o *recordingObserver) EpisodeFinished(ep podcast.Episode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, ep.ID)
}

func TestRunBoundsConcurrencyAndWritesOnce(t *testing.T) {
	repo := testsupport.NewMemoryRepository()
	dl := &countingDownloader{}
	obs := &recordingObserver{}
	r, err := pipeline.New(pipeline.Options{
		Repository:      repo,
		Source:          feed.NewFetcher(feed.Options{}),
		Downloader:      dl,
		Tagger:          nopTagger{},
		DownloadWorkers: 2,
		Observer:        obs,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}

	var eps []podcast.Episode
	for _, id := range []string{"a", "b", "fail", "c", "d", "e"} {
		eps = append(eps, podcast.Episode{ID: id, PodcastURL: "https://feeds.example.com/x.xml"})
	}
	out, err := r.Run(context.Background(), eps)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(out) != len(eps) {
		t.Fatalf("expected %d results, got %d", len(eps), len(out))
	}
	for i := range eps {
		if out[i].ID != eps[i].ID {
			t.Fatalf("result %d out of order: %s", i, out[i].ID)
		}
	}
	if out[2].Err == nil {
		t.Fatal("expected failure to be carried on the episode")
	}
	if p := dl.peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent downloads, saw %d", p)
	}
	if repo.RecordCalls() != 1 {
		t.Fatalf("expected one store write after the barrier, got %d", repo.RecordCalls())
	}
	if seen := repo.Seen("https://feeds.example.com/x.xml"); len(seen) != 5 {
		t.Fatalf("expected 5 recorded ids, got %v", seen)
	}
	if len(obs.started) != 6 || len(obs.finished) != 6 {
		t.Fatalf("unexpected observer calls %d/%d", len(obs.started), len(obs.finished))
	}
}

func TestRunAfterCancelMarksEpisodesFailed(t *testing.T) {
	repo := testsupport.NewMemoryRepository()
	r, err := pipeline.New(pipeline.Options{
		Repository: repo,
		Source:     feed.NewFetcher(feed.Options{}),
		Downloader: &countingDownloader{},
		Tagger:     nopTagger{},
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.Run(ctx, []podcast.Episode{{ID: "a", PodcastURL: "u"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !errors.Is(out[0].Err, context.Canceled) {
		t.Fatalf("expected cancellation on unstarted episode, got %v", out[0].Err)
	}
	if len(repo.Seen("u")) != 0 {
		t.Fatal("cancelled episode must not be recorded")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := pipeline.New(pipeline.Options{}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}
