package testsupport

import (
	"context"
	"sync"
	"testing"

	"podd/internal/config"
	"podd/internal/podcast"
	"podd/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// MemoryRepository is an in-memory podcast.Repository.
type MemoryRepository struct {
	mu        sync.Mutex
	subs      []podcast.Subscription
	seen      map[string]map[string]struct{}
	records   int
	ListErr   error
	SeenErr   error
	RecordErr error
}

var _ podcast.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository seeds the repository with subs.
func NewMemoryRepository(subs ...podcast.Subscription) *MemoryRepository {
	return &MemoryRepository{subs: subs, seen: map[string]map[string]struct{}{}}
}

// ListSubscriptions implements podcast.Repository.
func (r *MemoryRepository) ListSubscriptions(context.Context) ([]podcast.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	return append([]podcast.Subscription(nil), r.subs...), nil
}

// SeenEpisodes implements podcast.Repository.
func (r *MemoryRepository) SeenEpisodes(_ context.Context, feedURL string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SeenErr != nil {
		return nil, r.SeenErr
	}
	out := make(map[string]struct{}, len(r.seen[feedURL]))
	for id := range r.seen[feedURL] {
		out[id] = struct{}{}
	}
	return out, nil
}

// RecordEpisodes implements podcast.Repository.
func (r *MemoryRepository) RecordEpisodes(_ context.Context, refs []podcast.EpisodeRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records++
	if r.RecordErr != nil {
		return r.RecordErr
	}
	for _, ref := range refs {
		r.markLocked(ref.FeedURL, ref.EpisodeID)
	}
	return nil
}

// MarkSeen records ids for feedURL directly.
func (r *MemoryRepository) MarkSeen(feedURL string, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.markLocked(feedURL, id)
	}
}

// Seen returns a copy of the seen set for feedURL.
func (r *MemoryRepository) Seen(feedURL string) map[string]struct{} {
	seen, _ := r.SeenEpisodes(context.Background(), feedURL)
	return seen
}

// RecordCalls reports how many times RecordEpisodes ran.
func (r *MemoryRepository) RecordCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records
}

func (r *MemoryRepository) markLocked(feedURL, id string) {
	set, ok := r.seen[feedURL]
	if !ok {
		set = map[string]struct{}{}
		r.seen[feedURL] = set
	}
	set[id] = struct{}{}
}
