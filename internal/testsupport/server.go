package testsupport

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FeedServer serves generated feeds and media files over HTTP and counts
// requests per path.
type FeedServer struct {
	server *httptest.Server

	mu     sync.Mutex
	routes map[string]route
	hits   map[string]int
}

type route struct {
	status      int
	contentType string
	body        []byte
}

// NewFeedServer starts a server that is closed when the test ends.
func NewFeedServer(t testing.TB) *FeedServer {
	t.Helper()

	fs := &FeedServer{routes: map[string]route{}, hits: map[string]int{}}
	fs.server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.server.Close)
	return fs
}

// URL returns the absolute URL for path.
func (s *FeedServer) URL(path string) string {
	return s.server.URL + path
}

// Feed registers an RSS document at path and returns its URL.
func (s *FeedServer) Feed(path, body string) string {
	return s.set(path, route{status: http.StatusOK, contentType: "application/rss+xml", body: []byte(body)})
}

// File registers a media payload at path and returns its URL.
func (s *FeedServer) File(path string, body []byte) string {
	return s.set(path, route{status: http.StatusOK, contentType: "audio/mpeg", body: body})
}

// Status makes path answer with the given status code and returns its URL.
func (s *FeedServer) Status(path string, status int) string {
	return s.set(path, route{status: status, contentType: "text/plain", body: []byte(http.StatusText(status))})
}

// Hits reports how many requests path has received.
func (s *FeedServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *FeedServer) set(path string, r route) string {
	s.mu.Lock()
	s.routes[path] = r
	s.mu.Unlock()
	return s.URL(path)
}

func (s *FeedServer) serve(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	s.hits[req.URL.Path]++
	r, ok := s.routes[req.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", r.contentType)
	w.WriteHeader(r.status)
	_, _ = w.Write(r.body)
}
