package blobs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Prefix is the path under which object URLs are served.
const Prefix = "/blob/"

type blob struct {
	data        []byte
	contentType string
}

type Stats struct {
	Created int
	Revoked int
}

// Store holds in-memory binary data behind object URLs. Every URL it hands
// out must be revoked exactly once by its owner.
type Store struct {
	mu    sync.Mutex
	blobs map[string]blob
	stats Stats
}

func NewStore() *Store {
	return &Store{blobs: make(map[string]blob)}
}

// Create stores data and returns its object URL.
func (s *Store) Create(data []byte, contentType string) string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = blob{data: data, contentType: contentType}
	s.stats.Created++
	return Prefix + id
}

// Revoke releases the data behind url. It reports false for unknown or
// already revoked URLs, which leave the counters untouched.
func (s *Store) Revoke(url string) bool {
	id := strings.TrimPrefix(url, Prefix)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return false
	}
	delete(s.blobs, id)
	s.stats.Revoked++
	return true
}

// Get returns the data and content type for an object URL or bare id.
func (s *Store) Get(url string) ([]byte, string, bool) {
	id := strings.TrimPrefix(url, Prefix)

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	return b.data, b.contentType, ok
}

// Live returns the number of URLs not yet revoked.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ServeHTTP serves GET /blob/{id}.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		id = strings.TrimPrefix(r.URL.Path, Prefix)
	}
	data, contentType, ok := s.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(data)
}
