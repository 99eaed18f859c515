package capture

import (
	"sync"
	"time"
)

// HistoryLimit is the number of captures kept before the oldest is evicted.
const HistoryLimit = 10

type Entry struct {
	Timestamp time.Time
	Filename  string
	Format    Format
	Size      int
	URL       string
}

// History is a bounded list of recent captures. Evicting an entry revokes
// its object URL.
type History struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	revoke  func(url string) bool
}

func NewHistory(limit int, revoke func(url string) bool) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{limit: limit, revoke: revoke}
}

func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	for len(h.entries) > h.limit {
		h.release(h.entries[0])
		h.entries = h.entries[1:]
	}
}

// Entries returns the history oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear revokes every URL and empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		h.release(e)
	}
	h.entries = nil
}

func (h *History) release(e Entry) {
	if h.revoke != nil && e.URL != "" {
		h.revoke(e.URL)
	}
}
