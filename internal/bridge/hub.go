package bridge

import (
	"log"
	"sync"
)

// Hub tracks the connected session for each player.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
	}
}

// Register adds a session. A previous session for the same player is
// closed and replaced.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	old := h.sessions[s.PlayerID]
	h.sessions[s.PlayerID] = s
	h.mu.Unlock()

	if old != nil && old != s {
		log.Printf("[Bridge] Replacing session for %s\n", s.PlayerID)
		old.Close()
	}
}

// Unregister removes s and closes it. It leaves a newer session for the
// same player in place.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if h.sessions[s.PlayerID] == s {
		delete(h.sessions, s.PlayerID)
	}
	h.mu.Unlock()
	s.Close()
}

func (h *Hub) Get(playerID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[playerID]
	return s, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every session, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
