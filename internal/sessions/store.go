package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"bubblepop/internal/bridge"
	"bubblepop/internal/capture"
	"bubblepop/internal/sharing"
)

// Session is everything the server holds for one connected player.
type Session struct {
	PlayerID  string
	Manager   *sharing.Manager
	Capture   *capture.Capture
	Bridge    *bridge.Session
	Connected time.Time
	Cancel    context.CancelFunc // stops the event listener
}

func (s *Session) close() {
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Manager != nil {
		s.Manager.Cleanup()
	}
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Add registers sess, closing any older session for the same player.
func (s *Store) Add(sess *Session) {
	s.mu.Lock()
	old := s.sessions[sess.PlayerID]
	s.sessions[sess.PlayerID] = sess
	s.mu.Unlock()
	if old != nil && old != sess {
		old.close()
	}
}

func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// GetList returns sessions ordered by player id.
func (s *Store) GetList() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PlayerID < list[j].PlayerID })
	return list
}

// Remove closes sess and drops it unless a newer session replaced it.
func (s *Store) Remove(sess *Session) {
	s.mu.Lock()
	if s.sessions[sess.PlayerID] == sess {
		delete(s.sessions, sess.PlayerID)
	}
	s.mu.Unlock()
	sess.close()
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll closes and drops every session.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
}
