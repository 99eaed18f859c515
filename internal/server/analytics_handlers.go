package server

import (
	"encoding/json"
	"log"
	"net/http"

	"bubblepop/internal/analytics"
	"bubblepop/internal/broadcast"
	"bubblepop/internal/sharing"

	"github.com/spf13/cast"
)

type playerAnalytics struct {
	PlayerID string                      `json:"playerId"`
	Live     *analytics.PlayerShareStats `json:"live,omitempty"`
	Stored   *analytics.PlayerShareStats `json:"stored,omitempty"`
}

// handleAnalyticsPlayer reports a player's share stats: live counters from
// a connected session and stored totals when a database is configured.
func (s *Server) handleAnalyticsPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("id")
	resp := playerAnalytics{PlayerID: playerID}

	if sess := s.Sessions.Get(playerID); sess != nil {
		live := analytics.Summarize(playerID, sess.Manager.Stats())
		resp.Live = &live
	}
	if s.DB != nil {
		stored, err := analytics.NewQueries(s.DB).GetPlayerShareStats(playerID)
		if err != nil {
			log.Printf("[Analytics] player stats error: %v\n", err)
		} else {
			resp.Stored = stored
		}
	}
	if resp.Live == nil && resp.Stored == nil {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}
	writeJSON(w, resp)
}

// handleAnalyticsChannels ranks share channels. Without a database the
// ranking covers connected sessions only.
func (s *Server) handleAnalyticsChannels(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	if s.DB != nil {
		entries, err := analytics.NewQueries(s.DB).GetChannelLeaderboard(limit)
		if err != nil {
			log.Printf("[Analytics] leaderboard error: %v\n", err)
			http.Error(w, "Error loading leaderboard", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
		return
	}

	totals := sharing.PerformanceStats{}
	for _, sess := range s.Sessions.GetList() {
		for k, v := range sess.Manager.Stats() {
			totals[k] += v
		}
	}
	writeJSON(w, analytics.RankChannels(totals, limit))
}

// handleActivityStream streams finished shares as server-sent events.
func (s *Server) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		http.Error(w, "Activity stream disabled", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	msgChan := s.Feed.Subscribe()
	defer s.Feed.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			if err := broadcast.WriteSSE(w, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] encoding response: %v\n", err)
	}
}
