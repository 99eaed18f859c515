package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bubblepop/internal/blobs"
	"bubblepop/internal/bridge"
	"bubblepop/internal/broadcast"
	"bubblepop/internal/capture"
	"bubblepop/internal/config"
	"bubblepop/internal/content"
	"bubblepop/internal/db"
	"bubblepop/internal/events"
	"bubblepop/internal/metrics"
	"bubblepop/internal/overlay"
	"bubblepop/internal/sessions"
	"bubblepop/internal/settings"
	"bubblepop/internal/sharing"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

type Server struct {
	Config      config.Config
	Hub         *bridge.Hub
	Sessions    *sessions.Store
	Blobs       *blobs.Store
	Feed        *broadcast.Broadcaster               // nil disables the activity stream
	Metrics     *metrics.Metrics                     // nil disables /metrics
	Overlay     *overlay.Overlay                     // nil shares plain screenshots
	Settings    func(playerID string) settings.Store // nil keeps settings in memory only
	DB          *db.DB                               // nil if no database configured
	EventBuffer chan db.ShareEvent                   // nil if no database configured
}

// handleBridge upgrades to a WebSocket and runs one player session until
// the page disconnects. ?player= resumes a known player id.
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		playerID = uuid.NewString()
	} else if _, err := uuid.Parse(playerID); err != nil {
		http.Error(w, "Invalid player id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[Bridge] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := s.openSession(ctx, playerID, conn, r.Header.Get("Accept-Language"))
	defer s.closeSession(sess)

	go sess.Bridge.WritePump(ctx)
	if err := sess.Bridge.Welcome(); err != nil {
		log.Printf("[Bridge] Welcome to %s failed: %v\n", playerID, err)
	}
	if err := sess.Bridge.SendSettings("", sess.Manager.Settings()); err != nil {
		log.Printf("[Bridge] Settings to %s failed: %v\n", playerID, err)
	}

	err = sess.Bridge.ReadPump(ctx)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Printf("[Bridge] %s disconnected\n", playerID)
	default:
		log.Printf("[Bridge] %s read error: %v\n", playerID, err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// openSession wires a share manager and capture pipeline to a bridge
// session and starts its event listener.
func (s *Server) openSession(ctx context.Context, playerID string, conn *websocket.Conn, lang string) *sessions.Session {
	bus := events.NewBus()
	bs := bridge.NewSession(playerID, conn, bus, s.Config.BridgeTimeout)

	captOpts := []capture.Option{capture.WithOptimizeThreshold(int(s.Config.CaptureOptimizeBytes))}
	if s.Blobs != nil {
		captOpts = append(captOpts, capture.WithURLStore(s.Blobs))
	}
	if s.Overlay != nil {
		captOpts = append(captOpts, capture.WithOverlay(s.Overlay))
	}
	if s.Metrics != nil {
		captOpts = append(captOpts, capture.WithObserver(s.Metrics.RecordCapture))
	}
	capt := capture.New(bs, captOpts...)

	if lang == "" {
		lang = s.Config.Language
	}
	opts := []sharing.Option{
		sharing.WithGenerator(content.NewGenerator(content.Options{Language: lang, URLReserve: s.Config.TwitterURLReserve})),
		sharing.WithNativeSharer(bs),
		sharing.WithWindowOpener(bs),
		sharing.WithClipboard(bs),
		sharing.WithEnvironment(bs),
		sharing.WithMetaUpdater(bs),
		sharing.WithPrompter(bs),
		sharing.WithCapture(capt),
		sharing.WithShareURL(s.Config.ShareURL),
		sharing.WithURLReserve(s.Config.TwitterURLReserve),
		sharing.WithFacebookAppID(s.Config.FacebookAppID),
	}
	if s.Settings != nil {
		opts = append(opts, sharing.WithSettingsStore(s.Settings(playerID)))
	}
	if s.Metrics != nil {
		opts = append(opts, sharing.WithRecorder(s.Metrics))
	}
	if s.EventBuffer != nil {
		opts = append(opts, sharing.WithRecorder(eventRecorder{playerID: playerID, buffer: s.EventBuffer}))
	}
	m := sharing.NewManager(opts...)
	m.Initialize()

	listenCtx, stop := context.WithCancel(ctx)
	go m.Listen(listenCtx, bus, playerID)

	sess := &sessions.Session{
		PlayerID:  playerID,
		Manager:   m,
		Capture:   capt,
		Bridge:    bs,
		Connected: time.Now(),
		Cancel:    stop,
	}
	bs.Handler = s.handleRequest(sess)
	s.Hub.Register(bs)
	s.Sessions.Add(sess)
	if s.Metrics != nil {
		s.Metrics.SessionOpened()
	}
	log.Printf("[Bridge] %s connected\n", playerID)
	return sess
}

func (s *Server) closeSession(sess *sessions.Session) {
	s.Hub.Unregister(sess.Bridge)
	s.Sessions.Remove(sess)
	if s.Metrics != nil {
		s.Metrics.SessionClosed()
	}
}

// eventRecorder queues share counters for the database batch writer.
// Non-blocking: drops if the buffer is full.
type eventRecorder struct {
	playerID string
	buffer   chan db.ShareEvent
}

func (r eventRecorder) Record(event string) {
	select {
	case r.buffer <- db.ShareEvent{PlayerID: r.playerID, Event: event, RecordedAt: time.Now()}:
	default:
		log.Printf("[DB] Share event buffer full, dropped %s\n", event)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"status": "ok", "sessions": s.Sessions.Count()}
	if s.Blobs != nil {
		resp["blobs"] = s.Blobs.Live()
	}
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			resp["status"] = "db_error"
			resp["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
	json.NewEncoder(w).Encode(resp)
}
