package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"bubblepop/internal/blobs"
	"bubblepop/internal/bridge"
	"bubblepop/internal/broadcast"
	"bubblepop/internal/config"
	"bubblepop/internal/db"
	"bubblepop/internal/metrics"
	"bubblepop/internal/overlay"
	"bubblepop/internal/sessions"
)

func Run() error {
	appCfg := config.Load()

	ov, err := overlay.New()
	if err != nil {
		return fmt.Errorf("creating overlay renderer: %w", err)
	}
	defer ov.Close()

	srv := &Server{
		Config:   appCfg,
		Hub:      bridge.NewHub(),
		Sessions: sessions.NewStore(),
		Blobs:    blobs.NewStore(),
		Feed:     broadcast.NewBroadcaster(),
		Metrics:  metrics.New(),
		Overlay:  ov,
	}
	defer srv.Sessions.CloseAll()

	// Optional database connection
	if appCfg.DatabaseURL != "" {
		database, err := db.Connect(appCfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Failed to connect: %v (running without database)\n", err)
		} else {
			if err := database.Migrate(); err != nil {
				log.Printf("[DB] Migration failed: %v\n", err)
			}
			srv.DB = database
			srv.EventBuffer = make(chan db.ShareEvent, 1000)
			go shareEventWriter(database, srv.EventBuffer)
			log.Println("[DB] Database connected and migrations applied")
		}
	} else {
		log.Println("[DB] DATABASE_URL not set, running without database")
	}
	srv.Settings = newSettingsFactory(srv.DB, appCfg.SettingsDir)

	addr := "0.0.0.0:" + appCfg.Port
	fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
	return http.ListenAndServe(addr, srv.Routes())
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", s.handleBridge)
	mux.Handle("GET "+blobs.Prefix+"{id}", s.Blobs)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /analytics/player/{id}", s.handleAnalyticsPlayer)
	mux.HandleFunc("GET /analytics/channels", s.handleAnalyticsChannels)
	mux.HandleFunc("GET /analytics/stream", s.handleActivityStream)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}
	return mux
}

func shareEventWriter(database *db.DB, buffer chan db.ShareEvent) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]db.ShareEvent, 0, 50)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := database.BatchRecordShareEvents(batch); err != nil {
			log.Printf("[DB] BatchRecordShareEvents error: %v\n", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-buffer:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
