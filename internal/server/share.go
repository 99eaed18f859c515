package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"bubblepop/internal/achievements"
	"bubblepop/internal/bridge"
	"bubblepop/internal/capture"
	"bubblepop/internal/sessions"
	"bubblepop/internal/settings"
	"bubblepop/internal/sharing"
)

// screenshotOptions keep shared screenshots small enough for social
// previews.
var screenshotOptions = capture.Options{
	Format:    capture.FormatPNG,
	Quality:   capture.QualityHigh,
	MaxWidth:  1200,
	MaxHeight: 1200,
	Optimize:  true,
}

// handleRequest serves player actions arriving over the bridge.
func (s *Server) handleRequest(sess *sessions.Session) bridge.RequestHandler {
	return func(ctx context.Context, bs *bridge.Session, msg bridge.ClientMessage) {
		switch msg.Type {
		case bridge.RequestShare:
			res := s.share(ctx, sess.Manager, msg)
			s.publishActivity(bs.PlayerID, msg.Kind, res)
			if err := bs.Notify(msg.ID, res); err != nil {
				log.Printf("[Bridge] Share result to %s failed: %v\n", bs.PlayerID, err)
			}
		case bridge.RequestSettings:
			if msg.AutoPrompt != nil {
				sess.Manager.UpdateSettings(func(st *settings.Settings) { st.AutoPrompt = *msg.AutoPrompt })
			}
			if err := bs.SendSettings(msg.ID, sess.Manager.Settings()); err != nil {
				log.Printf("[Bridge] Settings to %s failed: %v\n", bs.PlayerID, err)
			}
		default:
			log.Printf("[Bridge] Unknown request %q from %s\n", msg.Type, bs.PlayerID)
		}
	}
}

// share runs the share a player asked for. Screenshot shares go through
// the overlay renderer when one is configured.
func (s *Server) share(ctx context.Context, m *sharing.Manager, msg bridge.ClientMessage) sharing.ShareResult {
	opts := sharing.ShareOptions{
		Platform:    msg.Platform,
		IsHighScore: msg.IsHighScore,
		Stage:       msg.Stage,
		Combo:       msg.Combo,
		Accuracy:    msg.Accuracy,
	}

	var data sharing.ShareData
	switch sharing.ShareType(msg.Kind) {
	case sharing.TypeScore:
		data = m.ScoreData(msg.Score, opts)
	case sharing.TypeAchievement:
		a, ok := achievements.Lookup(msg.Achievement)
		if !ok {
			return failed(msg.Platform, fmt.Errorf("unknown achievement %q", msg.Achievement))
		}
		data = m.AchievementData(a.Name, a.Description, string(a.Rarity), opts)
	case sharing.TypeChallenge:
		if !msg.Screenshot {
			return m.ShareChallenge(ctx, msg.Score, opts)
		}
		var err error
		if data, err = m.ChallengeData(msg.Score, opts); err != nil {
			return failed(msg.Platform, err)
		}
	case sharing.TypeCustom:
		data = m.CustomData(msg.Text, opts)
	default:
		return failed(msg.Platform, fmt.Errorf("unknown share kind %q", msg.Kind))
	}

	if !msg.Screenshot {
		return m.ShareTo(ctx, msg.Platform, data)
	}
	var (
		res sharing.ShareResult
		err error
	)
	if s.Overlay != nil {
		res, err = m.ShareWithOverlayScreenshot(ctx, msg.Platform, data, nil, screenshotOptions)
	} else {
		res, err = m.ShareWithScreenshot(ctx, msg.Platform, data, screenshotOptions)
	}
	if err != nil {
		log.Printf("[Share] Screenshot share unavailable: %v\n", err)
		return m.ShareTo(ctx, msg.Platform, data)
	}
	return res
}

func failed(platform string, err error) sharing.ShareResult {
	return sharing.ShareResult{Success: false, Platform: platform, Error: err.Error()}
}

// activity is one entry on the live share feed.
type activity struct {
	PlayerID string `json:"playerId"`
	Kind     string `json:"kind"`
	Platform string `json:"platform"`
	Method   string `json:"method,omitempty"`
	Success  bool   `json:"success"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) publishActivity(playerID, kind string, res sharing.ShareResult) {
	if s.Feed == nil {
		return
	}
	data, err := json.Marshal(activity{
		PlayerID: playerID,
		Kind:     kind,
		Platform: res.Platform,
		Method:   res.Method,
		Success:  res.Success,
		Fallback: res.Fallback,
		Error:    res.Error,
	})
	if err != nil {
		log.Printf("[Server] encoding activity: %v\n", err)
		return
	}
	s.Feed.Broadcast("share", string(data))
}
