package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bubblepop/internal/blobs"
	"bubblepop/internal/bridge"
	"bubblepop/internal/broadcast"
	"bubblepop/internal/config"
	"bubblepop/internal/metrics"
	"bubblepop/internal/sessions"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := &Server{
		Config: config.Config{
			ShareURL:          "https://bubblepop.game/",
			Language:          "en",
			TwitterURLReserve: 23,
			BridgeTimeout:     2 * time.Second,
		},
		Hub:      bridge.NewHub(),
		Sessions: sessions.NewStore(),
		Blobs:    blobs.NewStore(),
		Feed:     broadcast.NewBroadcaster(),
		Metrics:  metrics.New(),
	}
	srv.Settings = newSettingsFactory(nil, "")

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/bridge?player="+playerID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads server messages, skipping others, until one of type typ
// arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) bridge.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var msg bridge.ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg bridge.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write %s: %v", msg.Type, err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["sessions"] != float64(0) {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestBlobServing(t *testing.T) {
	srv, ts := newTestServer(t)
	url := srv.Blobs.Create([]byte("png-bytes"), "image/png")

	resp, err := http.Get(ts.URL + url)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "png-bytes" {
		t.Fatalf("GET %s = %d %q", url, resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	srv.Blobs.Revoke(url)
	resp, err = http.Get(ts.URL + url)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("revoked blob status = %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "bubblepop_bridge_sessions") {
		t.Errorf("metrics output missing session gauge:\n%s", body)
	}
}

func TestBridgeRejectsBadPlayerID(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/bridge?player=../../etc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestBridgeWelcomeAssignsPlayerID(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts, "")

	welcome := readUntil(t, conn, "welcome")
	if _, err := uuid.Parse(welcome.Name); err != nil {
		t.Fatalf("welcome player id %q is not a uuid", welcome.Name)
	}
	settingsMsg := readUntil(t, conn, "settings")
	if !strings.Contains(settingsMsg.Text, `"autoPrompt":true`) {
		t.Errorf("settings = %s", settingsMsg.Text)
	}
	waitFor(t, func() bool { return srv.Sessions.Count() == 1 })
}

func TestBridgeCopyShare(t *testing.T) {
	_, ts := newTestServer(t)
	playerID := uuid.NewString()
	conn := dial(t, ts, playerID)
	readUntil(t, conn, "settings")

	send(t, conn, bridge.ClientMessage{Type: "hello", UserAgent: "Mozilla/5.0"})
	send(t, conn, bridge.ClientMessage{Type: "share", ID: "r1", Kind: "score", Score: 12500, Platform: "copy"})

	req := readUntil(t, conn, "copy")
	if !strings.Contains(req.Text, "https://bubblepop.game/") {
		t.Errorf("clipboard text %q missing link", req.Text)
	}
	send(t, conn, bridge.ClientMessage{Type: "result", ID: req.ID, OK: true})

	shared := readUntil(t, conn, "shared")
	if shared.ID != "r1" || shared.Result == nil || !shared.Result.Success || shared.Result.Method != "copy" {
		t.Fatalf("unexpected result: %+v", shared)
	}

	resp, err := http.Get(ts.URL + "/analytics/player/" + playerID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Live struct {
			Requests   int
			Successful int
			TopChannel string
		} `json:"live"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Live.Requests != 1 || body.Live.Successful != 1 || body.Live.TopChannel != "copy" {
		t.Errorf("live stats = %+v", body.Live)
	}
}

func TestBridgePopupBlocked(t *testing.T) {
	srv, ts := newTestServer(t)
	feed := srv.Feed.Subscribe()
	conn := dial(t, ts, uuid.NewString())
	readUntil(t, conn, "settings")

	send(t, conn, bridge.ClientMessage{Type: "share", ID: "r2", Kind: "score", Score: 500, Platform: "twitter"})

	open := readUntil(t, conn, "open")
	if open.Name != "bubblepop-twitter" || !strings.HasPrefix(open.URL, "https://twitter.com/intent/tweet") {
		t.Fatalf("unexpected open request: %+v", open)
	}
	send(t, conn, bridge.ClientMessage{Type: "result", ID: open.ID, OK: false})

	shared := readUntil(t, conn, "shared")
	if shared.Result == nil || shared.Result.Success || shared.Result.Error != "popup blocked" {
		t.Fatalf("unexpected result: %+v", shared.Result)
	}

	select {
	case msg := <-feed:
		if msg.Event != "share" || !strings.Contains(msg.Data, `"platform":"twitter"`) || !strings.Contains(msg.Data, `"success":false`) {
			t.Errorf("unexpected activity: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no activity published")
	}
}

func TestBridgeScreenshotShare(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts, uuid.NewString())
	readUntil(t, conn, "settings")

	send(t, conn, bridge.ClientMessage{Type: "share", ID: "r3", Kind: "score", Score: 900, Platform: "copy", Screenshot: true})

	capReq := readUntil(t, conn, "capture")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatal(err)
	}
	send(t, conn, bridge.ClientMessage{Type: "result", ID: capReq.ID, OK: true, PNG: base64.StdEncoding.EncodeToString(buf.Bytes())})

	copyReq := readUntil(t, conn, "copy")
	send(t, conn, bridge.ClientMessage{Type: "result", ID: copyReq.ID, OK: true})

	shared := readUntil(t, conn, "shared")
	if shared.Result == nil || !shared.Result.Success || shared.Result.Fallback {
		t.Fatalf("unexpected result: %+v", shared.Result)
	}
	if srv.Blobs.Live() != 1 {
		t.Errorf("live blobs = %d, want 1 screenshot", srv.Blobs.Live())
	}
}

func TestBridgeHighScorePrompt(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, uuid.NewString())
	readUntil(t, conn, "settings")

	send(t, conn, bridge.ClientMessage{Type: "event", Kind: bridge.KindHighScore, Score: 5000, Stage: 4})

	prompt := readUntil(t, conn, "prompt")
	if prompt.Kind != "score" || prompt.Score != 5000 {
		t.Fatalf("unexpected prompt: %+v", prompt)
	}
}

func TestBridgeSettingsPersistAcrossReconnect(t *testing.T) {
	srv, ts := newTestServer(t)
	playerID := uuid.NewString()
	conn := dial(t, ts, playerID)
	readUntil(t, conn, "settings")

	off := false
	send(t, conn, bridge.ClientMessage{Type: "settings", ID: "s1", AutoPrompt: &off})
	got := readUntil(t, conn, "settings")
	if got.ID != "s1" || !strings.Contains(got.Text, `"autoPrompt":false`) {
		t.Fatalf("unexpected settings reply: %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return srv.Sessions.Count() == 0 })

	conn = dial(t, ts, playerID)
	got = readUntil(t, conn, "settings")
	if !strings.Contains(got.Text, `"autoPrompt":false`) {
		t.Errorf("settings after reconnect = %s", got.Text)
	}
}

func TestAnalyticsPlayerNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/analytics/player/" + uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAnalyticsChannelsFromLiveSessions(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/analytics/channels?limit=3")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("body = %s, want empty list", body)
	}
}
