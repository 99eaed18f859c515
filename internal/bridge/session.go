package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"bubblepop/internal/events"
	"bubblepop/internal/sharing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// DefaultTimeout bounds how long a request waits for the page to reply.
const DefaultTimeout = 30 * time.Second

var (
	ErrClosed         = errors.New("bridge: session closed")
	ErrSendBufferFull = errors.New("bridge: send buffer full")
	ErrNoFrame        = errors.New("bridge: no frame available")
)

// RequestHandler receives player actions the session does not handle
// itself. It runs on its own goroutine so it may make bridge requests.
type RequestHandler func(ctx context.Context, s *Session, msg ClientMessage)

// Session is one connected game page. It stands in for the browser APIs
// the share manager and capture pipeline need.
type Session struct {
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte
	Handler  RequestHandler

	bus     *events.Bus
	timeout time.Duration

	mu      sync.Mutex
	hello   ClientMessage
	greeted bool
	frame   image.Image
	pending map[string]chan ClientMessage
	closed  bool
}

func NewSession(playerID string, conn *websocket.Conn, bus *events.Bus, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, 16),
		bus:      bus,
		timeout:  timeout,
		pending:  make(map[string]chan ClientMessage),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (s *Session) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.Send:
			if !ok {
				return
			}
			if err := s.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// ReadPump decodes client messages until the connection fails.
func (s *Session) ReadPump(ctx context.Context) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, s.Conn, &msg); err != nil {
			return err
		}
		s.Handle(ctx, msg)
	}
}

// Handle applies one client message.
func (s *Session) Handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case msgHello:
		s.mu.Lock()
		s.hello = msg
		s.greeted = true
		s.mu.Unlock()
	case msgFrame:
		img, err := decodePNG(msg.PNG)
		if err != nil {
			log.Printf("[Bridge] Bad frame from %s: %v\n", s.PlayerID, err)
			return
		}
		s.mu.Lock()
		s.frame = img
		s.mu.Unlock()
	case msgResult:
		s.resolve(msg)
	case msgEvent:
		s.publish(msg)
	default:
		if s.Handler == nil {
			log.Printf("[Bridge] Unhandled message %q from %s\n", msg.Type, s.PlayerID)
			return
		}
		go s.Handler(ctx, s, msg)
	}
}

func (s *Session) resolve(msg ClientMessage) {
	s.mu.Lock()
	ch, ok := s.pending[msg.ID]
	delete(s.pending, msg.ID)
	s.mu.Unlock()
	if !ok {
		log.Printf("[Bridge] Stale result %s from %s\n", msg.ID, s.PlayerID)
		return
	}
	ch <- msg
}

func (s *Session) publish(msg ClientMessage) {
	var ev any
	switch msg.Kind {
	case KindHighScore:
		ev = events.HighScoreEvent{PlayerID: s.PlayerID, Score: msg.Score, Stage: msg.Stage, Combo: msg.Combo, Accuracy: msg.Accuracy}
	case KindAchievement:
		ev = events.AchievementEvent{PlayerID: s.PlayerID, AchievementID: msg.Achievement}
	case KindGameEnd:
		ev = events.GameEndEvent{PlayerID: s.PlayerID, Score: msg.Score, Stage: msg.Stage, IsHighScore: msg.IsHighScore, Combo: msg.Combo, Accuracy: msg.Accuracy}
	default:
		log.Printf("[Bridge] Unknown event kind %q from %s\n", msg.Kind, s.PlayerID)
		return
	}
	if s.bus == nil || !s.bus.Publish(ev) {
		log.Printf("[Bridge] Dropped %s event from %s\n", msg.Kind, s.PlayerID)
	}
}

// push queues msg without waiting for a reply. Non-blocking: fails if the
// send buffer is full.
func (s *Session) push(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", msg.Type, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// request sends msg with a fresh id and waits for the matching result.
func (s *Session) request(ctx context.Context, msg ServerMessage) (ClientMessage, error) {
	msg.ID = uuid.NewString()
	ch := make(chan ClientMessage, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ClientMessage{}, ErrClosed
	}
	s.pending[msg.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.push(msg); err != nil {
		return ClientMessage{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	select {
	case reply, ok := <-ch:
		if !ok {
			return ClientMessage{}, ErrClosed
		}
		return reply, nil
	case <-ctx.Done():
		return ClientMessage{}, fmt.Errorf("waiting for %s reply: %w", msg.Type, ctx.Err())
	}
}

// Close stops the session and fails every outstanding request. Calling it
// again is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Send)
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

func replyError(op string, reply ClientMessage) error {
	if reply.OK {
		return nil
	}
	if reply.Error == abortError {
		return fmt.Errorf("%s: %w", op, sharing.ErrAborted)
	}
	if reply.Error == "" {
		return fmt.Errorf("%s failed", op)
	}
	return fmt.Errorf("%s: %s", op, reply.Error)
}

// Available reports whether the page has the Web Share API.
func (s *Session) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeted && s.hello.WebShare
}

// CanShare reports whether the page can share p, which needs file support
// when p carries files.
func (s *Session) CanShare(p sharing.NativePayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.greeted || !s.hello.WebShare {
		return false
	}
	return len(p.Files) == 0 || s.hello.ShareFiles
}

func (s *Session) Share(ctx context.Context, p sharing.NativePayload) error {
	reply, err := s.request(ctx, ServerMessage{
		Type:  msgShare,
		Title: p.Title,
		Text:  p.Text,
		URL:   p.URL,
		Files: fileRefs(p.Files),
	})
	if err != nil {
		return err
	}
	return replyError("native share", reply)
}

func fileRefs(files []sharing.File) []FileRef {
	if len(files) == 0 {
		return nil
	}
	refs := make([]FileRef, 0, len(files))
	for _, f := range files {
		ref := FileRef{Name: f.Name, Type: f.ContentType, URL: f.URL}
		if ref.URL == "" {
			ref.Data = base64.StdEncoding.EncodeToString(f.Data)
		}
		refs = append(refs, ref)
	}
	return refs
}

// Open asks the page to open a popup. A reply with ok false means the
// browser blocked it.
func (s *Session) Open(ctx context.Context, target, name string, width, height int) (bool, error) {
	reply, err := s.request(ctx, ServerMessage{Type: msgOpen, URL: target, Name: name, Width: width, Height: height})
	if err != nil {
		return false, err
	}
	return reply.OK, nil
}

func (s *Session) WriteText(ctx context.Context, text string) error {
	reply, err := s.request(ctx, ServerMessage{Type: msgCopy, Text: text})
	if err != nil {
		return err
	}
	return replyError("clipboard write", reply)
}

func (s *Session) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hello.UserAgent
}

func (s *Session) Referrer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hello.Referrer
}

// Query returns the page's query parameters. Malformed pairs are skipped.
func (s *Session) Query() url.Values {
	s.mu.Lock()
	raw := s.hello.Query
	s.mu.Unlock()
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return values
}

// Frame asks the page for a fresh canvas snapshot. When the page cannot
// supply one, the last pushed frame is used instead.
func (s *Session) Frame(ctx context.Context) (image.Image, error) {
	reply, err := s.request(ctx, ServerMessage{Type: msgCapture})
	if err == nil && reply.OK {
		img, decErr := decodePNG(reply.PNG)
		if decErr == nil {
			s.mu.Lock()
			s.frame = img
			s.mu.Unlock()
			return img, nil
		}
		err = decErr
	} else if err == nil {
		err = replyError("canvas capture", reply)
	}

	s.mu.Lock()
	cached := s.frame
	s.mu.Unlock()
	if cached != nil {
		log.Printf("[Bridge] Using cached frame for %s: %v\n", s.PlayerID, err)
		return cached, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
}

func decodePNG(encoded string) (image.Image, error) {
	if encoded == "" {
		return nil, errors.New("empty frame")
	}
	encoded = encoded[strings.IndexByte(encoded, ',')+1:]
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return img, nil
}

// UpdateOpenGraph pushes meta tags to the page.
func (s *Session) UpdateOpenGraph(_ context.Context, tags map[string]string) error {
	return s.push(ServerMessage{Type: msgOG, Tags: tags})
}

// PromptShare asks the page to offer a share button for data.
func (s *Session) PromptShare(_ context.Context, data sharing.ShareData) error {
	return s.push(ServerMessage{
		Type:  msgPrompt,
		Kind:  string(data.Type),
		Score: data.Score,
		Title: data.Title,
		Text:  data.Text,
		Name:  data.Name,
		URL:   data.URL,
	})
}

// Notify reports a finished share. id echoes the request that started it.
func (s *Session) Notify(id string, res sharing.ShareResult) error {
	return s.push(ServerMessage{
		Type: msgShared,
		ID:   id,
		Result: &Outcome{
			Success:  res.Success,
			Method:   res.Method,
			Platform: res.Platform,
			Error:    res.Error,
			Fallback: res.Fallback,
			URL:      res.URL,
		},
	})
}

// Welcome tells the page which player id it is connected as.
func (s *Session) Welcome() error {
	return s.push(ServerMessage{Type: msgWelcome, Name: s.PlayerID})
}

// SendSettings pushes the player's current share settings.
func (s *Session) SendSettings(id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	return s.push(ServerMessage{Type: msgSettings, ID: id, Text: string(data)})
}
