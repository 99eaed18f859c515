package bridge

// ClientMessage is the JSON structure received from the browser page.
//
// Types:
//
//	hello   page capabilities and environment, sent once after connect
//	frame   unsolicited canvas snapshot
//	result  reply to a server request, matched by ID
//	event   game event (highScore, achievement, gameEnd)
//	share, settings   player actions handled by the server
type ClientMessage struct {
	Type string `json:"t"`
	ID   string `json:"id,omitempty"`

	UserAgent  string `json:"ua,omitempty"`
	Referrer   string `json:"ref,omitempty"`
	Query      string `json:"q,omitempty"`
	WebShare   bool   `json:"ws,omitempty"`
	ShareFiles bool   `json:"wsf,omitempty"`

	PNG string `json:"png,omitempty"` // base64

	Kind        string  `json:"k,omitempty"`
	Platform    string  `json:"pl,omitempty"`
	Score       int     `json:"s,omitempty"`
	Stage       int     `json:"st,omitempty"`
	Combo       int     `json:"c,omitempty"`
	Accuracy    float64 `json:"a,omitempty"`
	IsHighScore bool    `json:"hs,omitempty"`
	Achievement string  `json:"ach,omitempty"`
	Text        string  `json:"tx,omitempty"`
	Screenshot  bool    `json:"shot,omitempty"`
	AutoPrompt  *bool   `json:"ap,omitempty"`

	OK    bool   `json:"ok,omitempty"`
	Error string `json:"err,omitempty"`
}

// ServerMessage is the JSON structure sent to the browser page.
type ServerMessage struct {
	Type   string            `json:"t"`
	ID     string            `json:"id,omitempty"`
	Title  string            `json:"ti,omitempty"`
	Text   string            `json:"tx,omitempty"`
	URL    string            `json:"u,omitempty"`
	Files  []FileRef         `json:"f,omitempty"`
	Name   string            `json:"n,omitempty"`
	Width  int               `json:"w,omitempty"`
	Height int               `json:"h,omitempty"`
	Tags   map[string]string `json:"og,omitempty"`
	Kind   string            `json:"k,omitempty"`
	Score  int               `json:"s,omitempty"`
	Result *Outcome          `json:"r,omitempty"`
}

// FileRef points the page at an attachment. Data is set only when the file
// has no served URL.
type FileRef struct {
	Name string `json:"n"`
	Type string `json:"type"`
	URL  string `json:"u,omitempty"`
	Data string `json:"d,omitempty"`
}

// Outcome reports a finished share back to the page.
type Outcome struct {
	Success  bool   `json:"ok"`
	Method   string `json:"m,omitempty"`
	Platform string `json:"pl,omitempty"`
	Error    string `json:"err,omitempty"`
	Fallback bool   `json:"fb,omitempty"`
	URL      string `json:"u,omitempty"`
}

// abortError is the DOMException name browsers use for a dismissed share
// sheet.
const abortError = "AbortError"

const (
	msgHello    = "hello"
	msgFrame    = "frame"
	msgResult   = "result"
	msgEvent    = "event"
	msgShare    = "share"
	msgOpen     = "open"
	msgCopy     = "copy"
	msgCapture  = "capture"
	msgOG       = "og"
	msgPrompt   = "prompt"
	msgShared   = "shared"
	msgSettings = "settings"
	msgWelcome  = "welcome"
)

// Player action types delivered to a RequestHandler.
const (
	RequestShare    = msgShare
	RequestSettings = msgSettings
)

// Game event kinds carried by "event" messages.
const (
	KindHighScore   = "highScore"
	KindAchievement = "achievement"
	KindGameEnd     = "gameEnd"
)
