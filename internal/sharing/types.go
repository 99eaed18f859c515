package sharing

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"bubblepop/internal/capture"
	"bubblepop/internal/content"
	"bubblepop/internal/overlay"
)

type ShareType string

const (
	TypeScore       ShareType = "score"
	TypeAchievement ShareType = "achievement"
	TypeChallenge   ShareType = "challenge"
	TypeCustom      ShareType = "custom"
)

// Platforms and channel ids. A resolved platform is also the channel
// (method) used, except generic which resolves to web-share or copy.
const (
	PlatformWebShare = "web-share"
	PlatformTwitter  = "twitter"
	PlatformFacebook = "facebook"
	PlatformCopy     = "copy"
	PlatformGeneric  = "generic"
)

// UserCancelled is the result error for a dismissed native share sheet.
const UserCancelled = "user_cancelled"

var (
	ErrWebShareUnavailable  = errors.New("web share not available")
	ErrAborted              = errors.New("share aborted by user")
	ErrPopupBlocked         = errors.New("popup blocked")
	ErrCaptureUnavailable   = errors.New("screenshot capture not initialized")
	ErrClipboardUnavailable = errors.New("clipboard not available")
	ErrOpenerUnavailable    = errors.New("popup windows not available")
	ErrMissingAppID         = errors.New("facebook dialog requires an app id")
)

// File is an attachment for native sharing, usually a screenshot.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	URL         string
}

// ShareData is the input to one share attempt. The manager never modifies
// a caller's value; every step works on a copy.
type ShareData struct {
	Type        ShareType
	Score       int
	Name        string
	Description string
	Text        string
	Title       string
	URL         string
	Hashtag     string
	Mentions    []string
	IsHighScore bool
	Stage       int
	Combo       int
	Accuracy    float64
	Rarity      string
	Code        string
	Challenger  string
	Files       []File
}

func (d ShareData) clone() ShareData {
	d.Mentions = append([]string(nil), d.Mentions...)
	d.Files = append([]File(nil), d.Files...)
	return d
}

type ShareResult struct {
	Success  bool
	Method   string
	Platform string
	Error    string
	Fallback bool
	URL      string // intent URL for popup channels
}

// Cancelled reports whether the user dismissed the share rather than it
// failing.
func (r ShareResult) Cancelled() bool {
	return !r.Success && r.Error == UserCancelled
}

// ContentGenerator builds platform text. *content.Generator implements it.
type ContentGenerator interface {
	GenerateScoreMessage(data content.ScoreData, platform string) content.Message
	GenerateAchievementMessage(data content.AchievementData, platform string) content.Message
	GenerateChallengeMessage(data content.ChallengeData, platform string) content.Message
	GenerateCustomMessage(data content.CustomData, platform string) content.Message
}

// StatisticsRecorder receives every counter increment.
type StatisticsRecorder interface {
	Record(event string)
}

// MetaUpdater pushes Open Graph tags to the page before a Facebook share.
type MetaUpdater interface {
	UpdateOpenGraph(ctx context.Context, tags map[string]string) error
}

// Prompter asks the player whether they want to share.
type Prompter interface {
	PromptShare(ctx context.Context, data ShareData) error
}

type NativePayload struct {
	Title string
	Text  string
	URL   string
	Files []File
}

// NativeSharer is the browser share sheet. Share returns an error wrapping
// ErrAborted when the user dismisses it.
type NativeSharer interface {
	Available() bool
	CanShare(p NativePayload) bool
	Share(ctx context.Context, p NativePayload) error
}

// WindowOpener opens a named popup window. ok is false when the browser
// blocked it.
type WindowOpener interface {
	Open(ctx context.Context, url, name string, width, height int) (ok bool, err error)
}

type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Environment describes the page the player is on.
type Environment interface {
	UserAgent() string
	Referrer() string
	Query() url.Values
}

// Capturer produces screenshots. *capture.Capture implements it.
type Capturer interface {
	CaptureGameCanvas(ctx context.Context, opts capture.Options) (*capture.Result, error)
	CaptureWithScoreOverlay(ctx context.Context, data *overlay.ScoreData, cfg overlay.Config, opts capture.Options) (*capture.Result, error)
	CaptureWithAchievementOverlay(ctx context.Context, data *overlay.AchievementData, cfg overlay.Config, opts capture.Options) (*capture.Result, error)
	Cleanup()
}

// statKey turns a platform id into the camel-case prefix used by counters.
func statKey(platform string) string {
	parts := strings.Split(platform, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
