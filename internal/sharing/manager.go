package sharing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"bubblepop/internal/content"
	"bubblepop/internal/settings"

	"github.com/samber/lo"
)

const defaultTitle = "Bubble Pop"

// Manager runs share attempts for one player. It owns the player's share
// settings and statistics; every other collaborator is optional.
type Manager struct {
	generator ContentGenerator
	recorders []StatisticsRecorder
	meta      MetaUpdater
	prompter  Prompter
	native    NativeSharer
	opener    WindowOpener
	clipboard Clipboard
	env       Environment
	capture   Capturer
	store     settings.Store

	shareURL      string
	urlReserve    int
	facebookAppID string
	now           func() time.Time

	mu          sync.Mutex
	settings    settings.Settings
	stats       map[string]int
	initialized bool
}

type Option func(*Manager)

func WithGenerator(g ContentGenerator) Option {
	return func(m *Manager) { m.generator = g }
}

// WithRecorder adds a recorder; it can be given more than once.
func WithRecorder(r StatisticsRecorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
}

func WithMetaUpdater(u MetaUpdater) Option {
	return func(m *Manager) { m.meta = u }
}

func WithPrompter(p Prompter) Option {
	return func(m *Manager) { m.prompter = p }
}

func WithNativeSharer(s NativeSharer) Option {
	return func(m *Manager) { m.native = s }
}

func WithWindowOpener(o WindowOpener) Option {
	return func(m *Manager) { m.opener = o }
}

func WithClipboard(c Clipboard) Option {
	return func(m *Manager) { m.clipboard = c }
}

func WithEnvironment(e Environment) Option {
	return func(m *Manager) { m.env = e }
}

func WithCapture(c Capturer) Option {
	return func(m *Manager) { m.capture = c }
}

func WithSettingsStore(s settings.Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithShareURL sets the link attached to score, achievement and challenge
// shares.
func WithShareURL(u string) Option {
	return func(m *Manager) { m.shareURL = u }
}

// WithURLReserve sets how many tweet characters a link takes up.
func WithURLReserve(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.urlReserve = n
		}
	}
}

// WithFacebookAppID switches the Facebook channel to the share dialog.
func WithFacebookAppID(id string) Option {
	return func(m *Manager) { m.facebookAppID = id }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		urlReserve: content.DefaultURLReserve,
		now:        time.Now,
		settings:   settings.Defaults(),
		stats:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads the persisted settings. Missing or unreadable settings
// leave the defaults in place.
func (m *Manager) Initialize() {
	s := settings.Load(m.store)
	m.mu.Lock()
	m.settings = s
	m.initialized = true
	m.mu.Unlock()
	log.Printf("[Share] Manager initialized (min score %d, interval %dms)\n", s.MinScoreThreshold, s.ShareInterval)
}

// Cleanup persists settings and releases screenshots held by the capture.
// It is safe to call more than once.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	wasInitialized := m.initialized
	m.initialized = false
	s := m.settings.Clone()
	m.mu.Unlock()

	if wasInitialized {
		settings.Save(m.store, s)
	}
	if m.capture != nil {
		m.capture.Cleanup()
	}
}

func (m *Manager) Settings() settings.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.Clone()
}

// UpdateSettings applies fn to the settings and persists the result.
func (m *Manager) UpdateSettings(fn func(*settings.Settings)) {
	m.mu.Lock()
	fn(&m.settings)
	s := m.settings.Clone()
	m.mu.Unlock()
	settings.Save(m.store, s)
}

// ShouldShowSharePrompt reports whether score clears the threshold and the
// share interval has passed since the last successful share.
func (m *Manager) ShouldShowSharePrompt(score int) bool {
	m.mu.Lock()
	s := m.settings
	m.mu.Unlock()

	if score < s.MinScoreThreshold {
		return false
	}
	return m.now().UnixMilli()-s.LastShareTime >= s.ShareInterval
}

// ShareOptions tune the typed share helpers.
type ShareOptions struct {
	Platform    string
	URL         string
	IsHighScore bool
	Stage       int
	Combo       int
	Accuracy    float64
	Challenger  string
}

func (m *Manager) ShareScore(ctx context.Context, score int, opts ShareOptions) ShareResult {
	return m.ShareTo(ctx, opts.Platform, m.ScoreData(score, opts))
}

func (m *Manager) ShareAchievement(ctx context.Context, name, description, rarity string, opts ShareOptions) ShareResult {
	return m.ShareTo(ctx, opts.Platform, m.AchievementData(name, description, rarity, opts))
}

// ShareChallenge shares score with a fresh challenge code on the link.
func (m *Manager) ShareChallenge(ctx context.Context, score int, opts ShareOptions) ShareResult {
	data, err := m.ChallengeData(score, opts)
	if err != nil {
		log.Printf("[Share] Challenge link failed: %v\n", err)
		m.record(StatShareRequests)
		m.record(StatFailedShares)
		return ShareResult{Success: false, Platform: opts.Platform, Error: err.Error()}
	}
	return m.ShareTo(ctx, opts.Platform, data)
}

// ShareCustom shares caller text. With a generator attached the text is
// treated as a template with {score}, {name} and {stage} available.
func (m *Manager) ShareCustom(ctx context.Context, text string, opts ShareOptions) ShareResult {
	return m.ShareTo(ctx, opts.Platform, m.CustomData(text, opts))
}

// ScoreData builds the share input ShareScore sends.
func (m *Manager) ScoreData(score int, opts ShareOptions) ShareData {
	return ShareData{
		Type:        TypeScore,
		Title:       defaultTitle,
		Score:       score,
		IsHighScore: opts.IsHighScore,
		Stage:       opts.Stage,
		Combo:       opts.Combo,
		Accuracy:    opts.Accuracy,
		URL:         m.linkFor(opts.URL),
		Text:        fmt.Sprintf("I scored %d points in Bubble Pop!", score),
	}
}

func (m *Manager) AchievementData(name, description, rarity string, opts ShareOptions) ShareData {
	return ShareData{
		Type:        TypeAchievement,
		Title:       defaultTitle,
		Name:        name,
		Description: description,
		Rarity:      rarity,
		URL:         m.linkFor(opts.URL),
		Text:        fmt.Sprintf("Achievement unlocked in Bubble Pop: %s", name),
	}
}

func (m *Manager) CustomData(text string, opts ShareOptions) ShareData {
	return ShareData{
		Type:  TypeCustom,
		Title: defaultTitle,
		Text:  text,
		URL:   m.linkFor(opts.URL),
		Stage: opts.Stage,
	}
}

// Share runs one attempt with automatic platform detection.
func (m *Manager) Share(ctx context.Context, data ShareData) ShareResult {
	return m.ShareTo(ctx, "", data)
}

// ShareTo runs one attempt: validate, sanitize, detect, optimize,
// dispatch, record.
func (m *Manager) ShareTo(ctx context.Context, platform string, data ShareData) ShareResult {
	m.record(StatShareRequests)

	if v := Validate(data); !v.Valid {
		m.record(StatValidationFailed)
		m.record(StatFailedShares)
		return ShareResult{Success: false, Platform: platform, Error: v.Err().Error()}
	}
	data = Sanitize(data)
	resolved := m.DetectPlatform(platform)
	data = m.optimize(data, resolved)

	res := m.dispatch(ctx, resolved, data)
	m.finish(res)
	return res
}

func (m *Manager) finish(res ShareResult) {
	switch {
	case res.Success:
		m.record(StatSuccessfulShares)
		m.record(SuccessStat(res.Method))
		m.mu.Lock()
		m.settings.LastShareTime = m.now().UnixMilli()
		s := m.settings.Clone()
		m.mu.Unlock()
		settings.Save(m.store, s)
	case res.Cancelled():
		// a dismissed sheet is neither a success nor a failure
	default:
		m.record(StatFailedShares)
	}
}

// optimize regenerates the text for the resolved platform when a generator
// is attached.
func (m *Manager) optimize(data ShareData, platform string) ShareData {
	if m.generator == nil {
		return data
	}
	p := contentPlatform(platform)
	var msg content.Message
	switch data.Type {
	case TypeScore:
		msg = m.generator.GenerateScoreMessage(content.ScoreData{
			Score: data.Score, IsHighScore: data.IsHighScore, Stage: data.Stage, URL: data.URL,
		}, p)
	case TypeAchievement:
		msg = m.generator.GenerateAchievementMessage(content.AchievementData{
			Name: data.Name, Description: data.Description, Rarity: content.Rarity(data.Rarity), URL: data.URL,
		}, p)
	case TypeChallenge:
		msg = m.generator.GenerateChallengeMessage(content.ChallengeData{
			Score: data.Score, Challenger: data.Challenger, Code: data.Code, Stage: data.Stage, URL: data.URL,
		}, p)
	case TypeCustom:
		if data.Text == "" {
			return data
		}
		fields := map[string]string{"score": strconv.Itoa(data.Score), "name": data.Name}
		if data.Stage > 0 {
			fields["stage"] = strconv.Itoa(data.Stage)
		}
		msg = m.generator.GenerateCustomMessage(content.CustomData{Template: data.Text, Fields: fields, URL: data.URL}, p)
	default:
		return data
	}
	if msg.Message != "" {
		data.Text = msg.Message
	}
	return data
}

func contentPlatform(platform string) string {
	switch platform {
	case PlatformTwitter, PlatformFacebook:
		return platform
	}
	return content.PlatformGeneric
}

func (m *Manager) dispatch(ctx context.Context, platform string, data ShareData) ShareResult {
	if platform == PlatformGeneric {
		platform = m.genericChannel()
	}
	m.record(AttemptStat(platform))

	switch platform {
	case PlatformWebShare:
		return m.shareNative(ctx, data)
	case PlatformTwitter:
		return m.openPopup(ctx, PlatformTwitter, m.BuildTwitterURL(data))
	case PlatformFacebook:
		m.updateOpenGraph(ctx, data)
		u, err := m.BuildFacebookURL(data, m.facebookOptions(data))
		if err != nil {
			return ShareResult{Success: false, Method: PlatformFacebook, Platform: PlatformFacebook, Error: err.Error()}
		}
		return m.openPopup(ctx, PlatformFacebook, u)
	default:
		return m.copyToClipboard(ctx, data)
	}
}

// genericChannel walks the preferred platforms: native share when it is
// preferred and available, otherwise the clipboard.
func (m *Manager) genericChannel() string {
	m.mu.Lock()
	preferred := m.settings.PreferredPlatforms
	m.mu.Unlock()
	if lo.Contains(preferred, PlatformWebShare) && m.nativeAvailable() {
		return PlatformWebShare
	}
	return PlatformCopy
}

func (m *Manager) nativeAvailable() bool {
	return m.native != nil && m.native.Available()
}

func (m *Manager) shareNative(ctx context.Context, data ShareData) ShareResult {
	if !m.nativeAvailable() {
		return m.fallbackToCopy(ctx, data, ErrWebShareUnavailable)
	}
	payload := NativePayload{Title: data.Title, Text: data.Text, URL: data.URL, Files: data.Files}
	if len(payload.Files) > 0 && !m.native.CanShare(payload) {
		log.Println("[Share] Native share cannot take files, sharing text only")
		payload.Files = nil
	}
	err := m.native.Share(ctx, payload)
	switch {
	case err == nil:
		return ShareResult{Success: true, Method: PlatformWebShare, Platform: PlatformWebShare}
	case errors.Is(err, ErrAborted):
		m.record(StatUserCancelled)
		return ShareResult{Success: false, Method: PlatformWebShare, Platform: PlatformWebShare, Error: UserCancelled}
	}
	return m.fallbackToCopy(ctx, data, err)
}

func (m *Manager) fallbackToCopy(ctx context.Context, data ShareData, cause error) ShareResult {
	log.Printf("[Share] Native share failed, copying instead: %v\n", cause)
	m.record(AttemptStat(PlatformCopy))
	res := m.copyToClipboard(ctx, data)
	res.Platform = PlatformWebShare
	res.Fallback = true
	return res
}

func (m *Manager) openPopup(ctx context.Context, platform, target string) ShareResult {
	res := ShareResult{Method: platform, Platform: platform, URL: target}
	if m.opener == nil {
		res.Error = ErrOpenerUnavailable.Error()
		return res
	}
	p := popups[platform]
	ok, err := m.opener.Open(ctx, target, p.name, p.width, p.height)
	if err != nil {
		log.Printf("[Share] Opening %s window: %v\n", platform, err)
		res.Error = err.Error()
		return res
	}
	if !ok {
		m.record(StatPopupBlocked)
		res.Error = ErrPopupBlocked.Error()
		return res
	}
	res.Success = true
	return res
}

func (m *Manager) copyToClipboard(ctx context.Context, data ShareData) ShareResult {
	res := ShareResult{Method: PlatformCopy, Platform: PlatformCopy}
	if m.clipboard == nil {
		res.Error = ErrClipboardUnavailable.Error()
		return res
	}
	if err := m.clipboard.WriteText(ctx, clipboardText(data)); err != nil {
		log.Printf("[Share] Clipboard write failed: %v\n", err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

func (m *Manager) updateOpenGraph(ctx context.Context, data ShareData) {
	if m.meta == nil {
		return
	}
	tags := map[string]string{
		"og:title":       data.Title,
		"og:description": data.Text,
		"og:url":         data.URL,
		"og:type":        "website",
	}
	for _, f := range data.Files {
		if f.URL != "" {
			tags["og:image"] = f.URL
			break
		}
	}
	if err := m.meta.UpdateOpenGraph(ctx, tags); err != nil {
		log.Printf("[Share] Open Graph update failed: %v\n", err)
	}
}

func (m *Manager) linkFor(override string) string {
	if override != "" {
		return override
	}
	return m.shareURL
}
