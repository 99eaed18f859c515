package sharing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"bubblepop/internal/capture"
	"bubblepop/internal/content"
	"bubblepop/internal/events"
	"bubblepop/internal/overlay"
	"bubblepop/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNative struct {
	available bool
	canShare  bool
	err       error
	got       []NativePayload
}

func (n *stubNative) Available() bool               { return n.available }
func (n *stubNative) CanShare(p NativePayload) bool { return n.canShare }
func (n *stubNative) Share(_ context.Context, p NativePayload) error {
	n.got = append(n.got, p)
	return n.err
}

type openCall struct {
	url, name     string
	width, height int
}

type stubOpener struct {
	ok    bool
	err   error
	calls []openCall
}

func (o *stubOpener) Open(_ context.Context, u, name string, w, h int) (bool, error) {
	o.calls = append(o.calls, openCall{u, name, w, h})
	return o.ok, o.err
}

type stubClipboard struct {
	texts []string
	err   error
}

func (c *stubClipboard) WriteText(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return c.err
}

type stubMeta struct {
	tags map[string]string
}

func (s *stubMeta) UpdateOpenGraph(_ context.Context, tags map[string]string) error {
	s.tags = tags
	return nil
}

type stubPrompter struct {
	prompts []ShareData
}

func (p *stubPrompter) PromptShare(_ context.Context, data ShareData) error {
	p.prompts = append(p.prompts, data)
	return nil
}

type stubRecorder struct {
	events []string
}

func (r *stubRecorder) Record(event string) { r.events = append(r.events, event) }

type stubCapturer struct {
	err      error
	calls    []string
	cleanups int
}

func (c *stubCapturer) result() (*capture.Result, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &capture.Result{
		Data:        []byte("png"),
		ContentType: "image/png",
		URL:         "/blob/abc",
		Filename:    "bubblepop-shot.png",
		Format:      capture.FormatPNG,
		Size:        3,
	}, nil
}

func (c *stubCapturer) CaptureGameCanvas(context.Context, capture.Options) (*capture.Result, error) {
	c.calls = append(c.calls, "plain")
	return c.result()
}

func (c *stubCapturer) CaptureWithScoreOverlay(context.Context, *overlay.ScoreData, overlay.Config, capture.Options) (*capture.Result, error) {
	c.calls = append(c.calls, "score")
	return c.result()
}

func (c *stubCapturer) CaptureWithAchievementOverlay(context.Context, *overlay.AchievementData, overlay.Config, capture.Options) (*capture.Result, error) {
	c.calls = append(c.calls, "achievement")
	return c.result()
}

func (c *stubCapturer) Cleanup() { c.cleanups++ }

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

func textData() ShareData {
	return ShareData{Type: TypeCustom, Title: "Bubble Pop", Text: "I popped 300 bubbles", URL: "https://bubblepop.game/"}
}

func TestPopupBlocked(t *testing.T) {
	opener := &stubOpener{ok: false}
	m := NewManager(WithWindowOpener(opener))

	res := m.ShareTo(context.Background(), PlatformTwitter, textData())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "popup blocked")
	require.Len(t, opener.calls, 1)
	assert.Equal(t, "bubblepop-twitter", opener.calls[0].name)
	assert.Equal(t, 550, opener.calls[0].width)
	assert.Equal(t, 420, opener.calls[0].height)

	stats := m.Stats()
	assert.Equal(t, 1, stats[StatPopupBlocked])
	assert.Equal(t, 1, stats[StatFailedShares])
	assert.Equal(t, 1, stats["twitterShareAttempt"])
	assert.Zero(t, stats[StatSuccessfulShares])
}

func TestPopupOpened(t *testing.T) {
	opener := &stubOpener{ok: true}
	m := NewManager(WithWindowOpener(opener))

	res := m.ShareTo(context.Background(), PlatformFacebook, textData())

	require.True(t, res.Success)
	assert.Equal(t, PlatformFacebook, res.Method)
	assert.Equal(t, "bubblepop-facebook", opener.calls[0].name)
	assert.Equal(t, 626, opener.calls[0].width)
	assert.Equal(t, 436, opener.calls[0].height)
	assert.True(t, strings.HasPrefix(res.URL, "https://www.facebook.com/sharer/sharer.php?u="))
	assert.Equal(t, 1, m.Stats()["facebookShareSuccess"])
}

func TestNativeShareAbortIsCancellation(t *testing.T) {
	native := &stubNative{available: true, err: fmt.Errorf("%w: AbortError", ErrAborted)}
	clip := &stubClipboard{}
	m := NewManager(WithNativeSharer(native), WithClipboard(clip))

	res := m.Share(context.Background(), textData())

	assert.False(t, res.Success)
	assert.Equal(t, UserCancelled, res.Error)
	assert.True(t, res.Cancelled())
	assert.Empty(t, clip.texts, "cancellation must not fall back")
	stats := m.Stats()
	assert.Equal(t, 1, stats[StatUserCancelled])
	assert.Zero(t, stats[StatFailedShares])
	assert.Zero(t, stats[StatSuccessfulShares])
}

func TestNativeShareFailureFallsBackToCopy(t *testing.T) {
	native := &stubNative{available: true, err: errors.New("NotAllowedError")}
	clip := &stubClipboard{}
	m := NewManager(WithNativeSharer(native), WithClipboard(clip))

	res := m.Share(context.Background(), textData())

	assert.True(t, res.Success)
	assert.True(t, res.Fallback)
	assert.Equal(t, PlatformCopy, res.Method)
	assert.Equal(t, []string{"I popped 300 bubbles https://bubblepop.game/"}, clip.texts)
}

func TestWebShareUnavailableFallsBack(t *testing.T) {
	clip := &stubClipboard{}
	m := NewManager(WithClipboard(clip))

	res := m.ShareTo(context.Background(), PlatformWebShare, textData())

	assert.True(t, res.Success)
	assert.True(t, res.Fallback)
	assert.Len(t, clip.texts, 1)
}

func TestGenericUsesClipboardWithoutNativeShare(t *testing.T) {
	clip := &stubClipboard{}
	m := NewManager(WithClipboard(clip))

	res := m.Share(context.Background(), textData())

	assert.True(t, res.Success)
	assert.Equal(t, PlatformCopy, res.Method)
	assert.False(t, res.Fallback)
	assert.Equal(t, []string{"I popped 300 bubbles https://bubblepop.game/"}, clip.texts)
}

func TestMissingChannelsFailWithoutPanicking(t *testing.T) {
	m := NewManager()

	res := m.ShareTo(context.Background(), PlatformTwitter, textData())
	assert.False(t, res.Success)
	assert.Equal(t, ErrOpenerUnavailable.Error(), res.Error)

	res = m.ShareTo(context.Background(), PlatformCopy, textData())
	assert.False(t, res.Success)
	assert.Equal(t, ErrClipboardUnavailable.Error(), res.Error)
}

func TestValidationFailureSkipsChannels(t *testing.T) {
	opener := &stubOpener{ok: true}
	m := NewManager(WithWindowOpener(opener))

	res := m.ShareTo(context.Background(), PlatformTwitter, ShareData{URL: "not a url"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, MsgInvalidURL)
	assert.Empty(t, opener.calls)
	assert.Equal(t, 1, m.Stats()[StatValidationFailed])
}

func TestNativeFilesGatedByCanShare(t *testing.T) {
	native := &stubNative{available: true, canShare: false}
	m := NewManager(WithNativeSharer(native))
	data := textData()
	data.Files = []File{{Name: "shot.png", Data: []byte("png")}}

	res := m.Share(context.Background(), data)

	require.True(t, res.Success)
	require.Len(t, native.got, 1)
	assert.Empty(t, native.got[0].Files)
}

func TestShouldShowSharePrompt(t *testing.T) {
	m := NewManager(WithClock(clockAt(baseTime)))
	m.UpdateSettings(func(s *settings.Settings) {
		s.MinScoreThreshold = 1000
		s.ShareInterval = 300000
		s.LastShareTime = baseTime.Add(-time.Minute).UnixMilli()
	})
	assert.False(t, m.ShouldShowSharePrompt(5000), "interval not elapsed")

	m.UpdateSettings(func(s *settings.Settings) {
		s.LastShareTime = baseTime.Add(-10 * time.Minute).UnixMilli()
	})
	assert.False(t, m.ShouldShowSharePrompt(999), "score below threshold")
	assert.True(t, m.ShouldShowSharePrompt(1000))
}

func TestSuccessfulShareUpdatesAndPersistsLastShareTime(t *testing.T) {
	store := settings.NewMemoryStore()
	clip := &stubClipboard{}
	m := NewManager(WithSettingsStore(store), WithClipboard(clip), WithClock(clockAt(baseTime)))
	m.Initialize()

	res := m.Share(context.Background(), textData())
	require.True(t, res.Success)

	assert.Equal(t, baseTime.UnixMilli(), m.Settings().LastShareTime)
	assert.Equal(t, baseTime.UnixMilli(), settings.Load(store).LastShareTime)
	assert.False(t, m.ShouldShowSharePrompt(5000))
}

func TestInitializeWithCorruptSettings(t *testing.T) {
	store := settings.NewMemoryStore()
	require.NoError(t, store.Save(settings.Key, []byte("{{{")))
	m := NewManager(WithSettingsStore(store))

	m.Initialize()

	assert.Equal(t, settings.Defaults(), m.Settings())
}

func TestCleanupIsIdempotent(t *testing.T) {
	capt := &stubCapturer{}
	store := settings.NewMemoryStore()
	m := NewManager(WithCapture(capt), WithSettingsStore(store))
	m.Initialize()

	m.Cleanup()
	m.Cleanup()

	assert.Equal(t, 2, capt.cleanups)
	_, err := store.Load(settings.Key)
	assert.NoError(t, err)
}

func TestStatsSuccessRate(t *testing.T) {
	assert.Zero(t, PerformanceStats{}.SuccessRate())

	clip := &stubClipboard{}
	rec := &stubRecorder{}
	m := NewManager(WithClipboard(clip), WithRecorder(rec))
	m.Share(context.Background(), textData())
	m.Share(context.Background(), ShareData{})

	stats := m.Stats()
	assert.Equal(t, 2, stats[StatShareRequests])
	assert.Equal(t, 50.0, stats.SuccessRate())
	assert.Contains(t, rec.events, StatShareRequests)
	assert.Contains(t, rec.events, "copyShareSuccess")
}

func TestScreenshotShare(t *testing.T) {
	ctx := context.Background()

	_, err := NewManager().ShareWithScreenshot(ctx, "", textData(), capture.Options{})
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	_, err = NewManager().ShareWithOverlayScreenshot(ctx, "", textData(), nil, capture.Options{})
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	native := &stubNative{available: true, canShare: true}
	capt := &stubCapturer{}
	m := NewManager(WithNativeSharer(native), WithCapture(capt))
	data := textData()

	res, err := m.ShareWithScreenshot(ctx, "", data, capture.Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, native.got, 1)
	require.Len(t, native.got[0].Files, 1)
	assert.Equal(t, "bubblepop-shot.png", native.got[0].Files[0].Name)
	assert.Empty(t, data.Files, "input must not change")
	assert.Equal(t, 1, m.Stats()[StatScreenshotCaptured])
	assert.Equal(t, 1, m.Stats()[StatScreenshotShare])
}

func TestScreenshotFailureFallsBackToText(t *testing.T) {
	clip := &stubClipboard{}
	capt := &stubCapturer{err: capture.ErrCaptureInProgress}
	m := NewManager(WithClipboard(clip), WithCapture(capt))

	res, err := m.ShareWithOverlayScreenshot(context.Background(), "", ShareData{
		Type: TypeAchievement, Name: "Chain Reaction", Text: "unlocked", URL: "https://bubblepop.game/",
	}, nil, capture.Options{})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Fallback)
	assert.Equal(t, []string{"achievement"}, capt.calls)
	assert.Equal(t, 1, m.Stats()[StatScreenshotFallback])
}

func TestBuildFacebookURL(t *testing.T) {
	m := NewManager()
	data := ShareData{Type: TypeAchievement, Title: "Bubble Pop", URL: "https://bubblepop.game/"}

	u, err := m.BuildFacebookURL(data, FacebookOptions{Quote: "nice"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/sharer/sharer.php?u=https%3A%2F%2Fbubblepop.game%2F&t=Bubble+Pop&quote=nice&hashtag=%23BubblePopAchievement", u)

	_, err = m.BuildFacebookURL(data, FacebookOptions{Dialog: true})
	assert.ErrorIs(t, err, ErrMissingAppID)

	u, err = m.BuildFacebookURL(data, FacebookOptions{Dialog: true, AppID: "123", Hashtag: "#Pop"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/dialog/share?app_id=123&href=https%3A%2F%2Fbubblepop.game%2F&hashtag=%23Pop", u)
}

func TestFacebookShareUpdatesOpenGraph(t *testing.T) {
	opener := &stubOpener{ok: true}
	ctx := context.Background()

	m := NewManager(WithWindowOpener(opener))
	assert.True(t, m.ShareTo(ctx, PlatformFacebook, textData()).Success, "nil meta updater is fine")

	meta := &stubMeta{}
	m = NewManager(WithWindowOpener(opener), WithMetaUpdater(meta), WithFacebookAppID("42"))
	res := m.ShareTo(ctx, PlatformFacebook, textData())
	require.True(t, res.Success)
	assert.Equal(t, "https://bubblepop.game/", meta.tags["og:url"])
	assert.True(t, strings.HasPrefix(res.URL, "https://www.facebook.com/dialog/share?app_id=42"))
}

func TestBuildTwitterURL(t *testing.T) {
	m := NewManager()
	data := ShareData{
		Text:     strings.Repeat("pop ", 75),
		URL:      "https://bubblepop.game/",
		Mentions: []string{"@friend", "rival"},
		Hashtag:  "BubblePop",
	}

	u, err := url.Parse(m.BuildTwitterURL(data))
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", u.Host)
	text := u.Query().Get("text")
	assert.LessOrEqual(t, utf8.RuneCountInString(text), 257)
	assert.True(t, strings.HasPrefix(text, "@friend @rival pop"))
	assert.Equal(t, "https://bubblepop.game/", u.Query().Get("url"))

	short := m.BuildTwitterURL(ShareData{Text: "hi #BubblePop", Hashtag: "BubblePop"})
	assert.Equal(t, "https://twitter.com/intent/tweet?text=hi+%23BubblePop", short)
}

func TestGeneratorOptimizesPerPlatform(t *testing.T) {
	opener := &stubOpener{ok: true}
	gen := content.NewGenerator(content.Options{Language: "en"})
	m := NewManager(WithWindowOpener(opener), WithGenerator(gen), WithShareURL("https://bubblepop.game/"))

	res := m.ShareScore(context.Background(), 12500, ShareOptions{Platform: PlatformTwitter, IsHighScore: true})

	require.True(t, res.Success)
	u, err := url.Parse(opener.calls[0].url)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "12,500")
	assert.Contains(t, text, "#BubblePop")
	assert.Equal(t, 1, gen.Stats().Generated)
}

func TestTwitterShareKeepsHashtagAllowance(t *testing.T) {
	opener := &stubOpener{ok: true}
	gen := content.NewGenerator(content.Options{Language: "en"})
	m := NewManager(WithWindowOpener(opener), WithGenerator(gen), WithShareURL("https://bubblepop.game/"))

	data := m.ScoreData(5000, ShareOptions{Platform: PlatformTwitter, IsHighScore: true})
	data.Hashtag = "Extra"
	res := m.ShareTo(context.Background(), PlatformTwitter, data)

	require.True(t, res.Success)
	u, err := url.Parse(opener.calls[0].url)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "#BubblePop")
	assert.LessOrEqual(t, len(hashtags(text)), 2)
	if len(hashtags(text)) == 2 {
		assert.NotContains(t, text, "#Extra")
	}
}

func TestTweetTextAppendsHashtagWithinAllowance(t *testing.T) {
	m := NewManager()

	one := m.BuildTwitterURL(ShareData{Text: "hi #BubblePop", Hashtag: "Extra"})
	assert.Equal(t, "https://twitter.com/intent/tweet?text=hi+%23BubblePop+%23Extra", one)

	full := m.BuildTwitterURL(ShareData{Text: "hi #BubblePop #HighScore", Hashtag: "#Extra"})
	assert.Equal(t, "https://twitter.com/intent/tweet?text=hi+%23BubblePop+%23HighScore", full)
}

func TestShareChallengeAddsCode(t *testing.T) {
	clip := &stubClipboard{}
	m := NewManager(WithClipboard(clip), WithShareURL("https://bubblepop.game/"))

	res := m.ShareChallenge(context.Background(), 900, ShareOptions{Platform: PlatformCopy})

	require.True(t, res.Success)
	require.Len(t, clip.texts, 1)
	assert.Contains(t, clip.texts[0], "https://bubblepop.game/?challenge=")
}

func TestEventPrompts(t *testing.T) {
	ctx := context.Background()
	p := &stubPrompter{}
	m := NewManager(WithPrompter(p), WithClock(clockAt(baseTime)), WithShareURL("https://bubblepop.game/"))

	assert.False(t, m.OnHighScore(ctx, events.HighScoreEvent{Score: 10}), "below threshold")
	assert.True(t, m.OnHighScore(ctx, events.HighScoreEvent{Score: 5000}))
	assert.False(t, m.OnGameEnd(ctx, events.GameEndEvent{Score: 5000}), "game end sharing is off by default")
	assert.False(t, m.OnAchievement(ctx, events.AchievementEvent{AchievementID: "first_pop"}), "common achievements do not prompt")
	assert.True(t, m.OnAchievement(ctx, events.AchievementEvent{AchievementID: "chain_reaction"}))
	assert.False(t, m.OnAchievement(ctx, events.AchievementEvent{AchievementID: "unknown"}))

	require.Len(t, p.prompts, 2)
	assert.Equal(t, TypeScore, p.prompts[0].Type)
	assert.Equal(t, "legendary", p.prompts[1].Rarity)

	m.UpdateSettings(func(s *settings.Settings) { s.AutoPrompt = false })
	assert.False(t, m.OnHighScore(ctx, events.HighScoreEvent{Score: 5000}))
}

func TestListen(t *testing.T) {
	p := &stubPrompter{}
	m := NewManager(WithPrompter(p))
	bus := events.NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Listen(ctx, bus, "p1")
		close(done)
	}()

	bus.Publish(events.AchievementEvent{PlayerID: "p2", AchievementID: "chain_reaction"})
	bus.Publish(events.AchievementEvent{PlayerID: "p1", AchievementID: "chain_reaction"})

	require.Eventually(t, func() bool {
		return len(bus.Achievements) == 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Len(t, p.prompts, 1)
}
