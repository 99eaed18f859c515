package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bubblepop/internal/blobs"
	"bubblepop/internal/overlay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func noise(w, h int) image.Image {
	r := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

type countingSource struct {
	img   image.Image
	calls atomic.Int32
}

func (s *countingSource) Frame(context.Context) (image.Image, error) {
	s.calls.Add(1)
	return s.img, nil
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }

func TestCaptureGameCanvas(t *testing.T) {
	store := blobs.NewStore()
	c := New(&countingSource{img: frame(64, 48)}, WithURLStore(store), WithClock(fixedNow))

	res, err := c.CaptureGameCanvas(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, FormatPNG, res.Format)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 48, res.Height)
	assert.Equal(t, len(res.Data), res.Size)
	assert.False(t, res.Optimized)
	assert.True(t, strings.HasPrefix(res.Filename, "bubblepop-20260314-150926-"))
	assert.True(t, strings.HasSuffix(res.Filename, ".png"))

	data, ct, ok := store.Get(res.URL)
	require.True(t, ok)
	assert.Equal(t, res.Data, data)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, res.URL, c.Current())
}

func TestHistoryEvictionRevokesURLs(t *testing.T) {
	store := blobs.NewStore()
	c := New(&countingSource{img: frame(8, 8)}, WithURLStore(store))

	var urls []string
	for i := 0; i < 15; i++ {
		res, err := c.CaptureGameCanvas(context.Background(), Options{})
		require.NoError(t, err)
		urls = append(urls, res.URL)
	}

	history := c.History()
	require.Len(t, history, 10)
	assert.Equal(t, urls[5], history[0].URL)
	assert.Equal(t, urls[14], history[9].URL)
	for _, u := range urls[:5] {
		_, _, ok := store.Get(u)
		assert.False(t, ok, "evicted url %s still live", u)
	}
	assert.Equal(t, blobs.Stats{Created: 15, Revoked: 5}, store.Stats())
	assert.Equal(t, 10, store.Live())
}

func TestClearHistoryAndCleanup(t *testing.T) {
	store := blobs.NewStore()
	c := New(&countingSource{img: frame(8, 8)}, WithURLStore(store))
	for i := 0; i < 3; i++ {
		_, err := c.CaptureGameCanvas(context.Background(), Options{})
		require.NoError(t, err)
	}

	c.ClearHistory()
	assert.Empty(t, c.History())
	assert.Empty(t, c.Current())
	assert.Equal(t, 3, store.Stats().Revoked)

	_, err := c.CaptureGameCanvas(context.Background(), Options{})
	require.NoError(t, err)

	c.Cleanup()
	c.Cleanup()
	assert.Equal(t, blobs.Stats{Created: 4, Revoked: 4}, store.Stats())
	assert.Equal(t, 0, store.Live())
}

func TestCleanupDuringCaptureRevokesURL(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	store := blobs.NewStore()
	c := New(SourceFunc(func(ctx context.Context) (image.Image, error) {
		close(entered)
		<-release
		return frame(8, 8), nil
	}), WithURLStore(store))

	done := make(chan error, 1)
	go func() {
		_, err := c.CaptureGameCanvas(context.Background(), Options{})
		done <- err
	}()
	<-entered

	c.Cleanup()
	close(release)

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, 0, store.Live())
	assert.Equal(t, blobs.Stats{Created: 1, Revoked: 1}, store.Stats())
	assert.Empty(t, c.History())
	assert.Empty(t, c.Current())

	_, err := c.CaptureGameCanvas(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, store.Stats().Created)
}

func TestSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := New(SourceFunc(func(ctx context.Context) (image.Image, error) {
		close(entered)
		<-release
		return frame(8, 8), nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := c.CaptureGameCanvas(context.Background(), Options{})
		done <- err
	}()
	<-entered

	_, err := c.CaptureGameCanvas(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrCaptureInProgress)

	close(release)
	require.NoError(t, <-done)

	stats := c.Stats()
	assert.Equal(t, Stats{Captures: 2, Successes: 1, Errors: 1}, stats)
	assert.Equal(t, 50.0, stats.SuccessRate())
}

func TestCaptureRegion(t *testing.T) {
	src := &countingSource{img: frame(800, 600)}
	c := New(src)

	res, err := c.CaptureRegion(context.Background(), 10, 20, 100, 50, Options{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)

	res, err = c.CaptureRegion(context.Background(), 700, 500, 200, 200, Options{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 100, res.Height)
}

func TestCaptureRegionRejectsBadBounds(t *testing.T) {
	src := &countingSource{img: frame(800, 600)}
	c := New(src)

	for _, r := range [][4]int{{-1, 0, 10, 10}, {0, -5, 10, 10}, {0, 0, 0, 10}, {0, 0, 10, -1}} {
		_, err := c.CaptureRegion(context.Background(), r[0], r[1], r[2], r[3], Options{})
		assert.ErrorIs(t, err, ErrInvalidRegion, "%v", r)
	}
	assert.Equal(t, int32(0), src.calls.Load(), "frame must not be read for invalid bounds")

	_, err := c.CaptureRegion(context.Background(), 900, 700, 10, 10, Options{})
	assert.ErrorIs(t, err, ErrInvalidRegion)
	assert.Equal(t, Stats{Captures: 5, Errors: 5}, c.Stats())
}

func TestWebP(t *testing.T) {
	c := New(&countingSource{img: frame(8, 8)})
	_, err := c.CaptureGameCanvas(context.Background(), Options{Format: FormatWebP})
	assert.ErrorIs(t, err, ErrWebPUnsupported)

	var gotQuality int
	c = New(&countingSource{img: frame(8, 8)}, WithEncoder(FormatWebP, func(w io.Writer, _ image.Image, quality int) error {
		gotQuality = quality
		_, err := w.Write([]byte("RIFF....WEBP"))
		return err
	}))
	res, err := c.CaptureGameCanvas(context.Background(), Options{Format: FormatWebP, Quality: QualityLow})
	require.NoError(t, err)
	assert.Equal(t, "image/webp", res.ContentType)
	assert.Equal(t, 60, gotQuality)
}

func TestEncodingFailures(t *testing.T) {
	c := New(&countingSource{img: frame(8, 8)}, WithEncoder(FormatPNG, func(io.Writer, image.Image, int) error {
		return nil
	}))
	_, err := c.CaptureGameCanvas(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrEncodingFailed)

	boom := errors.New("boom")
	c = New(&countingSource{img: frame(8, 8)}, WithEncoder(FormatPNG, func(io.Writer, image.Image, int) error {
		return boom
	}))
	_, err = c.CaptureGameCanvas(context.Background(), Options{})
	assert.ErrorIs(t, err, boom)

	_, err = c.CaptureGameCanvas(context.Background(), Options{Format: "gif"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestQualityTiers(t *testing.T) {
	assert.Equal(t, 60, QualityLow.Value())
	assert.Equal(t, 80, QualityMedium.Value())
	assert.Equal(t, 92, QualityHigh.Value())
	assert.Equal(t, 92, Quality("ultra").Value())
}

func TestMaxDimensionsNeverUpscale(t *testing.T) {
	c := New(&countingSource{img: frame(800, 600)})

	res, err := c.CaptureGameCanvas(context.Background(), Options{MaxWidth: 400})
	require.NoError(t, err)
	assert.Equal(t, 400, res.Width)
	assert.Equal(t, 300, res.Height)

	res, err = c.CaptureGameCanvas(context.Background(), Options{MaxWidth: 2000, MaxHeight: 2000})
	require.NoError(t, err)
	assert.Equal(t, 800, res.Width)
	assert.Equal(t, 600, res.Height)
}

func TestOptimize(t *testing.T) {
	c := New(&countingSource{img: noise(200, 200)}, WithOptimizeThreshold(1000))

	res, err := c.CaptureGameCanvas(context.Background(), Options{Format: FormatJPEG, Optimize: true})
	require.NoError(t, err)
	assert.True(t, res.Optimized)
	assert.Greater(t, res.OriginalSize, res.Size)
	assert.Equal(t, 150, res.Width)
	assert.True(t, strings.HasSuffix(res.Filename, ".jpg"))

	c = New(&countingSource{img: frame(8, 8)})
	res, err = c.CaptureGameCanvas(context.Background(), Options{Format: FormatJPEG, Optimize: true})
	require.NoError(t, err)
	assert.False(t, res.Optimized)
	assert.Zero(t, res.OriginalSize)
}

type stubOverlayer struct {
	calls int
	err   error
}

func (s *stubOverlayer) CreateScoreOverlay(_ context.Context, src image.Image, _ *overlay.ScoreData, _ overlay.Config) (image.Image, error) {
	s.calls++
	return src, s.err
}

func (s *stubOverlayer) CreateAchievementOverlay(_ context.Context, src image.Image, _ *overlay.AchievementData, _ overlay.Config) (image.Image, error) {
	s.calls++
	return src, s.err
}

func (s *stubOverlayer) CreateCustomOverlay(_ context.Context, src image.Image, _ []overlay.Element, _ overlay.Config) (image.Image, error) {
	s.calls++
	return src, s.err
}

func TestOverlayVariants(t *testing.T) {
	ctx := context.Background()
	c := New(&countingSource{img: frame(16, 16)})
	_, err := c.CaptureWithScoreOverlay(ctx, &overlay.ScoreData{Score: 1}, nil, Options{})
	assert.ErrorIs(t, err, ErrNoOverlay)

	ov := &stubOverlayer{}
	c = New(&countingSource{img: frame(16, 16)}, WithOverlay(ov))
	_, err = c.CaptureWithScoreOverlay(ctx, &overlay.ScoreData{Score: 1}, nil, Options{})
	require.NoError(t, err)
	_, err = c.CaptureWithAchievementOverlay(ctx, &overlay.AchievementData{Name: "x"}, nil, Options{})
	require.NoError(t, err)
	_, err = c.CaptureWithCustomOverlay(ctx, []overlay.Element{}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, ov.calls)

	ov.err = overlay.ErrMissingData
	_, err = c.CaptureWithScoreOverlay(ctx, nil, nil, Options{})
	assert.ErrorIs(t, err, overlay.ErrMissingData)
	assert.Len(t, c.History(), 3)
}

func TestRealOverlay(t *testing.T) {
	ov, err := overlay.New()
	require.NoError(t, err)
	defer ov.Close()
	c := New(&countingSource{img: frame(320, 240)}, WithOverlay(ov))

	res, err := c.CaptureWithScoreOverlay(context.Background(), &overlay.ScoreData{Score: 4200}, nil, Options{Format: FormatJPEG})

	require.NoError(t, err)
	assert.Equal(t, 320, res.Width)
	assert.Equal(t, 240, res.Height)
}

func TestObserverSeesEveryOutcome(t *testing.T) {
	var outcomes []bool
	c := New(&countingSource{img: frame(8, 8)}, WithObserver(func(ok bool) { outcomes = append(outcomes, ok) }))

	_, err := c.CaptureGameCanvas(context.Background(), Options{})
	require.NoError(t, err)
	_, err = c.CaptureRegion(context.Background(), 0, 0, 0, 0, Options{})
	require.Error(t, err)

	assert.Equal(t, []bool{true, false}, outcomes)
}
