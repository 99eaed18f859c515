package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"bubblepop/internal/blobs"
	"bubblepop/internal/overlay"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DefaultOptimizeThreshold is the encoded size above which Optimize runs a
// second, smaller pass.
const DefaultOptimizeThreshold = 1 << 20

var (
	ErrCaptureInProgress = errors.New("capture: capture in progress")
	ErrInvalidRegion     = errors.New("capture: invalid region")
	ErrNoSource          = errors.New("capture: no frame source")
	ErrNoOverlay         = errors.New("capture: no overlay renderer")
	ErrClosed            = errors.New("capture: cleaned up")
)

// Source provides the current game frame.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (image.Image, error)

func (f SourceFunc) Frame(ctx context.Context) (image.Image, error) { return f(ctx) }

// URLStore hands out and releases object URLs. *blobs.Store implements it.
type URLStore interface {
	Create(data []byte, contentType string) string
	Revoke(url string) bool
}

// Overlayer composites overlays onto a frame. *overlay.Overlay implements it.
type Overlayer interface {
	CreateScoreOverlay(ctx context.Context, src image.Image, data *overlay.ScoreData, opts overlay.Config) (image.Image, error)
	CreateAchievementOverlay(ctx context.Context, src image.Image, data *overlay.AchievementData, opts overlay.Config) (image.Image, error)
	CreateCustomOverlay(ctx context.Context, src image.Image, elements []overlay.Element, opts overlay.Config) (image.Image, error)
}

type Options struct {
	Format    Format
	Quality   Quality
	MaxWidth  int
	MaxHeight int
	Optimize  bool
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Quality == "" {
		o.Quality = QualityHigh
	}
	return o
}

type Result struct {
	Data         []byte
	ContentType  string
	URL          string
	Filename     string
	Format       Format
	Width        int
	Height       int
	Size         int
	Optimized    bool
	OriginalSize int
}

type Stats struct {
	Captures  int
	Successes int
	Errors    int
}

// SuccessRate is successes as a percentage of captures, 0 before any.
func (s Stats) SuccessRate() float64 {
	if s.Captures == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Captures) * 100
}

type Capture struct {
	source    Source
	urls      URLStore
	overlay   Overlayer
	encoders  map[Format]Encoder
	threshold int
	now       func() time.Time
	observe   func(ok bool)

	busy    atomic.Bool
	history *History

	mu      sync.Mutex
	closed  bool
	current string
	stats   Stats
}

type Option func(*Capture)

// WithURLStore replaces the private object URL store.
func WithURLStore(s URLStore) Option {
	return func(c *Capture) { c.urls = s }
}

func WithOverlay(o Overlayer) Option {
	return func(c *Capture) { c.overlay = o }
}

// WithEncoder registers enc for format, e.g. a WebP encoder.
func WithEncoder(format Format, enc Encoder) Option {
	return func(c *Capture) { c.encoders[format] = enc }
}

func WithOptimizeThreshold(bytes int) Option {
	return func(c *Capture) {
		if bytes > 0 {
			c.threshold = bytes
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Capture) { c.now = now }
}

// WithObserver registers fn to be told the outcome of every attempt.
func WithObserver(fn func(ok bool)) Option {
	return func(c *Capture) { c.observe = fn }
}

func New(source Source, opts ...Option) *Capture {
	c := &Capture{
		source:    source,
		encoders:  defaultEncoders(),
		threshold: DefaultOptimizeThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.urls == nil {
		c.urls = blobs.NewStore()
	}
	c.history = NewHistory(HistoryLimit, c.urls.Revoke)
	return c
}

type transform func(ctx context.Context, img image.Image) (image.Image, error)

// CaptureGameCanvas encodes the current frame.
func (c *Capture) CaptureGameCanvas(ctx context.Context, opts Options) (*Result, error) {
	return c.run(ctx, opts, nil, nil)
}

// CaptureRegion encodes the part of the frame inside the given rectangle.
// A rectangle partly outside the frame is clamped to the overlap.
func (c *Capture) CaptureRegion(ctx context.Context, x, y, width, height int, opts Options) (*Result, error) {
	if x < 0 || y < 0 || width <= 0 || height <= 0 {
		return c.run(ctx, opts, fmt.Errorf("%w: %dx%d at (%d,%d)", ErrInvalidRegion, width, height, x, y), nil)
	}
	region := image.Rect(x, y, x+width, y+height)
	return c.run(ctx, opts, nil, func(_ context.Context, img image.Image) (image.Image, error) {
		b := img.Bounds()
		clamped := region.Add(b.Min).Intersect(b)
		if clamped.Empty() {
			return nil, fmt.Errorf("%w: %v outside %dx%d frame", ErrInvalidRegion, region, b.Dx(), b.Dy())
		}
		return imaging.Crop(img, clamped), nil
	})
}

func (c *Capture) CaptureWithScoreOverlay(ctx context.Context, data *overlay.ScoreData, cfg overlay.Config, opts Options) (*Result, error) {
	return c.run(ctx, opts, c.requireOverlay(), func(ctx context.Context, img image.Image) (image.Image, error) {
		return c.overlay.CreateScoreOverlay(ctx, img, data, cfg)
	})
}

func (c *Capture) CaptureWithAchievementOverlay(ctx context.Context, data *overlay.AchievementData, cfg overlay.Config, opts Options) (*Result, error) {
	return c.run(ctx, opts, c.requireOverlay(), func(ctx context.Context, img image.Image) (image.Image, error) {
		return c.overlay.CreateAchievementOverlay(ctx, img, data, cfg)
	})
}

func (c *Capture) CaptureWithCustomOverlay(ctx context.Context, elements []overlay.Element, cfg overlay.Config, opts Options) (*Result, error) {
	return c.run(ctx, opts, c.requireOverlay(), func(ctx context.Context, img image.Image) (image.Image, error) {
		return c.overlay.CreateCustomOverlay(ctx, img, elements, cfg)
	})
}

func (c *Capture) requireOverlay() error {
	if c.overlay == nil {
		return ErrNoOverlay
	}
	return nil
}

// run counts the attempt, enforces single-flight and records the outcome.
// A non-nil early error fails the attempt before the frame is read.
func (c *Capture) run(ctx context.Context, opts Options, early error, fn transform) (*Result, error) {
	c.mu.Lock()
	c.stats.Captures++
	closed := c.closed
	c.mu.Unlock()

	if early != nil {
		return nil, c.fail(early)
	}
	if closed {
		return nil, c.fail(ErrClosed)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, c.fail(ErrCaptureInProgress)
	}
	defer c.busy.Store(false)

	res, err := c.capture(ctx, opts.withDefaults(), fn)
	if err != nil {
		return nil, c.fail(err)
	}

	// Cleanup may have run while the frame was read.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.urls.Revoke(res.URL)
		return nil, c.fail(ErrClosed)
	}
	c.history.Add(Entry{
		Timestamp: c.now(),
		Filename:  res.Filename,
		Format:    res.Format,
		Size:      res.Size,
		URL:       res.URL,
	})
	c.current = res.URL
	c.stats.Successes++
	c.mu.Unlock()
	if c.observe != nil {
		c.observe(true)
	}
	return res, nil
}

func (c *Capture) capture(ctx context.Context, opts Options, fn transform) (*Result, error) {
	if c.source == nil {
		return nil, ErrNoSource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := c.source.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	if img == nil {
		return nil, ErrNoSource
	}
	if fn != nil {
		if img, err = fn(ctx, img); err != nil {
			return nil, err
		}
	}
	img = fit(img, opts.MaxWidth, opts.MaxHeight)

	data, err := c.encode(img, opts.Format, opts.Quality.Value())
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	res := &Result{
		Data:   data,
		Format: opts.Format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Size:   len(data),
	}
	if opts.Optimize && res.Size > c.threshold {
		c.optimize(img, opts, res)
	}

	res.ContentType = opts.Format.MediaType()
	res.Filename = c.filename(opts.Format)
	res.URL = c.urls.Create(res.Data, res.ContentType)
	return res, nil
}

// optimize re-encodes at reduced quality and 75% of the dimensions, keeping
// the result only when it is smaller.
func (c *Capture) optimize(img image.Image, opts Options, res *Result) {
	quality := opts.Quality.Value()
	if opts.Format != FormatPNG {
		quality = max(quality-20, 40)
	}
	b := img.Bounds()
	w, h := max(b.Dx()*3/4, 1), max(b.Dy()*3/4, 1)
	smaller := imaging.Resize(img, w, h, imaging.Lanczos)

	data, err := c.encode(smaller, opts.Format, quality)
	if err != nil {
		log.Printf("[Capture] Optimize pass failed: %v\n", err)
		return
	}
	if len(data) >= res.Size {
		return
	}
	res.OriginalSize = res.Size
	res.Data = data
	res.Size = len(data)
	res.Width, res.Height = w, h
	res.Optimized = true
}

func fit(img image.Image, maxW, maxH int) image.Image {
	if maxW <= 0 && maxH <= 0 {
		return img
	}
	b := img.Bounds()
	if maxW <= 0 {
		maxW = b.Dx()
	}
	if maxH <= 0 {
		maxH = b.Dy()
	}
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

func (c *Capture) filename(f Format) string {
	return fmt.Sprintf("bubblepop-%s-%s.%s", c.now().Format("20060102-150405"), uuid.New().String()[:8], f.Ext())
}

func (c *Capture) fail(err error) error {
	c.mu.Lock()
	c.stats.Errors++
	c.mu.Unlock()
	if c.observe != nil {
		c.observe(false)
	}
	log.Printf("[Capture] %v\n", err)
	return err
}

// History returns recent captures, oldest first.
func (c *Capture) History() []Entry {
	return c.history.Entries()
}

// ClearHistory revokes every history URL and empties the history.
func (c *Capture) ClearHistory() {
	c.history.Clear()
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
}

// Current returns the URL of the most recent capture still held, if any.
func (c *Capture) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Capture) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Cleanup releases every object URL the capture still holds and fails
// later captures with ErrClosed. Calling it again is a no-op.
func (c *Capture) Cleanup() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.ClearHistory()
}
