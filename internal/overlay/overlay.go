package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrMissingData    = errors.New("overlay: missing source canvas or data")
	ErrUnknownElement = errors.New("overlay: unknown element type")
	ErrNoImageLoader  = errors.New("overlay: image element needs an image loader")
)

type ScoreData struct {
	Score       int
	IsHighScore bool
	Combo       int
	Accuracy    float64 // percent
	Stage       int
	PlayerName  string
}

type AchievementData struct {
	Name        string
	Description string
	Icon        string
	Rarity      string
}

// ImageLoader resolves image element sources (URLs, paths, blob ids).
type ImageLoader interface {
	LoadImage(ctx context.Context, source string) (image.Image, error)
}

type Stats struct {
	Created int
	Errors  int
}

type Overlay struct {
	base   Config
	loader ImageLoader
	cache  *ristretto.Cache

	fontsOnce     sync.Once
	regular, bold *text.FontSource
	fontErr       error

	mu    sync.Mutex
	stats Stats
}

type Option func(*Overlay)

// WithConfig merges patch over the default configuration.
func WithConfig(patch Config) Option {
	return func(o *Overlay) { o.base = DeepMerge(o.base, patch) }
}

func WithPreset(name string) Option {
	return func(o *Overlay) { o.base = ApplyPreset(o.base, name) }
}

func WithImageLoader(l ImageLoader) Option {
	return func(o *Overlay) { o.loader = l }
}

func New(opts ...Option) (*Overlay, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     64,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating overlay cache: %w", err)
	}
	o := &Overlay{
		base:  DefaultConfig(),
		cache: cache,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns a copy of the overlay's base configuration.
func (o *Overlay) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return clone(o.base)
}

// UpdateConfig deep-merges patch into the base configuration.
func (o *Overlay) UpdateConfig(patch Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.base = DeepMerge(o.base, patch)
}

func (o *Overlay) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// Close drops cached faces and images.
func (o *Overlay) Close() {
	o.cache.Close()
}

func (o *Overlay) CreateScoreOverlay(ctx context.Context, src image.Image, data *ScoreData, opts Config) (image.Image, error) {
	if src == nil || data == nil {
		return nil, o.fail(ErrMissingData)
	}
	return o.render(ctx, src, opts, func(dc *gg.Context, cfg Config) error {
		return o.drawScoreBox(dc, cfg, data)
	})
}

func (o *Overlay) CreateAchievementOverlay(ctx context.Context, src image.Image, data *AchievementData, opts Config) (image.Image, error) {
	if src == nil || data == nil {
		return nil, o.fail(ErrMissingData)
	}
	return o.render(ctx, src, opts, func(dc *gg.Context, cfg Config) error {
		return o.drawAchievement(dc, cfg, data)
	})
}

// CreateCustomOverlay draws elements in order, so later elements end up on
// top.
func (o *Overlay) CreateCustomOverlay(ctx context.Context, src image.Image, elements []Element, opts Config) (image.Image, error) {
	if src == nil || elements == nil {
		return nil, o.fail(ErrMissingData)
	}
	return o.render(ctx, src, opts, func(dc *gg.Context, cfg Config) error {
		for i, el := range elements {
			if err := o.drawElement(ctx, dc, cfg, el); err != nil {
				return fmt.Errorf("drawing element %d: %w", i, err)
			}
		}
		return nil
	})
}

func (o *Overlay) render(ctx context.Context, src image.Image, opts Config, content func(*gg.Context, Config) error) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, o.fail(err)
	}
	if err := o.loadFonts(); err != nil {
		return nil, o.fail(err)
	}

	o.mu.Lock()
	base := o.base
	o.mu.Unlock()

	b := src.Bounds()
	cfg := DeepMerge(ResponsiveConfig(base, b.Dx(), b.Dy()), opts)

	dc := gg.NewContext(b.Dx(), b.Dy())
	defer dc.Close()
	dc.DrawImage(gg.ImageBufFromImage(src), 0, 0)

	if err := content(dc, cfg); err != nil {
		return nil, o.fail(err)
	}
	if err := o.drawLogo(ctx, dc, cfg); err != nil {
		return nil, o.fail(err)
	}
	if err := o.drawWatermark(dc, cfg); err != nil {
		return nil, o.fail(err)
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, o.fail(fmt.Errorf("flushing overlay: %w", err))
	}
	out := dc.Image()
	o.mu.Lock()
	o.stats.Created++
	o.mu.Unlock()
	return out, nil
}

func (o *Overlay) fail(err error) error {
	o.mu.Lock()
	o.stats.Errors++
	o.mu.Unlock()
	log.Printf("[Overlay] %v\n", err)
	return err
}

func (o *Overlay) drawScoreBox(dc *gg.Context, cfg Config, data *ScoreData) error {
	if !cfg.Bool("scoreBox.enabled", true) {
		return nil
	}
	w := cfg.Float("scoreBox.width", 300)
	h := cfg.Float("scoreBox.height", 140)
	padding := cfg.Float("layout.padding", 20)
	pos := CalculatePosition(cfg.Position("scoreBox.position", TopRight), w, h,
		float64(dc.Width()), float64(dc.Height()), padding)

	if err := fillPanel(dc, pos.X, pos.Y, w, h, cfg.Float("scoreBox.radius", 0),
		cfg.String("scoreBox.background", "#000000"), cfg.Float("scoreBox.opacity", 0.7)); err != nil {
		return err
	}

	label := "SCORE"
	if data.IsHighScore {
		label = "NEW HIGH SCORE"
	}
	cx := pos.X + w/2
	dc.SetFont(o.face(true, cfg.Float("scoreBox.labelFontSize", 16)))
	dc.SetHexColor(cfg.String("scoreBox.accent", "#ffd700"))
	dc.DrawStringAnchored(label, cx, pos.Y+h*0.22, 0.5, 0.5)

	dc.SetFont(o.face(true, cfg.Float("scoreBox.fontSize", 40)))
	dc.SetHexColor(cfg.String("scoreBox.color", "#ffffff"))
	dc.DrawStringAnchored(formatScore(data.Score), cx, pos.Y+h*0.52, 0.5, 0.5)

	if details := scoreDetails(data); details != "" {
		dc.SetFont(o.face(false, cfg.Float("scoreBox.detailFontSize", 14)))
		dc.DrawStringAnchored(details, cx, pos.Y+h*0.82, 0.5, 0.5)
	}
	return nil
}

func scoreDetails(data *ScoreData) string {
	var parts []string
	if data.PlayerName != "" {
		parts = append(parts, data.PlayerName)
	}
	if data.Combo > 0 {
		parts = append(parts, fmt.Sprintf("Combo x%d", data.Combo))
	}
	if data.Accuracy > 0 {
		parts = append(parts, fmt.Sprintf("Accuracy %.0f%%", data.Accuracy))
	}
	if data.Stage > 0 {
		parts = append(parts, fmt.Sprintf("Stage %d", data.Stage))
	}
	return strings.Join(parts, "  ")
}

func formatScore(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

func (o *Overlay) drawAchievement(dc *gg.Context, cfg Config, data *AchievementData) error {
	w := cfg.Float("achievement.width", 460)
	inner := 18.0
	titleSize := cfg.Float("achievement.titleFontSize", 26)
	bodySize := cfg.Float("achievement.fontSize", 16)
	lineHeight := bodySize * cfg.Float("achievement.lineHeight", 1.3)

	bodyFace := o.face(false, bodySize)
	dc.SetFont(bodyFace)
	lines := WrapText(data.Description, w-2*inner, func(s string) float64 {
		lw, _ := dc.MeasureString(s)
		return lw
	})

	// label + title + description lines
	needed := inner + 14 + titleSize*1.4 + float64(len(lines))*lineHeight + inner
	h := max(cfg.Float("achievement.height", 120), needed)
	padding := cfg.Float("layout.padding", 20)
	pos := CalculatePosition(cfg.Position("achievement.position", TopCenter), w, h,
		float64(dc.Width()), float64(dc.Height()), padding)

	if err := fillPanel(dc, pos.X, pos.Y, w, h, cfg.Float("achievement.radius", 0),
		cfg.String("achievement.background", "#1a1a2e"), cfg.Float("achievement.opacity", 0.85)); err != nil {
		return err
	}

	y := pos.Y + inner + 12
	dc.SetFont(o.face(true, 12))
	dc.SetHexColor(cfg.String("achievement.accent", "#ffd700"))
	label := "ACHIEVEMENT UNLOCKED"
	if data.Rarity != "" {
		label += " · " + strings.ToUpper(data.Rarity)
	}
	dc.DrawString(label, pos.X+inner, y)

	y += titleSize * 1.4
	dc.SetFont(o.face(true, titleSize))
	dc.SetHexColor(cfg.String("achievement.color", "#ffffff"))
	title := data.Name
	if data.Icon != "" {
		title = data.Icon + " " + title
	}
	dc.DrawString(title, pos.X+inner, y)

	dc.SetFont(bodyFace)
	for _, line := range lines {
		y += lineHeight
		dc.DrawString(line, pos.X+inner, y)
	}
	return nil
}

func (o *Overlay) drawLogo(ctx context.Context, dc *gg.Context, cfg Config) error {
	if !cfg.Bool("logo.enabled", true) {
		return nil
	}
	padding := cfg.Float("layout.padding", 20)
	if src := cfg.String("logo.source", ""); src != "" {
		img, err := o.loadImage(ctx, src)
		if err != nil {
			return fmt.Errorf("loading logo: %w", err)
		}
		b := img.Bounds()
		w := cfg.Float("logo.width", float64(b.Dx()))
		h := cfg.Float("logo.height", float64(b.Dy()))
		if w <= 0 || h <= 0 {
			w, h = float64(b.Dx()), float64(b.Dy())
		}
		pos := CalculatePosition(cfg.Position("logo.position", BottomLeft), w, h,
			float64(dc.Width()), float64(dc.Height()), padding)
		drawImage(dc, img, pos, w, h, cfg.Float("logo.opacity", 1))
		return nil
	}

	label := cfg.String("logo.text", "")
	if label == "" {
		return nil
	}
	inner := cfg.Float("logo.padding", 10)
	dc.SetFont(o.face(true, cfg.Float("logo.fontSize", 22)))
	tw, th := dc.MeasureString(label)
	w, h := tw+2*inner, th+2*inner
	pos := CalculatePosition(cfg.Position("logo.position", BottomLeft), w, h,
		float64(dc.Width()), float64(dc.Height()), padding)
	if err := fillPanel(dc, pos.X, pos.Y, w, h, h/2,
		cfg.String("logo.background", "#ff6b9d"), cfg.Float("logo.opacity", 0.9)); err != nil {
		return err
	}
	dc.SetHexColor(cfg.String("logo.color", "#ffffff"))
	dc.DrawStringAnchored(label, pos.X+w/2, pos.Y+h/2, 0.5, 0.5)
	return nil
}

func (o *Overlay) drawWatermark(dc *gg.Context, cfg Config) error {
	if !cfg.Bool("watermark.enabled", true) {
		return nil
	}
	label := cfg.String("watermark.text", "")
	if label == "" {
		return nil
	}
	dc.SetFont(o.face(false, cfg.Float("watermark.fontSize", 14)))
	w, h := dc.MeasureString(label)
	pos := CalculatePosition(cfg.Position("watermark.position", BottomRight), w, h,
		float64(dc.Width()), float64(dc.Height()), cfg.Float("layout.padding", 20)/2)
	setColor(dc, cfg.String("watermark.color", "#ffffff"), cfg.Float("watermark.opacity", 0.5))
	dc.DrawString(label, pos.X, pos.Y+h*0.8)
	return nil
}

func (o *Overlay) loadFonts() error {
	o.fontsOnce.Do(func() {
		o.regular, o.fontErr = text.NewFontSource(goregular.TTF)
		if o.fontErr != nil {
			return
		}
		o.bold, o.fontErr = text.NewFontSource(gobold.TTF)
	})
	if o.fontErr != nil {
		return fmt.Errorf("loading overlay fonts: %w", o.fontErr)
	}
	return nil
}

func (o *Overlay) face(bold bool, size float64) text.Face {
	key := fmt.Sprintf("face:%t:%.2f", bold, size)
	if v, ok := o.cache.Get(key); ok {
		if f, ok := v.(text.Face); ok {
			return f
		}
	}
	src := o.regular
	if bold {
		src = o.bold
	}
	f := src.Face(size)
	o.cache.Set(key, f, 1)
	return f
}

func (o *Overlay) loadImage(ctx context.Context, source string) (image.Image, error) {
	key := "img:" + source
	if v, ok := o.cache.Get(key); ok {
		if img, ok := v.(image.Image); ok {
			return img, nil
		}
	}
	if o.loader == nil {
		return nil, ErrNoImageLoader
	}
	img, err := o.loader.LoadImage(ctx, source)
	if err != nil {
		return nil, err
	}
	o.cache.Set(key, img, 1)
	return img, nil
}

func fillPanel(dc *gg.Context, x, y, w, h, radius float64, hex string, opacity float64) error {
	setColor(dc, hex, opacity)
	if radius > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, radius)
	} else {
		dc.DrawRectangle(x, y, w, h)
	}
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("filling panel: %w", err)
	}
	return nil
}

func setColor(dc *gg.Context, hex string, opacity float64) {
	c := gg.Hex(hex)
	dc.SetRGBA(c.R, c.G, c.B, c.A*opacity)
}

func drawImage(dc *gg.Context, img image.Image, pos Point, w, h, opacity float64) {
	if opacity <= 0 {
		return
	}
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             pos.X,
		Y:             pos.Y,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
		Opacity:       opacity,
		BlendMode:     gg.BlendNormal,
	})
}
