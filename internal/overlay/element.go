package overlay

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/gg"
)

type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
)

type Style struct {
	FontSize   float64
	Bold       bool
	Color      string
	Background string
	Opacity    float64 // 0 means fully opaque
	Padding    float64
}

// Element is one custom overlay item. Text elements use Text; image
// elements use Image directly or load Source through the ImageLoader.
type Element struct {
	Type     ElementType
	Position Position
	Style    Style

	Text string

	Image         image.Image
	Source        string
	Width, Height float64
}

func (o *Overlay) drawElement(ctx context.Context, dc *gg.Context, cfg Config, el Element) error {
	padding := cfg.Float("layout.padding", 20)
	opacity := el.Style.Opacity
	if opacity <= 0 {
		opacity = 1
	}

	switch el.Type {
	case ElementText:
		size := el.Style.FontSize
		if size <= 0 {
			size = cfg.Float("text.fontSize", 18)
		}
		dc.SetFont(o.face(el.Style.Bold, size))
		tw, th := dc.MeasureString(el.Text)
		inner := el.Style.Padding
		w, h := tw+2*inner, th+2*inner
		pos := CalculatePosition(el.Position, w, h, float64(dc.Width()), float64(dc.Height()), padding)
		if el.Style.Background != "" {
			if err := fillPanel(dc, pos.X, pos.Y, w, h, 0, el.Style.Background, opacity); err != nil {
				return err
			}
		}
		color := el.Style.Color
		if color == "" {
			color = cfg.String("text.color", "#ffffff")
		}
		setColor(dc, color, opacity)
		dc.DrawString(el.Text, pos.X+inner, pos.Y+inner+th*0.8)
		return nil

	case ElementImage:
		img := el.Image
		if img == nil {
			var err error
			if img, err = o.loadImage(ctx, el.Source); err != nil {
				return fmt.Errorf("loading %q: %w", el.Source, err)
			}
		}
		b := img.Bounds()
		w, h := el.Width, el.Height
		if w <= 0 {
			w = float64(b.Dx())
		}
		if h <= 0 {
			h = float64(b.Dy())
		}
		pos := CalculatePosition(el.Position, w, h, float64(dc.Width()), float64(dc.Height()), padding)
		drawImage(dc, img, pos, w, h, opacity)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownElement, el.Type)
}
