package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// MediaType returns the MIME type for f.
func (f Format) MediaType() string {
	return "image/" + string(f)
}

// Ext returns the file extension used in capture filenames.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

var qualityValues = map[Quality]int{
	QualityLow:    60,
	QualityMedium: 80,
	QualityHigh:   92,
}

// Value maps a quality tier to an encoder quality. Unknown tiers use high.
func (q Quality) Value() int {
	if v, ok := qualityValues[q]; ok {
		return v
	}
	return qualityValues[QualityHigh]
}

// Encoder writes img to w. Lossless encoders ignore quality.
type Encoder func(w io.Writer, img image.Image, quality int) error

var (
	ErrWebPUnsupported = errors.New("capture: WebP not supported")
	ErrEncodingFailed  = errors.New("capture: encoding produced no data")
	ErrUnknownFormat   = errors.New("capture: unknown format")
)

func defaultEncoders() map[Format]Encoder {
	return map[Format]Encoder{
		FormatPNG: func(w io.Writer, img image.Image, _ int) error {
			return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
		},
		FormatJPEG: func(w io.Writer, img image.Image, quality int) error {
			return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
		},
	}
}

// encode is the single path from image to bytes for every format.
func (c *Capture) encode(img image.Image, format Format, quality int) ([]byte, error) {
	enc, ok := c.encoders[format]
	if !ok {
		if format == FormatWebP {
			return nil, ErrWebPUnsupported
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	var buf bytes.Buffer
	if err := enc(&buf, img, quality); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	if buf.Len() == 0 {
		return nil, ErrEncodingFailed
	}
	return buf.Bytes(), nil
}
