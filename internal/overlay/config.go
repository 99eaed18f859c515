package overlay

import (
	"strings"

	"github.com/spf13/cast"
)

// Config is a nested overlay configuration. Sections are Config values
// keyed by name ("scoreBox", "logo", ...); leaves are plain values.
type Config map[string]any

// DefaultConfig returns a fresh copy of the built-in layout.
func DefaultConfig() Config {
	return Config{
		"layout": Config{
			"padding":          20.0,
			"mobileBreakpoint": 768.0,
			"mobileScale":      0.75,
		},
		"scoreBox": Config{
			"enabled":        true,
			"position":       string(TopRight),
			"width":          300.0,
			"height":         140.0,
			"background":     "#000000",
			"opacity":        0.7,
			"radius":         12.0,
			"fontSize":       40.0,
			"labelFontSize":  16.0,
			"detailFontSize": 14.0,
			"color":          "#ffffff",
			"accent":         "#ffd700",
		},
		"achievement": Config{
			"position":      string(TopCenter),
			"width":         460.0,
			"height":        120.0,
			"background":    "#1a1a2e",
			"opacity":       0.85,
			"radius":        14.0,
			"titleFontSize": 26.0,
			"fontSize":      16.0,
			"lineHeight":    1.3,
			"color":         "#ffffff",
			"accent":        "#ffd700",
		},
		"logo": Config{
			"enabled":    true,
			"position":   string(BottomLeft),
			"text":       "Bubble Pop",
			"source":     "",
			"width":      0.0,
			"height":     0.0,
			"fontSize":   22.0,
			"color":      "#ffffff",
			"background": "#ff6b9d",
			"opacity":    0.9,
			"padding":    10.0,
		},
		"watermark": Config{
			"enabled":  true,
			"position": string(BottomRight),
			"text":     "bubblepop.game",
			"fontSize": 14.0,
			"color":    "#ffffff",
			"opacity":  0.5,
		},
		"text": Config{
			"fontSize": 18.0,
			"color":    "#ffffff",
		},
	}
}

// DeepMerge returns a new tree holding base with patch applied. Nested
// sections merge key by key, so siblings the patch does not mention
// survive. Neither input is modified.
func DeepMerge(base, patch Config) Config {
	out := clone(base)
	for k, pv := range patch {
		pm, patchIsMap := asMap(pv)
		bm, baseIsMap := asMap(out[k])
		if patchIsMap && baseIsMap {
			out[k] = DeepMerge(bm, pm)
			continue
		}
		out[k] = cloneValue(pv)
	}
	return out
}

func clone(c Config) Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := asMap(v); ok {
		return clone(m)
	}
	return v
}

func asMap(v any) (Config, bool) {
	switch m := v.(type) {
	case Config:
		return m, true
	case map[string]any:
		return Config(m), true
	}
	return nil, false
}

// Lookup resolves a dotted path such as "scoreBox.fontSize".
func (c Config) Lookup(path string) (any, bool) {
	var cur any = c
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (c Config) Float(path string, def float64) float64 {
	v, ok := c.Lookup(path)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

func (c Config) String(path, def string) string {
	v, ok := c.Lookup(path)
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

func (c Config) Bool(path string, def bool) bool {
	v, ok := c.Lookup(path)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Position reads a placement that is either an anchor name or an {x, y}
// section.
func (c Config) Position(path string, def Anchor) Position {
	v, ok := c.Lookup(path)
	if !ok {
		return Position{Anchor: def}
	}
	if m, ok := asMap(v); ok {
		return At(cast.ToFloat64(m["x"]), cast.ToFloat64(m["y"]))
	}
	if p, ok := v.(Position); ok {
		return p
	}
	return Position{Anchor: Anchor(cast.ToString(v))}
}
