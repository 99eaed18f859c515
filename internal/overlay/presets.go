package overlay

import "strings"

var presets = map[string]Config{
	"minimal": {
		"logo":      Config{"enabled": false},
		"watermark": Config{"enabled": false},
		"scoreBox":  Config{"opacity": 0.4, "radius": 0.0},
	},
	"elegant": {
		"scoreBox":    Config{"background": "#1b1b2f", "accent": "#e2c275", "radius": 20.0},
		"achievement": Config{"background": "#1b1b2f", "accent": "#e2c275", "radius": 20.0},
		"logo":        Config{"background": "#1b1b2f", "color": "#e2c275"},
	},
	"gaming": {
		"scoreBox":    Config{"background": "#0f0f0f", "accent": "#39ff14", "fontSize": 48.0},
		"achievement": Config{"background": "#0f0f0f", "accent": "#39ff14"},
		"logo":        Config{"background": "#39ff14", "color": "#000000"},
	},
}

// Preset returns the named patch. Unknown names give an empty patch.
func Preset(name string) Config {
	p, ok := presets[name]
	if !ok {
		return Config{}
	}
	return clone(p)
}

// ApplyPreset merges the named preset over base.
func ApplyPreset(base Config, name string) Config {
	return DeepMerge(base, Preset(name))
}

var portraitAnchors = map[string]Anchor{
	"scoreBox":    TopCenter,
	"achievement": Center,
	"logo":        BottomCenter,
}

// ResponsiveConfig adapts base to a canvas size. Narrow canvases get
// scaled-down fonts; portrait canvases move named anchors to centred ones.
// A wide landscape canvas gets base back unchanged.
func ResponsiveConfig(base Config, width, height int) Config {
	out := clone(base)
	breakpoint := base.Float("layout.mobileBreakpoint", 768)
	if float64(width) < breakpoint {
		scaleFonts(out, base.Float("layout.mobileScale", 0.75))
	}
	if height > width {
		for section, anchor := range portraitAnchors {
			m, ok := asMap(out[section])
			if !ok {
				continue
			}
			if _, named := m["position"].(string); named {
				m["position"] = string(anchor)
			}
		}
	}
	return out
}

func scaleFonts(c Config, scale float64) {
	for k, v := range c {
		if m, ok := asMap(v); ok {
			scaleFonts(m, scale)
			continue
		}
		if k == "fontSize" || strings.HasSuffix(k, "FontSize") {
			c[k] = c.Float(k, 0) * scale
		}
	}
}
