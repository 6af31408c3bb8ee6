package paint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBA is a parsed color with straight alpha in [0, 1]
type RGBA struct {
	colorful.Color
	A float64
}

// Transparent is the zero-alpha color
var Transparent = RGBA{}

var named = map[string]string{
	"black":     "#000000",
	"white":     "#ffffff",
	"red":       "#ff0000",
	"green":     "#008000",
	"blue":      "#0000ff",
	"yellow":    "#ffff00",
	"cyan":      "#00ffff",
	"magenta":   "#ff00ff",
	"gray":      "#808080",
	"grey":      "#808080",
	"lightgray": "#d3d3d3",
	"darkgray":  "#a9a9a9",
	"orange":    "#ffa500",
	"purple":    "#800080",
	"pink":      "#ffc0cb",
	"brown":     "#a52a2a",
	"lime":      "#00ff00",
	"navy":      "#000080",
	"teal":      "#008080",
	"silver":    "#c0c0c0",
	"gold":      "#ffd700",
	"tomato":    "#ff6347",
}

// ParseColor accepts named colors, #rgb, #rrggbb, #rrggbbaa, rgb() and
// rgba(). An empty string is transparent.
func ParseColor(s string) (RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "transparent":
		return Transparent, nil
	case strings.HasPrefix(s, "rgb"):
		return parseFunctional(s)
	}
	if hex, ok := named[s]; ok {
		s = hex
	}
	if !strings.HasPrefix(s, "#") {
		return Transparent, fmt.Errorf("unrecognized color %q", s)
	}

	alpha := 1.0
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Transparent, fmt.Errorf("invalid alpha in %q: %w", s, err)
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Transparent, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGBA{Color: c, A: alpha}, nil
}

func parseFunctional(s string) (RGBA, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Transparent, fmt.Errorf("unrecognized color %q", s)
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Transparent, fmt.Errorf("color %q needs 3 or 4 components", s)
	}

	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Transparent, fmt.Errorf("invalid component in %q: %w", s, err)
		}
		ch[i] = v
	}
	return RGBA{
		Color: colorful.Color{R: clamp01(ch[0] / 255), G: clamp01(ch[1] / 255), B: clamp01(ch[2] / 255)},
		A:     clamp01(ch[3]),
	}, nil
}

// WithOpacity scales alpha by o
func (c RGBA) WithOpacity(o float64) RGBA {
	c.A = clamp01(c.A * o)
	return c
}

// Visible reports whether painting c has any effect
func (c RGBA) Visible() bool {
	return c.A > 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
