package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor parses a CSS-style color: hex (#RGB, #RRGGBB, #RRGGBBAA), an
// SVG color name such as "white", or rgb(r,g,b) / rgba(r,g,b,a).
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(v, "#"):
		if c, ok := parseHex(v[1:]); ok {
			return c, nil
		}
	case strings.HasPrefix(v, "rgb"):
		if c, ok := parseFunc(v); ok {
			return c, nil
		}
	default:
		if c, ok := colornames.Map[v]; ok {
			return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
		}
		if c, ok := parseHex(v); ok {
			return c, nil
		}
	}
	return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func parseHex(hex string) (color.NRGBA, bool) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// parseFunc handles rgb(...) and rgba(...) with 0-255 channels and a 0-1 alpha.
func parseFunc(v string) (color.NRGBA, bool) {
	var args string
	switch {
	case strings.HasPrefix(v, "rgba(") && strings.HasSuffix(v, ")"):
		args = v[len("rgba(") : len(v)-1]
	case strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")"):
		args = v[len("rgb(") : len(v)-1]
	default:
		return color.NRGBA{}, false
	}
	parts := strings.Split(args, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, false
	}
	var ch [4]uint8
	ch[3] = 255
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || f < 0 {
			return color.NRGBA{}, false
		}
		if i == 3 {
			if f > 1 {
				return color.NRGBA{}, false
			}
			f *= 255
		} else if f > 255 {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(math.Round(f))
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, true
}
