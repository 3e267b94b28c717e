// Package render composites achievement values onto template artwork, either
// as a stored raster or as a live overlay placement.
//
// Both strategies go through Place, which maps a baseline-anchored text style
// from the template's native pixel space into a target box.
package render

import (
	"math"

	"github.com/okian/accolade/internal/domain/model"
)

// Size is a width/height pair in pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Known reports whether both dimensions are positive and finite.
func (s Size) Known() bool {
	return s.W > 0 && s.H > 0 && !math.IsInf(s.W, 0) && !math.IsInf(s.H, 0)
}

// Fit names the axis that limited a contain-scaled image.
type Fit int

const (
	FitNative Fit = iota
	FitWidth
	FitHeight
)

func (f Fit) String() string {
	switch f {
	case FitWidth:
		return "width"
	case FitHeight:
		return "height"
	default:
		return "native"
	}
}

// Box is where the image lands in target space.
type Box struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	W   float64 `json:"width"`
	H   float64 `json:"height"`
	Fit Fit     `json:"-"`
}

// Native is the identity box used when drawing in the image's own pixels.
func Native(natural Size) Box {
	return Box{W: natural.W, H: natural.H, Fit: FitNative}
}

// Contain scales natural uniformly to fit inside container and centers it.
// An image relatively wider than the container is width-constrained;
// otherwise it is height-constrained.
func Contain(natural, container Size) (Box, bool) {
	if !natural.Known() || !container.Known() {
		return Box{}, false
	}
	imageAspect := natural.W / natural.H
	containerAspect := container.W / container.H

	var b Box
	if imageAspect > containerAspect {
		b.W = container.W
		b.H = container.W / imageAspect
		b.Fit = FitWidth
	} else {
		b.H = container.H
		b.W = container.H * imageAspect
		b.Fit = FitHeight
	}
	b.X = (container.W - b.W) / 2
	b.Y = (container.H - b.H) / 2
	return b, true
}

// Profile holds the per-renderer tuning applied on top of the shared transform.
type Profile struct {
	Shrink      float64 // multiplier on the scaled font size
	AscentRatio float64 // baseline-to-top distance as a fraction of font size
	RoundFont   bool    // round the font size to whole pixels
}

var (
	// OfflineProfile draws at the template's exact size on its own baseline.
	OfflineProfile = Profile{Shrink: 1, AscentRatio: 0.92}
	// LiveProfile keeps glyphs off the artwork edges and anchors by top-left.
	LiveProfile = Profile{Shrink: 0.9, AscentRatio: 0.92, RoundFont: true}
)

// Glyph is a text run placed in target space.
type Glyph struct {
	X        float64 // left edge
	Baseline float64
	Top      float64 // baseline shifted up by the profile's ascent ratio
	FontSize float64
}

// Place maps a template text style from natural image space into box.
func Place(natural Size, box Box, text model.TextStyle, p Profile) Glyph {
	scale := box.H / natural.H
	x := text.X/natural.W*box.W + box.X
	baseline := text.Y/natural.H*box.H + box.Y

	size := text.FontSize * scale * p.Shrink
	if p.RoundFont {
		size = roundHalfUp(size)
	}
	return Glyph{
		X:        x,
		Baseline: baseline,
		Top:      baseline - p.AscentRatio*size,
		FontSize: size,
	}
}
