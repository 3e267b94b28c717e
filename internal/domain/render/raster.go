package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // template artwork may be JPEG
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // and WebP

	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/pkg/logger"
)

// ContentType of every image produced by Rasterizer.
const ContentType = "image/png"

// Rasterizer burns text into template artwork and encodes the result as PNG.
// It is safe for concurrent use; each call builds its own font face.
type Rasterizer struct {
	font    *opentype.Font
	ttf     []byte
	hinting font.Hinting
	logger  logger.Logger
}

// RasterOption configures a Rasterizer.
type RasterOption func(*Rasterizer)

// WithFontData replaces the built-in bold face with a TrueType/OpenType font.
func WithFontData(ttf []byte) RasterOption {
	return func(r *Rasterizer) {
		if len(ttf) > 0 {
			r.ttf = ttf
		}
	}
}

// WithHinting sets glyph hinting.
func WithHinting(h font.Hinting) RasterOption {
	return func(r *Rasterizer) {
		r.hinting = h
	}
}

// WithLogger sets the logger used for recoverable template problems.
func WithLogger(log logger.Logger) RasterOption {
	return func(r *Rasterizer) {
		if log != nil {
			r.logger = log
		}
	}
}

// ParseHinting maps none, vertical or full to a glyph hinting mode.
func ParseHinting(s string) (font.Hinting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return font.HintingNone, nil
	case "vertical":
		return font.HintingVertical, nil
	case "full", "":
		return font.HintingFull, nil
	}
	return font.HintingNone, fmt.Errorf("%w: unknown hinting %q", ErrFont, s)
}

// NewRasterizer parses the configured typeface.
func NewRasterizer(opts ...RasterOption) (*Rasterizer, error) {
	r := &Rasterizer{ttf: gobold.TTF, hinting: font.HintingFull, logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	f, err := opentype.Parse(r.ttf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFont, err)
	}
	r.font = f
	return r, nil
}

// NaturalSize reports the pixel dimensions of encoded artwork without decoding it fully.
func NaturalSize(data []byte) (Size, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Size{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Size{W: float64(cfg.Width), H: float64(cfg.Height)}, nil
}

// Render draws text onto base at the template's position. When the template
// declares no text style, or text is empty, the artwork is re-encoded as-is.
func (r *Rasterizer) Render(base []byte, text string, tpl model.Template) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(base))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	if tpl.Text != nil && text != "" {
		if err := r.drawText(canvas, text, *tpl.Text); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

func (r *Rasterizer) drawText(dst *image.RGBA, text string, style model.TextStyle) error {
	col, err := ParseColor(style.Color)
	if err != nil {
		r.logger.Warn(context.Background(), "unusable text color; using default",
			logger.String("color", style.Color), logger.String("default", model.DefaultTextColor))
		col, _ = ParseColor(model.DefaultTextColor)
	}
	natural := Size{W: float64(dst.Bounds().Dx()), H: float64(dst.Bounds().Dy())}
	g := Place(natural, Native(natural), style, OfflineProfile)

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    g.FontSize,
		DPI:     72,
		Hinting: r.hinting,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFont, err)
	}
	defer face.Close()

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(g.X * 64), Y: fixed.Int26_6(g.Baseline * 64)},
	}
	d.DrawString(text)
	return nil
}
