package model

// DefaultTextColor is used when a template declares a position but no color.
const DefaultTextColor = "#CC0F00"

// TextStyle places the overlay value in the template's native pixel space.
// (X, Y) is the left end of the alphabetic baseline.
type TextStyle struct {
	X        float64
	Y        float64
	FontSize float64
	Color    string
}

// Template is the shared artwork referenced by one or more definitions.
type Template struct {
	Key           string
	Name          string
	BaseImagePath string
	Text          *TextStyle // nil when the template declares no overlay
}

// NewTextStyle returns nil unless position and size are all declared and the
// size is positive.
func NewTextStyle(x, y, fontSize *int, color string) *TextStyle {
	if x == nil || y == nil || fontSize == nil || *fontSize <= 0 {
		return nil
	}
	if color == "" {
		color = DefaultTextColor
	}
	return &TextStyle{
		X:        float64(*x),
		Y:        float64(*y),
		FontSize: float64(*fontSize),
		Color:    color,
	}
}
