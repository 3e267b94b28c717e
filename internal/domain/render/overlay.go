package render

import "github.com/okian/accolade/internal/domain/model"

// Placement is a live overlay positioned by its top-left corner inside a
// container that displays the artwork with contain scaling.
type Placement struct {
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	FontSizePx int     `json:"font_size_px"`
	Color      string  `json:"color"`
	Text       string  `json:"text"`
	Image      Box     `json:"image"`
}

// Overlay computes where to draw text over artwork of the given natural size
// shown in container. It reports false when either size is unknown or the
// template has no text style; callers should show the bare artwork then.
func Overlay(natural, container Size, tpl model.Template, text string) (Placement, bool) {
	if tpl.Text == nil {
		return Placement{}, false
	}
	box, ok := Contain(natural, container)
	if !ok {
		return Placement{}, false
	}
	g := Place(natural, box, *tpl.Text, LiveProfile)
	return Placement{
		Left:       g.X,
		Top:        g.Top,
		FontSizePx: int(g.FontSize),
		Color:      tpl.Text.Color,
		Text:       text,
		Image:      box,
	}, true
}
