package seed

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Score generation ranges.
const (
	scoreMin         = 110.0
	scoreRange       = 75.0
	unscoredPercent  = 5
	guestPercent     = 5
	defaultPerEntity = 4
)

// ladder is a group of evenly spaced tiers sharing one template.
type ladder struct {
	group    string
	kind     string
	template string
	image    string
	from, to float64
	step     float64
}

var ladders = []ladder{ //nolint:gochecknoglobals // fixed catalogue
	{group: "", kind: "Certified at the Headrest", template: "cath", image: "templates/cath.png", from: 125, to: 180, step: 5},
	{group: "Radical X", kind: "Radical X", template: "radx", image: "templates/radx.png", from: 125, to: 150, step: 5},
	{group: "Park and Pound", kind: "Park and Pound", template: "pnp", image: "templates/pnp.png", from: 140, to: 160, step: 5},
	{group: "Dueling Demos", kind: "Dueling Demos", template: "demos", image: "templates/demos.png", from: 120, to: 150, step: 10},
}

var classes = []struct{ class, format string }{ //nolint:gochecknoglobals // fixed catalogue
	{"Modified 3", "SPL"},
	{"Street 2", "SPL"},
	{"Radical X 1", "SPL"},
	{"X Maxx", "SPL"},
	{"Park and Pound", "SPL"},
	{"Dueling Demos Street", "SPL"},
	{"Kids Street", "SPL"},
	{"Stock Install", "SQL"},
}

// namespace scopes generated identifiers so the same seed yields the same ids.
var namespace = uuid.MustParse("7d0c3b1e-6a0f-4a55-9d61-1f0b5a7c2e90") //nolint:gochecknoglobals // constant uuid

// GenerateConfig controls Generate.
type GenerateConfig struct {
	Competitors          int
	ResultsPerCompetitor int
	Seed                 uint64
	Season               string
}

// Generate builds a fixture with the standard ladders and random results.
// The same config always produces the same fixture.
func Generate(cfg GenerateConfig) Fixture {
	if cfg.ResultsPerCompetitor < 1 {
		cfg.ResultsPerCompetitor = defaultPerEntity
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	id := func(kind string, parts ...any) string {
		return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("%s:%d:%v", kind, cfg.Seed, parts))).String()
	}

	var f Fixture
	for _, l := range ladders {
		x, y, size := 40, 60, 48
		f.Templates = append(f.Templates, Template{
			Key: l.template, Name: l.kind, Image: l.image, X: &x, Y: &y, FontSize: &size,
		})
		for t := l.from; t <= l.to; t += l.step {
			f.Definitions = append(f.Definitions, Definition{
				ID:              id("definition", l.template, t),
				Name:            fmt.Sprintf("%s %g+", l.kind, t),
				Group:           l.group,
				CompetitionType: l.kind,
				Format:          "SPL",
				Threshold:       t,
				Template:        l.template,
			})
		}
	}

	event := id("event")
	for c := 0; c < cfg.Competitors; c++ {
		competitor := id("competitor", c)
		member := fmt.Sprintf("%06d", 700000+c)
		for n := 0; n < cfg.ResultsPerCompetitor; n++ {
			pick := classes[rng.IntN(len(classes))]
			r := Result{
				ID:         id("result", c, n),
				Competitor: competitor,
				Member:     member,
				Class:      pick.class,
				Format:     pick.format,
				Event:      event,
				Season:     cfg.Season,
			}
			if rng.IntN(100) >= unscoredPercent {
				score := math.Round((scoreMin+rng.Float64()*scoreRange)*10) / 10
				r.Score = &score
			}
			if rng.IntN(100) < guestPercent {
				r.Competitor = ""
			}
			f.Results = append(f.Results, r)
		}
	}
	return f
}
