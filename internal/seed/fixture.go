// Package seed builds award fixtures, loads them into a store and checks a
// running server against the awards they should produce.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/okian/accolade/internal/adapters/repository"
	"github.com/okian/accolade/internal/domain/model"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// Fixture is a complete set of award inputs.
type Fixture struct {
	Templates   []Template   `yaml:"templates"`
	Definitions []Definition `yaml:"definitions"`
	Results     []Result     `yaml:"results"`
}

// Template describes artwork and where text is drawn on it.
type Template struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name,omitempty"`
	Image    string `yaml:"image"`
	X        *int   `yaml:"x,omitempty"`
	Y        *int   `yaml:"y,omitempty"`
	FontSize *int   `yaml:"font_size,omitempty"`
	Color    string `yaml:"color,omitempty"`
}

// Definition is one tier of a group.
type Definition struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description,omitempty"`
	Group           string   `yaml:"group,omitempty"`
	CompetitionType string   `yaml:"competition_type"`
	Format          string   `yaml:"format,omitempty"`
	Threshold       float64  `yaml:"threshold"`
	Operator        string   `yaml:"operator,omitempty"`
	Classes         []string `yaml:"classes,omitempty"`
	Template        string   `yaml:"template"`
	RenderValue     *float64 `yaml:"render_value,omitempty"`
	DisplayOrder    int      `yaml:"display_order,omitempty"`
	Inactive        bool     `yaml:"inactive,omitempty"`
}

// Result is one scored (or unscored) competition entry.
type Result struct {
	ID         string   `yaml:"id"`
	Competitor string   `yaml:"competitor,omitempty"`
	Member     string   `yaml:"member,omitempty"`
	Class      string   `yaml:"class"`
	Format     string   `yaml:"format,omitempty"`
	Score      *float64 `yaml:"score,omitempty"`
	Event      string   `yaml:"event,omitempty"`
	Season     string   `yaml:"season,omitempty"`
}

// Load reads a YAML fixture.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("%w: %s: %v", ErrInvalidFixture, path, err)
	}
	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Save writes f as YAML, creating parent directories.
func Save(path string, f Fixture) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create fixture directory: %w", err)
		}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), filePermission); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// Validate checks identifiers and references.
func (f Fixture) Validate() error {
	keys := make(map[string]struct{}, len(f.Templates))
	for _, t := range f.Templates {
		if strings.TrimSpace(t.Key) == "" || strings.TrimSpace(t.Image) == "" {
			return fmt.Errorf("%w: template needs key and image", ErrInvalidFixture)
		}
		keys[t.Key] = struct{}{}
	}
	ids := make(map[string]struct{}, len(f.Definitions))
	for _, d := range f.Definitions {
		if d.ID == "" {
			return fmt.Errorf("%w: definition %q has no id", ErrInvalidFixture, d.Name)
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("%w: duplicate definition id %s", ErrInvalidFixture, d.ID)
		}
		ids[d.ID] = struct{}{}
		if _, ok := keys[d.Template]; !ok {
			return fmt.Errorf("%w: definition %s uses unknown template %q", ErrInvalidFixture, d.ID, d.Template)
		}
	}
	for _, r := range f.Results {
		if r.ID == "" {
			return fmt.Errorf("%w: result without id", ErrInvalidFixture)
		}
	}
	return nil
}

// Saver is the subset of the store Apply writes through.
type Saver interface {
	SaveTemplates(ctx context.Context, rows []repository.TemplateRow) error
	SaveDefinitions(ctx context.Context, rows []repository.DefinitionRow) error
	SaveResults(ctx context.Context, rows []repository.ResultRow) error
}

// Apply upserts every row of f. Templates go first so definitions never
// point at a template the store has not seen.
func Apply(ctx context.Context, s Saver, f Fixture) error {
	templates := make([]repository.TemplateRow, len(f.Templates))
	for i, t := range f.Templates {
		templates[i] = repository.TemplateRow{
			Key: t.Key, Name: t.Name, BaseImagePath: t.Image,
			TextX: t.X, TextY: t.Y, FontSize: t.FontSize, TextColor: t.Color,
			IsActive: true,
		}
	}
	if err := s.SaveTemplates(ctx, templates); err != nil {
		return err
	}

	defs := make([]repository.DefinitionRow, len(f.Definitions))
	for i, d := range f.Definitions {
		defs[i] = repository.DefinitionRow{
			ID: d.ID, Name: d.Name, Description: d.Description,
			GroupName: d.Group, CompetitionType: d.CompetitionType, Format: d.Format,
			ThresholdValue: d.Threshold, ThresholdOperator: d.operator(),
			ClassFilter: d.Classes, TemplateKey: d.Template, RenderValue: d.RenderValue,
			DisplayOrder: d.DisplayOrder, IsActive: !d.Inactive,
		}
	}
	if err := s.SaveDefinitions(ctx, defs); err != nil {
		return err
	}

	results := make([]repository.ResultRow, len(f.Results))
	for i, r := range f.Results {
		row := repository.ResultRow{
			ID: r.ID, MemberID: r.Member, CompetitionClass: r.Class, Format: r.Format,
			Score: r.Score, EventID: r.Event, SeasonID: r.Season,
		}
		if r.Competitor != "" {
			c := r.Competitor
			row.CompetitorID = &c
		}
		results[i] = row
	}
	return s.SaveResults(ctx, results)
}

func (d Definition) operator() string {
	if d.Operator == "" {
		return string(model.OpGreaterOrEqual)
	}
	return d.Operator
}

func (d Definition) toDomain() model.Definition {
	return model.Definition{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		Group:           d.Group,
		CompetitionType: d.CompetitionType,
		Format:          d.Format,
		Threshold:       d.Threshold,
		Operator:        model.Operator(d.operator()),
		TemplateKey:     d.Template,
		RenderValue:     d.RenderValue,
		DisplayOrder:    d.DisplayOrder,
		Match:           model.NewMatcher(d.Classes, d.CompetitionType),
	}
}

func (r Result) toDomain() model.CompetitionResult {
	return model.CompetitionResult{
		ID:           r.ID,
		CompetitorID: r.Competitor,
		MemberID:     r.Member,
		Class:        r.Class,
		Format:       r.Format,
		Score:        r.Score,
		EventID:      r.Event,
		SeasonID:     r.Season,
	}
}
