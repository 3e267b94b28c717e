package model

import "strings"

// CompetitionType is the competition-type bucket a heuristic definition targets.
type CompetitionType string

// Known competition types.
const (
	TypeUnknown                CompetitionType = ""
	TypeRadicalX               CompetitionType = "Radical X"
	TypeParkAndPound           CompetitionType = "Park and Pound"
	TypeDuelingDemos           CompetitionType = "Dueling Demos"
	TypeCertifiedSound         CompetitionType = "Certified Sound"
	TypeCertifiedAtTheHeadrest CompetitionType = "Certified at the Headrest"
)

// ParseCompetitionType maps an administrator-entered label to a known type.
// Matching is by keyword so "Radical X (RadX)" and "radx" both resolve.
func ParseCompetitionType(label string) CompetitionType {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "radical x"), strings.Contains(l, "radx"):
		return TypeRadicalX
	case strings.Contains(l, "park and pound"):
		return TypeParkAndPound
	case strings.Contains(l, "dueling demos"):
		return TypeDuelingDemos
	case strings.Contains(l, "certified sound"):
		return TypeCertifiedSound
	case strings.Contains(l, "certified at the headrest"):
		return TypeCertifiedAtTheHeadrest
	default:
		return TypeUnknown
	}
}

// Operator is the comparison a tier applies to a score.
type Operator string

// OpGreaterOrEqual is the only operator the engine evaluates.
const OpGreaterOrEqual Operator = ">="

// MatchKind discriminates how a definition decides membership.
type MatchKind int

const (
	// MatchHeuristic matches by the competition type resolved from class and format.
	MatchHeuristic MatchKind = iota
	// MatchExact matches when the result class equals one entry of the filter.
	MatchExact
)

// Matcher is resolved once when a definition is loaded.
type Matcher struct {
	Kind    MatchKind
	Classes map[string]struct{} // folded class names, MatchExact only
	Type    CompetitionType     // MatchHeuristic only
}

// NewMatcher picks the exact variant when the class filter has at least one
// usable entry and falls back to the heuristic variant otherwise.
func NewMatcher(classFilter []string, competitionType string) Matcher {
	classes := make(map[string]struct{}, len(classFilter))
	for _, c := range classFilter {
		if k := FoldClass(c); k != "" {
			classes[k] = struct{}{}
		}
	}
	if len(classes) > 0 {
		return Matcher{Kind: MatchExact, Classes: classes}
	}
	return Matcher{Kind: MatchHeuristic, Type: ParseCompetitionType(competitionType)}
}

// FoldClass normalises a class name for comparison.
func FoldClass(class string) string {
	return strings.ToLower(strings.TrimSpace(class))
}

// Definition is one rung of a group's ladder.
type Definition struct {
	ID              string
	Name            string
	Description     string
	Group           string
	CompetitionType string
	Format          string
	Threshold       float64
	Operator        Operator
	TemplateKey     string
	RenderValue     *float64 // overrides the threshold on the award image when set
	DisplayOrder    int
	Match           Matcher
}

// GroupKey returns the group the definition belongs to. Definitions without a
// group name are grouped by their competition type.
func (d Definition) GroupKey() string {
	if g := strings.TrimSpace(d.Group); g != "" {
		return g
	}
	return strings.TrimSpace(d.CompetitionType)
}
