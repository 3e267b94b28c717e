// Package classify maps competition results to achievement groups.
package classify

import (
	"sort"
	"strings"

	"github.com/okian/accolade/internal/domain/model"
)

// Group is a named ladder of tiers. Definitions are kept in descending
// threshold order.
type Group struct {
	Name        string
	Definitions []model.Definition
}

// Thresholds returns the group's tier cutoffs.
func (g Group) Thresholds() []float64 {
	out := make([]float64, len(g.Definitions))
	for i, d := range g.Definitions {
		out[i] = d.Threshold
	}
	return out
}

// DefinitionFor returns the tier whose threshold equals value.
func (g Group) DefinitionFor(value float64) (model.Definition, bool) {
	for _, d := range g.Definitions {
		if d.Threshold == value {
			return d, true
		}
	}
	return model.Definition{}, false
}

// BuildGroups buckets definitions by group key, keeping the order in which
// groups first appear. Definitions with an operator other than ">=" are
// returned separately and take no part in evaluation.
func BuildGroups(defs []model.Definition) (groups []Group, ignored []model.Definition) {
	index := make(map[string]int)
	for _, d := range defs {
		if d.Operator != model.OpGreaterOrEqual {
			ignored = append(ignored, d)
			continue
		}
		key := d.GroupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Name: key})
		}
		groups[i].Definitions = append(groups[i].Definitions, d)
	}
	for i := range groups {
		sort.SliceStable(groups[i].Definitions, func(a, b int) bool {
			return groups[i].Definitions[a].Threshold > groups[i].Definitions[b].Threshold
		})
	}
	return groups, ignored
}

// Classifier resolves the single group a result belongs to.
type Classifier struct {
	groups []Group
	index  map[string]int
}

// New creates a classifier over an ordered group list. Order is load-bearing:
// the first matching group wins.
func New(groups []Group) *Classifier {
	idx := make(map[string]int, len(groups))
	for i, g := range groups {
		idx[g.Name] = i
	}
	return &Classifier{groups: groups, index: idx}
}

// Groups returns the ordered group list.
func (c *Classifier) Groups() []Group {
	return c.groups
}

// Group looks up a group by name.
func (c *Classifier) Group(name string) (Group, bool) {
	i, ok := c.index[name]
	if !ok {
		return Group{}, false
	}
	return c.groups[i], true
}

// Order returns the position of a group in evaluation order, or -1.
func (c *Classifier) Order(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Classify returns the first group with a definition matching the result.
func (c *Classifier) Classify(r model.CompetitionResult) (string, bool) {
	resolved := Resolve(r.Class, r.Format)
	folded := model.FoldClass(r.Class)
	for _, g := range c.groups {
		for _, d := range g.Definitions {
			if matches(d.Match, folded, resolved) {
				return g.Name, true
			}
		}
	}
	return "", false
}

func matches(m model.Matcher, foldedClass string, resolved model.CompetitionType) bool {
	switch m.Kind {
	case model.MatchExact:
		_, ok := m.Classes[foldedClass]
		return ok
	case model.MatchHeuristic:
		return m.Type != model.TypeUnknown && m.Type == resolved
	default:
		return false
	}
}

// Resolve applies the keyword heuristics in fixed priority order and returns
// the competition type a class/format pair falls under. Kids classes that
// miss every specific rule resolve to no type.
func Resolve(class, format string) model.CompetitionType {
	c := model.FoldClass(class)
	f := strings.ToLower(strings.TrimSpace(format))
	switch {
	case strings.Contains(c, "radical") || strings.HasPrefix(c, "x "):
		return model.TypeRadicalX
	case strings.Contains(c, "park") && strings.Contains(c, "pound"):
		return model.TypeParkAndPound
	case strings.Contains(c, "duel") || strings.Contains(c, "demo"):
		return model.TypeDuelingDemos
	case strings.Contains(c, "install") || f == "sql":
		return model.TypeCertifiedSound
	case strings.Contains(c, "kids"):
		return model.TypeUnknown
	default:
		return model.TypeCertifiedAtTheHeadrest
	}
}
