// Package aggregate reduces competition results to the best score per
// competitor and group.
package aggregate

import (
	"sort"

	"github.com/okian/accolade/internal/domain/model"
)

// Classifier resolves the group a result belongs to.
type Classifier interface {
	Classify(r model.CompetitionResult) (string, bool)
	Order(group string) int
}

// Best is the highest-scoring result seen for one competitor in one group.
type Best struct {
	Score  float64
	Result model.CompetitionResult
}

// Candidate is one (competitor, group) unit of award work.
type Candidate struct {
	CompetitorID string
	Group        string
	Best
}

// Stats summarises an aggregation pass.
type Stats struct {
	Seen       int // results offered
	Eligible   int // results with competitor and score
	Classified int // eligible results that landed in a group
}

// Aggregation is the read-only outcome of Aggregate.
type Aggregation struct {
	best       map[string]map[string]Best
	candidates []Candidate
	perGroup   map[string]int
	stats      Stats
}

// Aggregate classifies every scored result and keeps, per (competitor, group),
// the result with the strictly greatest score. Equal scores keep the earlier one.
func Aggregate(results []model.CompetitionResult, c Classifier) *Aggregation {
	a := &Aggregation{best: make(map[string]map[string]Best), perGroup: make(map[string]int)}
	for _, r := range results {
		a.stats.Seen++
		if !r.Scored() {
			continue
		}
		a.stats.Eligible++
		group, ok := c.Classify(r)
		if !ok {
			continue
		}
		a.stats.Classified++
		a.perGroup[group]++

		score := *r.Score
		groups, ok := a.best[r.CompetitorID]
		if !ok {
			groups = make(map[string]Best)
			a.best[r.CompetitorID] = groups
		}
		if existing, ok := groups[group]; ok && score <= existing.Score {
			continue
		}
		groups[group] = Best{Score: score, Result: r}
	}

	for competitor, groups := range a.best {
		for group, b := range groups {
			a.candidates = append(a.candidates, Candidate{CompetitorID: competitor, Group: group, Best: b})
		}
	}
	sort.Slice(a.candidates, func(i, j int) bool {
		ci, cj := a.candidates[i], a.candidates[j]
		if ci.CompetitorID != cj.CompetitorID {
			return ci.CompetitorID < cj.CompetitorID
		}
		return c.Order(ci.Group) < c.Order(cj.Group)
	})
	return a
}

// Best returns the stored best for a competitor and group.
func (a *Aggregation) Best(competitorID, group string) (Best, bool) {
	b, ok := a.best[competitorID][group]
	return b, ok
}

// Candidates returns the units of work ordered by competitor then group order.
// The returned slice is a copy.
func (a *Aggregation) Candidates() []Candidate {
	out := make([]Candidate, len(a.candidates))
	copy(out, a.candidates)
	return out
}

// Competitors returns the number of competitors with at least one classified result.
func (a *Aggregation) Competitors() int {
	return len(a.best)
}

// Stats returns counters collected while aggregating.
func (a *Aggregation) Stats() Stats {
	return a.stats
}

// ClassifiedByGroup returns how many eligible results landed in each group.
func (a *Aggregation) ClassifiedByGroup() map[string]int {
	out := make(map[string]int, len(a.perGroup))
	for g, n := range a.perGroup {
		out[g] = n
	}
	return out
}
