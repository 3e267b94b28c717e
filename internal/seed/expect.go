package seed

import (
	"sort"

	"github.com/okian/accolade/internal/domain/aggregate"
	"github.com/okian/accolade/internal/domain/classify"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/internal/domain/threshold"
)

// Expectation is the tier a competitor should hold in a group once a batch
// has run over the fixture on an empty store.
type Expectation struct {
	CompetitorID string
	Group        string
	Threshold    float64
	AchievedAt   float64 // best score that earned it
}

// Expect evaluates f with the same domain rules the batch uses.
func Expect(f Fixture) []Expectation {
	var defs []model.Definition
	for _, d := range f.Definitions {
		if !d.Inactive {
			defs = append(defs, d.toDomain())
		}
	}
	// The store hands definitions over ordered by group then threshold.
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].GroupKey() != defs[j].GroupKey() {
			return defs[i].GroupKey() < defs[j].GroupKey()
		}
		return defs[i].Threshold > defs[j].Threshold
	})
	groups, _ := classify.BuildGroups(defs)
	c := classify.New(groups)

	results := make([]model.CompetitionResult, len(f.Results))
	for i, r := range f.Results {
		results[i] = r.toDomain()
	}

	var out []Expectation
	for _, cand := range aggregate.Aggregate(results, c).Candidates() {
		g, ok := c.Group(cand.Group)
		if !ok {
			continue
		}
		tier, ok := threshold.Select(cand.Score, g.Thresholds())
		if !ok {
			continue
		}
		out = append(out, Expectation{
			CompetitorID: cand.CompetitorID,
			Group:        cand.Group,
			Threshold:    tier,
			AchievedAt:   cand.Score,
		})
	}
	return out
}
