package aggregate_test

import (
	"testing"

	"github.com/okian/accolade/internal/domain/aggregate"
	"github.com/okian/accolade/internal/domain/classify"
	"github.com/okian/accolade/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(id, competitor, class string, score float64) model.CompetitionResult {
	return model.CompetitionResult{ID: id, CompetitorID: competitor, Class: class, Format: "SPL", Score: &score}
}

func newClassifier() *classify.Classifier {
	groups, _ := classify.BuildGroups([]model.Definition{
		{ID: "h", Group: "Headrest", CompetitionType: "Certified at the Headrest", Threshold: 125,
			Operator: model.OpGreaterOrEqual, Match: model.NewMatcher(nil, "Certified at the Headrest")},
		{ID: "r", Group: "Radical", CompetitionType: "Radical X", Threshold: 125,
			Operator: model.OpGreaterOrEqual, Match: model.NewMatcher(nil, "Radical X")},
	})
	return classify.New(groups)
}

func TestAggregate(t *testing.T) {
	Convey("Given results for several competitors", t, func() {
		c := newClassifier()

		Convey("When a competitor has many results in one group", func() {
			var results []model.CompetitionResult
			for i, s := range []float64{130, 151.2, 149, 167.2, 140, 160, 167.1, 125, 128, 133} {
				results = append(results, scored(string(rune('a'+i)), "c1", "Modified 3", s))
			}
			agg := aggregate.Aggregate(results, c)

			Convey("Then only the maximum survives", func() {
				cands := agg.Candidates()
				So(len(cands), ShouldEqual, 1)
				So(cands[0].Score, ShouldEqual, 167.2)
				So(cands[0].Result.ID, ShouldEqual, "d")
			})
		})

		Convey("When two results tie", func() {
			agg := aggregate.Aggregate([]model.CompetitionResult{
				scored("first", "c1", "Modified 3", 150),
				scored("second", "c1", "Modified 3", 150),
			}, c)

			Convey("Then the earlier one is kept", func() {
				b, ok := agg.Best("c1", "Headrest")
				So(ok, ShouldBeTrue)
				So(b.Result.ID, ShouldEqual, "first")
			})
		})

		Convey("When results are unscored, anonymous or unclassifiable", func() {
			guest := scored("g", "", "Modified 3", 170)
			unscored := model.CompetitionResult{ID: "u", CompetitorID: "c1", Class: "Modified 3"}
			kids := scored("k", "c1", "Kids 1", 170)
			agg := aggregate.Aggregate([]model.CompetitionResult{guest, unscored, kids}, c)

			Convey("Then nothing is kept and the counters say why", func() {
				So(len(agg.Candidates()), ShouldEqual, 0)
				So(agg.Stats(), ShouldResemble, aggregate.Stats{Seen: 3, Eligible: 1, Classified: 0})
			})
		})

		Convey("When competitors span groups", func() {
			agg := aggregate.Aggregate([]model.CompetitionResult{
				scored("1", "c2", "Radical 1", 140),
				scored("2", "c1", "Radical 1", 135),
				scored("3", "c2", "Street", 150),
				scored("4", "c1", "Street", 145),
			}, c)

			Convey("Then candidates are ordered by competitor then group order", func() {
				cands := agg.Candidates()
				So(len(cands), ShouldEqual, 4)
				So(cands[0].CompetitorID, ShouldEqual, "c1")
				So(cands[0].Group, ShouldEqual, "Headrest")
				So(cands[1].Group, ShouldEqual, "Radical")
				So(cands[2].CompetitorID, ShouldEqual, "c2")
				So(agg.Competitors(), ShouldEqual, 2)
				So(agg.ClassifiedByGroup(), ShouldResemble, map[string]int{"Headrest": 2, "Radical": 2})
			})
		})
	})
}
