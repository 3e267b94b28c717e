package seed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Report is the outcome of Verify.
type Report struct {
	Competitors int
	Expected    int
	Matched     int
	Problems    []string
}

// OK reports whether every expectation was met.
func (r Report) OK() bool { return len(r.Problems) == 0 }

// Verify fetches each expected competitor's awards concurrently and checks
// that every expected group is held at or above the expected tier. Awards are
// never downgraded, so a store that already held better tiers still passes.
func Verify(ctx context.Context, c *Client, expected []Expectation, workers int) (Report, error) {
	byCompetitor := make(map[string][]Expectation)
	for _, e := range expected {
		byCompetitor[e.CompetitorID] = append(byCompetitor[e.CompetitorID], e)
	}
	competitors := make([]string, 0, len(byCompetitor))
	for id := range byCompetitor {
		competitors = append(competitors, id)
	}
	sort.Strings(competitors)

	report := Report{Competitors: len(competitors), Expected: len(expected)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, id := range competitors {
		g.Go(func() error {
			awards, err := c.Achievements(gctx, id)
			if err != nil {
				return fmt.Errorf("competitor %s: %w", id, err)
			}
			held := make(map[string]Award, len(awards))
			for _, a := range awards {
				held[a.Group] = a
			}

			mu.Lock()
			defer mu.Unlock()
			for _, e := range byCompetitor[id] {
				a, ok := held[e.Group]
				switch {
				case !ok:
					report.Problems = append(report.Problems,
						fmt.Sprintf("%s/%s: no award, expected %g", id, e.Group, e.Threshold))
				case a.Threshold < e.Threshold:
					report.Problems = append(report.Problems,
						fmt.Sprintf("%s/%s: holds %g, expected %g", id, e.Group, a.Threshold, e.Threshold))
				case a.ImageURL == "":
					report.Problems = append(report.Problems,
						fmt.Sprintf("%s/%s: award has no image", id, e.Group))
				default:
					report.Matched++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	sort.Strings(report.Problems)
	if !report.OK() {
		return report, fmt.Errorf("%w: %d of %d awards", ErrMismatch, len(report.Problems), report.Expected)
	}
	return report, nil
}
