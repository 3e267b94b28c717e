// Package threshold picks the tier a score qualifies for.
package threshold

import "sort"

// Select returns the highest threshold that score meets or exceeds. It rounds
// down to the nearest qualifying tier; a score below every tier, or an empty
// ladder, qualifies for nothing. The caller's slice is not reordered.
func Select(score float64, thresholds []float64) (float64, bool) {
	sorted := make([]float64, len(thresholds))
	copy(sorted, thresholds)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	for _, t := range sorted {
		if score >= t {
			return t, true
		}
	}
	return 0, false
}
