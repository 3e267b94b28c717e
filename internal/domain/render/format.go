package render

import (
	"math"
	"strconv"
	"strings"
)

// truncEpsilon absorbs binary representation error before truncating,
// so 152.3 does not become 152.2.
const truncEpsilon = 1e-9

// FormatThreshold renders a tier value for an award image: whole number, no decimal.
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(math.Trunc(v+math.Copysign(truncEpsilon, v)), 'f', 0, 64)
}

// FormatAchieved renders an achieved value for live display: truncated to one
// decimal place with a trailing ".0" removed.
func FormatAchieved(v float64) string {
	t := math.Trunc(v*10+math.Copysign(truncEpsilon, v)) / 10
	if t == 0 {
		t = 0 // drop negative zero
	}
	return strings.TrimSuffix(strconv.FormatFloat(t, 'f', 1, 64), ".0")
}

// roundHalfUp rounds x.5 away from zero for positive sizes, like Math.round.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
