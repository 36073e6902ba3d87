package advisor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// HHI returns the Herfindahl-Hirschman Index of the weights: the sum of squared weights.
// A single holding yields 1; an even N-way split yields 1/N.
func HHI(weighted []WeightedHolding) float64 {
	if len(weighted) == 0 {
		return 0
	}
	w := weightVector(weighted)
	return floats.Dot(w, w)
}

// DiversificationScore converts the weights into a 0-100 score, round((1 - HHI) * 100).
// The degenerate portfolio (no weights) scores 0.
func DiversificationScore(weighted []WeightedHolding) int {
	if len(weighted) == 0 {
		return 0
	}
	return scoreFromHHI(HHI(weighted))
}

func scoreFromHHI(hhi float64) int {
	score := int(math.Round((1 - hhi) * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
