package advisor

import (
	"gonum.org/v1/gonum/floats"

	"github.com/bobmcallan/rebal/internal/models"
)

// Risk classification thresholds.
const (
	highRiskMinHoldings = 3    // fewer holdings than this is high risk
	highRiskMaxWeight   = 0.5  // a single weight above this is high risk
	lowRiskMinHoldings  = 7    // at least this many holdings ...
	lowRiskMaxWeight    = 0.25 // ... and every weight below this is low risk
)

// MaxWeight returns the largest weight, or 0 when there are none.
func MaxWeight(weighted []WeightedHolding) float64 {
	if len(weighted) == 0 {
		return 0
	}
	return floats.Max(weightVector(weighted))
}

// ClassifyRisk maps holding count and maximum weight to a risk level.
// The high check runs first and wins over low.
func ClassifyRisk(weighted []WeightedHolding) models.RiskLevel {
	n := len(weighted)
	if n == 0 {
		return models.RiskHigh
	}

	maxWeight := MaxWeight(weighted)

	if n < highRiskMinHoldings || maxWeight > highRiskMaxWeight {
		return models.RiskHigh
	}
	if n >= lowRiskMinHoldings && maxWeight < lowRiskMaxWeight {
		return models.RiskLow
	}
	return models.RiskMedium
}
