package advisor

import (
	"sort"

	"github.com/bobmcallan/rebal/internal/models"
)

// Rebalancing rule thresholds. Weights are fractions, targets and P/L are percentage points.
const (
	overConcentrationWeight     = 0.30
	moderateConcentrationWeight = 0.25
	concentrationTargetPercent  = 20.0

	profitTakingPercent   = 30.0
	profitTakingRetention = 0.7 // keep 70% of the position, realize 30%

	lossCuttingPercent = -15.0

	underDiversifiedTargetPercent = 15.0
)

// rule inspects one weighted holding and returns a recommendation when it applies.
type rule func(wh WeightedHolding) (models.Recommendation, bool)

// concentrationRules are evaluated in order; the first match for a symbol wins.
// Loss cutting is evaluated separately and is never suppressed by them.
var concentrationRules = []rule{
	overConcentrationRule,
	moderateConcentrationRule,
	profitTakingRule,
}

func overConcentrationRule(wh WeightedHolding) (models.Recommendation, bool) {
	if wh.Weight <= overConcentrationWeight {
		return models.Recommendation{}, false
	}
	return models.Recommendation{
		Symbol:         wh.Symbol,
		CurrentPercent: wh.Weight * 100,
		TargetPercent:  concentrationTargetPercent,
		Action:         models.ActionDecrease,
		Reason:         models.ReasonOverConcentration,
		Priority:       models.PriorityHigh,
	}, true
}

func moderateConcentrationRule(wh WeightedHolding) (models.Recommendation, bool) {
	if wh.Weight <= moderateConcentrationWeight || wh.Weight > overConcentrationWeight {
		return models.Recommendation{}, false
	}
	return models.Recommendation{
		Symbol:         wh.Symbol,
		CurrentPercent: wh.Weight * 100,
		TargetPercent:  concentrationTargetPercent,
		Action:         models.ActionDecrease,
		Reason:         models.ReasonModerateConcentration,
		Priority:       models.PriorityMedium,
	}, true
}

func profitTakingRule(wh WeightedHolding) (models.Recommendation, bool) {
	pl := wh.PLPercent()
	if pl <= profitTakingPercent {
		return models.Recommendation{}, false
	}
	current := wh.Weight * 100
	return models.Recommendation{
		Symbol:            wh.Symbol,
		CurrentPercent:    current,
		TargetPercent:     current * profitTakingRetention,
		Action:            models.ActionDecrease,
		Reason:            models.ReasonProfitTaking,
		ProfitLossPercent: pl,
		Priority:          models.PriorityMedium,
	}, true
}

func lossCuttingRule(wh WeightedHolding) (models.Recommendation, bool) {
	pl := wh.PLPercent()
	if pl >= lossCuttingPercent {
		return models.Recommendation{}, false
	}
	return models.Recommendation{
		Symbol:            wh.Symbol,
		CurrentPercent:    wh.Weight * 100,
		TargetPercent:     0,
		Action:            models.ActionDecrease,
		Reason:            models.ReasonLossCutting,
		ProfitLossPercent: pl,
		Priority:          models.PriorityHigh,
	}, true
}

// GenerateRecommendations applies the rule set to each holding in input order.
// A symbol gets at most one recommendation from the concentration and
// profit-taking rules, plus at most one loss-cutting recommendation, which
// follows it in detection order. The portfolio-level under-diversification
// suggestion is appended last and the result is stable-sorted by priority.
// The degenerate portfolio yields an empty list.
func GenerateRecommendations(weighted []WeightedHolding) []models.Recommendation {
	recs := make([]models.Recommendation, 0)
	if len(weighted) == 0 {
		return recs
	}

	concentrated := make(map[string]bool, len(weighted))
	lossCut := make(map[string]bool)

	for _, wh := range weighted {
		// Zero-value positions have nothing to rebalance.
		if wh.Weight == 0 {
			continue
		}
		if !concentrated[wh.Symbol] {
			for _, r := range concentrationRules {
				if rec, ok := r(wh); ok {
					concentrated[wh.Symbol] = true
					recs = append(recs, rec)
					break
				}
			}
		}
		if !lossCut[wh.Symbol] {
			if rec, ok := lossCuttingRule(wh); ok {
				lossCut[wh.Symbol] = true
				recs = append(recs, rec)
			}
		}
	}

	if n := len(weighted); n > 0 && n < minDiversifiedHoldings {
		recs = append(recs, models.Recommendation{
			Symbol:         models.NewPositionSymbol,
			CurrentPercent: 0,
			TargetPercent:  underDiversifiedTargetPercent,
			Action:         models.ActionIncrease,
			Reason:         models.ReasonUnderDiversified,
			Priority:       models.PriorityMedium,
		})
	}

	SortByPriority(recs)
	return recs
}

// SortByPriority stable-sorts recommendations high, medium, low, preserving
// detection order within a priority.
func SortByPriority(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
}
