package advisor

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/rebal/internal/models"
)

// Analyze runs the full advisory pipeline over holdings. It never fails: an
// empty or zero-value portfolio yields score 0, risk high, a single no_holdings
// finding and no recommendations.
func Analyze(holdings []models.Holding) *models.PortfolioAnalysis {
	weighted, total, ok := CalculateWeights(holdings)
	if !ok {
		return emptyAnalysis()
	}

	hhi := HHI(weighted)

	return &models.PortfolioAnalysis{
		DiversificationScore: scoreFromHHI(hhi),
		RiskLevel:            ClassifyRisk(weighted),
		ConcentrationRisks:   DetectConcentrationRisks(weighted),
		Recommendations:      GenerateRecommendations(weighted),
		HoldingCount:         len(weighted),
		TotalValue:           total,
		HHI:                  hhi,
		MaxWeight:            MaxWeight(weighted),
	}
}

func emptyAnalysis() *models.PortfolioAnalysis {
	return &models.PortfolioAnalysis{
		DiversificationScore: 0,
		RiskLevel:            models.RiskHigh,
		ConcentrationRisks:   DetectConcentrationRisks(nil),
		Recommendations:      GenerateRecommendations(nil),
		TotalValue:           decimal.Zero,
	}
}
