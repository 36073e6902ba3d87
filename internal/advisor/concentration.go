package advisor

import "github.com/bobmcallan/rebal/internal/models"

const (
	positionConcentrationWeight = 0.3 // a position above this weight is flagged
	minDiversifiedHoldings      = 5   // fewer holdings than this is flagged
)

// DetectConcentrationRisks returns findings in detection order: per-holding
// weight checks in input order, then the holding-count check. The degenerate
// portfolio yields a single no_holdings finding.
func DetectConcentrationRisks(weighted []WeightedHolding) []models.Finding {
	if len(weighted) == 0 {
		return []models.Finding{{Code: models.FindingNoHoldings}}
	}

	findings := make([]models.Finding, 0)
	for _, wh := range weighted {
		if wh.Weight > positionConcentrationWeight {
			findings = append(findings, models.Finding{
				Code:    models.FindingPositionConcentration,
				Symbol:  wh.Symbol,
				Percent: wh.Weight * 100,
			})
		}
	}

	if len(weighted) < minDiversifiedHoldings {
		findings = append(findings, models.Finding{
			Code:         models.FindingInsufficientHoldings,
			HoldingCount: len(weighted),
		})
	}

	return findings
}
