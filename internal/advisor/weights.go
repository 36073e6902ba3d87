// Package advisor implements the portfolio diversification and rebalancing
// advisory engine. Every function in this package is pure: no I/O, no logging,
// no configuration. Identical input always yields identical output.
package advisor

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/rebal/internal/models"
)

// WeightedHolding is a holding together with its share of total portfolio value.
type WeightedHolding struct {
	models.Holding
	MarketValue decimal.Decimal
	Weight      float64 // in [0, 1]
}

// CalculateWeights returns one WeightedHolding per input holding, in input order,
// and the total market value. ok is false for the degenerate case: no holdings,
// or a total value of zero.
func CalculateWeights(holdings []models.Holding) (weighted []WeightedHolding, total decimal.Decimal, ok bool) {
	if len(holdings) == 0 {
		return nil, decimal.Zero, false
	}

	values := make([]decimal.Decimal, len(holdings))
	total = decimal.Zero
	for i, h := range holdings {
		values[i] = h.MarketValue()
		total = total.Add(values[i])
	}

	if !total.IsPositive() {
		return nil, decimal.Zero, false
	}

	weighted = make([]WeightedHolding, len(holdings))
	for i, h := range holdings {
		w := values[i].Div(total).InexactFloat64()
		if w < 0 {
			w = 0
		} else if w > 1 {
			w = 1
		}
		weighted[i] = WeightedHolding{
			Holding:     h,
			MarketValue: values[i],
			Weight:      w,
		}
	}

	return weighted, total, true
}

// weightVector extracts the weights in input order.
func weightVector(weighted []WeightedHolding) []float64 {
	w := make([]float64, len(weighted))
	for i, wh := range weighted {
		w[i] = wh.Weight
	}
	return w
}
