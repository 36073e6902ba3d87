// Package models defines data structures for rebal
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents one portfolio position as supplied by the holdings backend.
type Holding struct {
	Symbol            string              `json:"symbol"`
	Quantity          int64               `json:"quantity"`
	AvgBuyPrice       decimal.Decimal     `json:"avg_buy_price"`
	CurrentPrice      decimal.NullDecimal `json:"current_price"`       // optional, falls back to AvgBuyPrice
	ProfitLoss        decimal.NullDecimal `json:"profit_loss"`         // optional, absolute currency
	ProfitLossPercent decimal.NullDecimal `json:"profit_loss_percent"` // optional, percentage points
}

// Price returns the valuation price: CurrentPrice when present, otherwise AvgBuyPrice.
func (h Holding) Price() decimal.Decimal {
	if h.CurrentPrice.Valid {
		return h.CurrentPrice.Decimal
	}
	return h.AvgBuyPrice
}

// MarketValue returns Quantity × Price, never negative.
func (h Holding) MarketValue() decimal.Decimal {
	v := decimal.NewFromInt(h.Quantity).Mul(h.Price())
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// PLPercent returns ProfitLossPercent as a float, 0 when absent.
func (h Holding) PLPercent() float64 {
	if !h.ProfitLossPercent.Valid {
		return 0
	}
	return h.ProfitLossPercent.Decimal.InexactFloat64()
}

// HasCurrentPrice reports whether the backend supplied a live price.
func (h Holding) HasCurrentPrice() bool {
	return h.CurrentPrice.Valid
}

// Portfolio is a named set of holdings fetched from the backend.
type Portfolio struct {
	Name      string    `json:"name"`
	Currency  string    `json:"currency,omitempty"`
	Holdings  []Holding `json:"holdings"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PriceUpdate is a live price tick delivered by the backend price stream.
type PriceUpdate struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// WithPrices returns a copy of holdings with matching symbols repriced.
// Updates for unknown symbols are ignored; the input slice is not modified.
func WithPrices(holdings []Holding, updates []PriceUpdate) []Holding {
	latest := make(map[string]decimal.Decimal, len(updates))
	for _, u := range updates {
		if u.Price.IsPositive() {
			latest[u.Symbol] = u.Price
		}
	}

	out := make([]Holding, len(holdings))
	for i, h := range holdings {
		if p, ok := latest[h.Symbol]; ok {
			h.CurrentPrice = decimal.NewNullDecimal(p)
			if h.AvgBuyPrice.IsPositive() {
				pct := p.Sub(h.AvgBuyPrice).Div(h.AvgBuyPrice).Mul(decimal.NewFromInt(100))
				h.ProfitLossPercent = decimal.NewNullDecimal(pct)
				h.ProfitLoss = decimal.NewNullDecimal(p.Sub(h.AvgBuyPrice).Mul(decimal.NewFromInt(h.Quantity)))
			}
		}
		out[i] = h
	}
	return out
}
