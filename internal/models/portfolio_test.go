package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestHoldingPrice(t *testing.T) {
	h := Holding{Symbol: "A", Quantity: 3, AvgBuyPrice: d("100")}
	if got := h.Price(); !got.Equal(d("100")) {
		t.Errorf("Price without current = %s, want 100", got)
	}
	if h.HasCurrentPrice() {
		t.Error("HasCurrentPrice should be false")
	}

	h.CurrentPrice = decimal.NewNullDecimal(d("120"))
	if got := h.Price(); !got.Equal(d("120")) {
		t.Errorf("Price with current = %s, want 120", got)
	}
	if got := h.MarketValue(); !got.Equal(d("360")) {
		t.Errorf("MarketValue = %s, want 360", got)
	}
}

func TestHoldingMarketValue_NeverNegative(t *testing.T) {
	tests := []struct {
		name string
		h    Holding
	}{
		{"negative quantity", Holding{Quantity: -5, AvgBuyPrice: d("10")}},
		{"negative price", Holding{Quantity: 5, AvgBuyPrice: d("-10")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.h.MarketValue(); !got.IsZero() {
				t.Errorf("MarketValue = %s, want 0", got)
			}
		})
	}
}

func TestHoldingPLPercent(t *testing.T) {
	h := Holding{Symbol: "A"}
	if got := h.PLPercent(); got != 0 {
		t.Errorf("PLPercent absent = %v, want 0", got)
	}
	h.ProfitLossPercent = decimal.NewNullDecimal(d("-22.5"))
	if got := h.PLPercent(); got != -22.5 {
		t.Errorf("PLPercent = %v, want -22.5", got)
	}
}

func TestWithPrices(t *testing.T) {
	holdings := []Holding{
		{Symbol: "A", Quantity: 10, AvgBuyPrice: d("100")},
		{Symbol: "B", Quantity: 5, AvgBuyPrice: d("50"), CurrentPrice: decimal.NewNullDecimal(d("55"))},
	}
	updates := []PriceUpdate{
		{Symbol: "A", Price: d("130")},
		{Symbol: "B", Price: d("0")},
		{Symbol: "Z", Price: d("1")},
	}

	out := WithPrices(holdings, updates)

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if !out[0].Price().Equal(d("130")) {
		t.Errorf("A price = %s, want 130", out[0].Price())
	}
	if got := out[0].PLPercent(); got != 30 {
		t.Errorf("A PLPercent = %v, want 30", got)
	}
	if !out[0].ProfitLoss.Decimal.Equal(d("300")) {
		t.Errorf("A ProfitLoss = %s, want 300", out[0].ProfitLoss.Decimal)
	}
	if !out[1].Price().Equal(d("55")) {
		t.Errorf("B price = %s, non-positive update must be ignored", out[1].Price())
	}
	if holdings[0].HasCurrentPrice() {
		t.Error("input slice was modified")
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityHigh.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Error("priority ranks out of order")
	}
	if Priority("other").Rank() <= PriorityLow.Rank() {
		t.Error("unknown priority should sort last")
	}
}

func TestRecommendationWeights(t *testing.T) {
	r := Recommendation{CurrentPercent: 40, TargetPercent: 20}
	if r.CurrentWeight() != 0.4 || r.TargetWeight() != 0.2 {
		t.Errorf("weights = %v/%v, want 0.4/0.2", r.CurrentWeight(), r.TargetWeight())
	}
}
