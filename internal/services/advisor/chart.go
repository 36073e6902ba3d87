package advisor

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	engine "github.com/bobmcallan/rebal/internal/advisor"
	"github.com/bobmcallan/rebal/internal/models"
)

var (
	colorCurrent  = drawing.ColorFromHex("2563eb") // blue-600
	colorDecrease = drawing.ColorFromHex("dc2626") // red-600
	colorTarget   = drawing.ColorFromHex("9ca3af") // gray-400
	colorIncrease = drawing.ColorFromHex("16a34a") // green-600
)

// RenderWeightChart renders a PNG bar chart of each holding's current weight,
// followed by the target weight for holdings with a recommendation.
// Returns raw PNG bytes.
func RenderWeightChart(title string, holdings []models.Holding, a *models.PortfolioAnalysis, locale string) ([]byte, error) {
	weighted, _, ok := engine.CalculateWeights(holdings)
	if !ok {
		return nil, fmt.Errorf("no holdings with value to chart")
	}

	targets := make(map[string]models.Recommendation, len(a.Recommendations))
	for _, r := range a.Recommendations {
		targets[r.Symbol] = r
	}

	bars := make([]chart.Value, 0, len(weighted)*2+1)
	for _, wh := range weighted {
		style := chart.Style{FillColor: colorCurrent, StrokeColor: colorCurrent}
		rec, hasRec := targets[wh.Symbol]
		if hasRec && rec.Action == models.ActionDecrease {
			style = chart.Style{FillColor: colorDecrease, StrokeColor: colorDecrease}
		}
		bars = append(bars, chart.Value{Label: wh.Symbol, Value: wh.Weight * 100, Style: style})

		if hasRec {
			bars = append(bars, chart.Value{
				Label: wh.Symbol + " →",
				Value: rec.TargetPercent,
				Style: chart.Style{FillColor: colorTarget, StrokeColor: colorTarget},
			})
		}
	}

	if rec, ok := targets[models.NewPositionSymbol]; ok {
		bars = append(bars, chart.Value{
			Label: engine.DisplaySymbol(rec.Symbol, locale),
			Value: rec.TargetPercent,
			Style: chart.Style{FillColor: colorIncrease, StrokeColor: colorIncrease},
		})
	}

	if title == "" {
		title = "Portfolio Weights"
	}

	// Widen the canvas for large portfolios rather than squeezing bars.
	barWidth, width := 40, 900
	if need := len(bars)*(barWidth+10) + 100; need > width {
		barWidth = 24
		width = len(bars)*(barWidth+10) + 100
	}

	graph := chart.BarChart{
		Title:  fmt.Sprintf("%s (score %d, risk %s)", title, a.DiversificationScore, a.RiskLevel),
		Width:  width,
		Height: 420,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth: barWidth,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
