package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bobmcallan/rebal/internal/advisor"
	"github.com/bobmcallan/rebal/internal/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func riskStyle(level models.RiskLevel) lipgloss.Style {
	switch level {
	case models.RiskLow:
		return successStyle
	case models.RiskMedium:
		return warningStyle
	default:
		return errorStyle
	}
}

func priorityStyle(p models.Priority) lipgloss.Style {
	switch p {
	case models.PriorityHigh:
		return errorStyle
	case models.PriorityMedium:
		return warningStyle
	default:
		return labelStyle
	}
}

// renderSummary renders a compact terminal view of an analysis result.
func renderSummary(result *models.AnalysisResult) string {
	a := result.Analysis
	ko := result.Locale == "ko"

	scoreLabel, riskLabel, findingsLabel, recsLabel, noRecs := "Score", "Risk", "Findings", "Recommendations", "No rebalancing needed."
	if ko {
		scoreLabel, riskLabel, findingsLabel, recsLabel, noRecs = "분산 점수", "위험 수준", "진단", "리밸런싱 제안", "리밸런싱이 필요하지 않습니다."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %d/100", scoreLabel, a.DiversificationScore)))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(riskLabel + ":"))
	b.WriteString(" ")
	b.WriteString(riskStyle(a.RiskLevel).Render(strings.ToUpper(string(a.RiskLevel))))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render(findingsLabel))
	b.WriteString("\n")
	for _, f := range result.Findings {
		b.WriteString("  • " + f + "\n")
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render(recsLabel))
	b.WriteString("\n")
	if len(a.Recommendations) == 0 {
		b.WriteString("  " + noRecs + "\n")
	}
	for i, rec := range a.Recommendations {
		reason := ""
		if i < len(result.Reasons) {
			reason = result.Reasons[i]
		}
		b.WriteString(fmt.Sprintf("  %s %s %.1f%% → %.1f%%  %s\n",
			priorityStyle(rec.Priority).Render(fmt.Sprintf("[%s]", rec.Priority)),
			advisor.DisplaySymbol(rec.Symbol, result.Locale),
			rec.CurrentPercent, rec.TargetPercent,
			reason,
		))
	}

	if len(result.Stale) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("stale: " + strings.Join(result.Stale, ", ")))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
