package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/rebal/internal/advisor"
	"github.com/bobmcallan/rebal/internal/models"
)

// labels holds the fixed report text for one locale
type labels struct {
	title           string
	untitled        string
	date            string
	totalValue      string
	holdings        string
	score           string
	risk            string
	findings        string
	recommendations string
	noActions       string
	stale           string
	summary         string
	tableHeader     string
	risks           map[models.RiskLevel]string
	actions         map[models.Action]string
	priorities      map[models.Priority]string
}

var reportLabels = map[string]labels{
	advisor.LocaleEnglish: {
		title:           "Diversification Report",
		untitled:        "Ad-hoc holdings",
		date:            "Date",
		totalValue:      "Total Value",
		holdings:        "Holdings",
		score:           "Diversification Score",
		risk:            "Risk Level",
		findings:        "Concentration Risks",
		recommendations: "Rebalancing Recommendations",
		noActions:       "No rebalancing needed.",
		stale:           "Valued at average buy price (no live quote)",
		summary:         "Summary",
		tableHeader:     "| Priority | Symbol | Action | Current | Target | Reason |",
		risks:           map[models.RiskLevel]string{models.RiskLow: "Low", models.RiskMedium: "Medium", models.RiskHigh: "High"},
		actions:         map[models.Action]string{models.ActionIncrease: "Increase", models.ActionDecrease: "Decrease", models.ActionHold: "Hold"},
		priorities:      map[models.Priority]string{models.PriorityHigh: "HIGH", models.PriorityMedium: "MEDIUM", models.PriorityLow: "LOW"},
	},
	advisor.LocaleKorean: {
		title:           "분산 투자 리포트",
		untitled:        "임시 보유 종목",
		date:            "일시",
		totalValue:      "총 평가액",
		holdings:        "보유 종목 수",
		score:           "분산 점수",
		risk:            "위험 수준",
		findings:        "집중 위험",
		recommendations: "리밸런싱 추천",
		noActions:       "리밸런싱이 필요하지 않습니다.",
		stale:           "현재가 없음 (평균 매입가로 평가)",
		summary:         "요약",
		tableHeader:     "| 우선순위 | 종목 | 조치 | 현재 | 목표 | 사유 |",
		risks:           map[models.RiskLevel]string{models.RiskLow: "낮음", models.RiskMedium: "보통", models.RiskHigh: "높음"},
		actions:         map[models.Action]string{models.ActionIncrease: "비중 확대", models.ActionDecrease: "비중 축소", models.ActionHold: "유지"},
		priorities:      map[models.Priority]string{models.PriorityHigh: "높음", models.PriorityMedium: "보통", models.PriorityLow: "낮음"},
	},
}

func labelsFor(locale string) labels {
	return reportLabels[advisor.NormalizeLocale(locale)]
}

func lookup[K comparable](m map[K]string, k K) string {
	if v, ok := m[k]; ok {
		return v
	}
	return fmt.Sprint(k)
}

// formatMoney renders an amount in the currency's minor units with its symbol.
// Unknown currency codes fall back to a plain two-decimal number with the code.
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// formatAnalysisMarkdown renders an analysis result as a markdown report
func formatAnalysisMarkdown(result *models.AnalysisResult, currency, summary string) string {
	var sb strings.Builder
	a := result.Analysis
	l := labelsFor(result.Locale)

	name := result.Portfolio
	if name == "" {
		name = l.untitled
	}

	// Header
	sb.WriteString(fmt.Sprintf("# %s: %s\n\n", l.title, name))
	if !result.AnalyzedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("**%s:** %s\n", l.date, result.AnalyzedAt.Format("2006-01-02 15:04")))
	}
	sb.WriteString(fmt.Sprintf("**%s:** %s\n", l.totalValue, formatMoney(a.TotalValue, currency)))
	sb.WriteString(fmt.Sprintf("**%s:** %d\n", l.holdings, a.HoldingCount))
	sb.WriteString(fmt.Sprintf("**%s:** %d/100\n", l.score, a.DiversificationScore))
	sb.WriteString(fmt.Sprintf("**%s:** %s\n\n", l.risk, lookup(l.risks, a.RiskLevel)))

	if summary != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", l.summary))
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}

	// Findings
	if len(result.Findings) > 0 {
		sb.WriteString(fmt.Sprintf("## %s\n\n", l.findings))
		for _, f := range result.Findings {
			sb.WriteString(fmt.Sprintf("- %s\n", f))
		}
		sb.WriteString("\n")
	}

	// Recommendations
	sb.WriteString(fmt.Sprintf("## %s\n\n", l.recommendations))
	if len(a.Recommendations) == 0 {
		sb.WriteString(l.noActions + "\n\n")
	} else {
		sb.WriteString(l.tableHeader + "\n")
		sb.WriteString("|----------|--------|--------|---------|--------|--------|\n")
		for i, r := range a.Recommendations {
			reason := ""
			if i < len(result.Reasons) {
				reason = result.Reasons[i]
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.1f%% | %.1f%% | %s |\n",
				lookup(l.priorities, r.Priority),
				advisor.DisplaySymbol(r.Symbol, result.Locale),
				lookup(l.actions, r.Action),
				r.CurrentPercent, r.TargetPercent,
				escapeCell(reason),
			))
		}
		sb.WriteString("\n")
	}

	if len(result.Stale) > 0 {
		sb.WriteString(fmt.Sprintf("*%s: %s*\n", l.stale, strings.Join(result.Stale, ", ")))
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
