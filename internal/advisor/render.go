package advisor

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/rebal/internal/models"
)

// Supported display locales.
const (
	LocaleKorean  = "ko"
	LocaleEnglish = "en"
)

// DefaultLocale is used when no locale, or an unknown one, is requested.
const DefaultLocale = LocaleKorean

// NormalizeLocale maps a requested locale ("en-US", "KO", "") to a supported one.
func NormalizeLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	switch l {
	case LocaleKorean, LocaleEnglish:
		return l
	default:
		return DefaultLocale
	}
}

// DisplaySymbol returns the symbol as shown to users; the new-position placeholder is localized.
func DisplaySymbol(symbol, locale string) string {
	if symbol == models.NewPositionSymbol && NormalizeLocale(locale) == LocaleEnglish {
		return "New position"
	}
	return symbol
}

// RenderFinding renders a concentration-risk finding as display text.
func RenderFinding(f models.Finding, locale string) string {
	en := NormalizeLocale(locale) == LocaleEnglish

	switch f.Code {
	case models.FindingNoHoldings:
		if en {
			return "No holdings to analyze"
		}
		return "보유 종목이 없습니다"
	case models.FindingPositionConcentration:
		if en {
			return fmt.Sprintf("%s makes up %.1f%% of the portfolio", f.Symbol, f.Percent)
		}
		return fmt.Sprintf("%s 종목이 포트폴리오의 %.1f%%를 차지합니다", f.Symbol, f.Percent)
	case models.FindingInsufficientHoldings:
		if en {
			return fmt.Sprintf("Only %d holdings: diversification is insufficient", f.HoldingCount)
		}
		return fmt.Sprintf("보유 종목이 %d개로 분산 투자가 부족합니다", f.HoldingCount)
	default:
		return string(f.Code)
	}
}

// RenderReason renders the reason of a recommendation as display text.
func RenderReason(r models.Recommendation, locale string) string {
	en := NormalizeLocale(locale) == LocaleEnglish

	switch r.Reason {
	case models.ReasonOverConcentration:
		if en {
			return fmt.Sprintf("Position is %.1f%% of the portfolio; reduce concentration", r.CurrentPercent)
		}
		return fmt.Sprintf("포트폴리오 비중이 %.1f%%로 과도하게 집중되어 있습니다", r.CurrentPercent)
	case models.ReasonModerateConcentration:
		if en {
			return fmt.Sprintf("Position is %.1f%% of the portfolio; consider trimming", r.CurrentPercent)
		}
		return fmt.Sprintf("포트폴리오 비중이 %.1f%%로 다소 높습니다", r.CurrentPercent)
	case models.ReasonProfitTaking:
		if en {
			return fmt.Sprintf("Up %.1f%%; consider realizing 30%% of the gain", r.ProfitLossPercent)
		}
		return fmt.Sprintf("수익률 %.1f%% 달성, 일부(30%%) 차익 실현을 고려하세요", r.ProfitLossPercent)
	case models.ReasonLossCutting:
		if en {
			return fmt.Sprintf("Down %.1f%%; consider cutting the loss", -r.ProfitLossPercent)
		}
		return fmt.Sprintf("손실률 %.1f%%, 손절을 고려하세요", -r.ProfitLossPercent)
	case models.ReasonUnderDiversified:
		if en {
			return "Too few holdings; add new positions to diversify"
		}
		return "보유 종목 수가 적어 신규 종목 편입을 통한 분산이 필요합니다"
	default:
		return string(r.Reason)
	}
}

// RenderFindings renders all findings of an analysis, in order.
func RenderFindings(a *models.PortfolioAnalysis, locale string) []string {
	out := make([]string, len(a.ConcentrationRisks))
	for i, f := range a.ConcentrationRisks {
		out[i] = RenderFinding(f, locale)
	}
	return out
}

// RenderReasons renders the reason of every recommendation of an analysis, in order.
func RenderReasons(a *models.PortfolioAnalysis, locale string) []string {
	out := make([]string, len(a.Recommendations))
	for i, r := range a.Recommendations {
		out[i] = RenderReason(r, locale)
	}
	return out
}
