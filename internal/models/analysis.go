package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel is the categorical portfolio risk
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Action is the rebalancing direction of a recommendation
type Action string

const (
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
	ActionHold     Action = "hold"
)

// Priority orders recommendations; high sorts first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of the priority (high=0, medium=1, low=2).
// Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// FindingCode identifies a concentration-risk finding
type FindingCode string

const (
	FindingNoHoldings            FindingCode = "no_holdings"
	FindingPositionConcentration FindingCode = "position_concentration"
	FindingInsufficientHoldings  FindingCode = "insufficient_holdings"
)

// ReasonCode identifies the rule that produced a recommendation
type ReasonCode string

const (
	ReasonOverConcentration     ReasonCode = "over_concentration"
	ReasonModerateConcentration ReasonCode = "moderate_concentration"
	ReasonProfitTaking          ReasonCode = "profit_taking"
	ReasonLossCutting           ReasonCode = "loss_cutting"
	ReasonUnderDiversified      ReasonCode = "under_diversified"
)

// NewPositionSymbol is the placeholder symbol of the synthetic "add a new position" recommendation.
const NewPositionSymbol = "신규 종목"

// Finding is a structured concentration-risk finding. Rendering to text is done by the caller.
type Finding struct {
	Code         FindingCode `json:"code"`
	Symbol       string      `json:"symbol,omitempty"`
	Percent      float64     `json:"percent,omitempty"`       // position weight in percentage points
	HoldingCount int         `json:"holding_count,omitempty"` // set for insufficient_holdings
}

// Recommendation is one rebalancing suggestion. TargetPercent is advisory only.
type Recommendation struct {
	Symbol            string     `json:"symbol"`
	CurrentPercent    float64    `json:"current_percent"` // percentage points, 0-100
	TargetPercent     float64    `json:"target_percent"`  // percentage points, 0-100
	Action            Action     `json:"action"`
	Reason            ReasonCode `json:"reason"`
	ProfitLossPercent float64    `json:"profit_loss_percent,omitempty"` // reason parameter for profit/loss rules
	Priority          Priority   `json:"priority"`
}

// CurrentWeight returns CurrentPercent as a fraction in [0, 1].
func (r Recommendation) CurrentWeight() float64 {
	return r.CurrentPercent / 100
}

// TargetWeight returns TargetPercent as a fraction in [0, 1].
func (r Recommendation) TargetWeight() float64 {
	return r.TargetPercent / 100
}

// PortfolioAnalysis is the engine output. It holds plain values only and is
// never modified after construction.
type PortfolioAnalysis struct {
	DiversificationScore int              `json:"diversification_score"`
	RiskLevel            RiskLevel        `json:"risk_level"`
	ConcentrationRisks   []Finding        `json:"concentration_risks"`
	Recommendations      []Recommendation `json:"recommendations"`

	// Informational, derived from the weight vector
	HoldingCount int             `json:"holding_count"`
	TotalValue   decimal.Decimal `json:"total_value"`
	HHI          float64         `json:"hhi"`
	MaxWeight    float64         `json:"max_weight"`
}

// IsEmpty reports whether the analysis describes a degenerate (empty or zero-value) portfolio.
func (a *PortfolioAnalysis) IsEmpty() bool {
	return len(a.ConcentrationRisks) == 1 && a.ConcentrationRisks[0].Code == FindingNoHoldings
}

// AnalysisResult is the service-level response: the engine output plus context and
// display strings rendered for the requested locale.
type AnalysisResult struct {
	Portfolio   string             `json:"portfolio,omitempty"`
	Fingerprint string             `json:"fingerprint"`
	Locale      string             `json:"locale"`
	Analysis    *PortfolioAnalysis `json:"analysis"`
	Findings    []string           `json:"findings"`        // ConcentrationRisks rendered in Locale
	Reasons     []string           `json:"reasons"`         // Recommendations[i].Reason rendered in Locale
	Stale       []string           `json:"stale,omitempty"` // symbols valued at avg_buy_price (no current price)
	AnalyzedAt  time.Time          `json:"analyzed_at"`
}

// AnalysisRecord is a persisted analysis snapshot.
type AnalysisRecord struct {
	ID            string             `json:"id"`
	PortfolioName string             `json:"portfolio_name"`
	Fingerprint   string             `json:"fingerprint"`
	HoldingCount  int                `json:"holding_count"`
	TotalValue    string             `json:"total_value"`
	Analysis      *PortfolioAnalysis `json:"analysis"`
	CreatedAt     time.Time          `json:"created_at"`
}
