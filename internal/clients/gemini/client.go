// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/rebal/internal/advisor"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

const DefaultModel = "gemini-2.0-flash"

// Client implements the GeminiClient interface
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

var _ interfaces.GeminiClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GenerateContent generates AI content from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// SummarizeAnalysis asks the model for a short narrative of an analysis result.
func (c *Client) SummarizeAnalysis(ctx context.Context, result *models.AnalysisResult) (string, error) {
	if result == nil || result.Analysis == nil {
		return "", fmt.Errorf("no analysis to summarize")
	}
	return c.GenerateContent(ctx, BuildAnalysisPrompt(result))
}

// BuildAnalysisPrompt renders an analysis result into a prompt. The model is
// asked to explain, not to add new recommendations.
func BuildAnalysisPrompt(result *models.AnalysisResult) string {
	a := result.Analysis
	locale := advisor.NormalizeLocale(result.Locale)

	var sb strings.Builder
	if locale == advisor.LocaleEnglish {
		sb.WriteString("You are a portfolio advisor. Summarize the diversification analysis below in 3-5 sentences of plain English.\n")
	} else {
		sb.WriteString("당신은 포트폴리오 자문가입니다. 아래 분산 투자 분석 결과를 한국어 3-5문장으로 요약하세요.\n")
	}
	sb.WriteString("Explain the score and risk level, then the most important recommendations. Do not invent recommendations that are not listed.\n\n")

	if result.Portfolio != "" {
		fmt.Fprintf(&sb, "Portfolio: %s\n", result.Portfolio)
	}
	fmt.Fprintf(&sb, "Holdings: %d\n", a.HoldingCount)
	fmt.Fprintf(&sb, "Total value: %s\n", a.TotalValue.StringFixed(2))
	fmt.Fprintf(&sb, "Diversification score: %d/100 (HHI %.4f)\n", a.DiversificationScore, a.HHI)
	fmt.Fprintf(&sb, "Risk level: %s\n", a.RiskLevel)

	if len(a.ConcentrationRisks) > 0 {
		sb.WriteString("\nConcentration risks:\n")
		for _, f := range a.ConcentrationRisks {
			fmt.Fprintf(&sb, "- %s\n", advisor.RenderFinding(f, locale))
		}
	}

	if len(a.Recommendations) > 0 {
		sb.WriteString("\nRecommendations (highest priority first):\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&sb, "- [%s] %s %s: %.1f%% -> %.1f%% (%s)\n",
				r.Priority, r.Action, advisor.DisplaySymbol(r.Symbol, locale),
				r.CurrentPercent, r.TargetPercent, advisor.RenderReason(r, locale))
		}
	}

	if len(result.Stale) > 0 {
		fmt.Fprintf(&sb, "\nValued at average buy price (no live quote): %s\n", strings.Join(result.Stale, ", "))
	}

	return sb.String()
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}
