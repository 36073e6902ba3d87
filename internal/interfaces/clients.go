// Package interfaces defines service contracts for rebal
package interfaces

import (
	"context"

	"github.com/bobmcallan/rebal/internal/models"
)

// HoldingsClient provides access to the holdings backend API
type HoldingsClient interface {
	// ListPortfolios returns the portfolio names known to the backend
	ListPortfolios(ctx context.Context) ([]string, error)

	// GetHoldings retrieves the current holdings of a portfolio
	GetHoldings(ctx context.Context, portfolio string) (*models.Portfolio, error)
}

// PriceStream delivers live price updates for a portfolio until ctx is cancelled
type PriceStream interface {
	Run(ctx context.Context, portfolio string, handler func([]models.PriceUpdate)) error
}

// GeminiClient provides access to Gemini API
type GeminiClient interface {
	// GenerateContent generates AI content from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// SummarizeAnalysis writes a short narrative for an analysis result
	SummarizeAnalysis(ctx context.Context, result *models.AnalysisResult) (string, error)
}
