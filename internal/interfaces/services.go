package interfaces

import (
	"context"

	"github.com/bobmcallan/rebal/internal/models"
)

// AdvisorService runs the advisory engine for callers and keeps analysis history
type AdvisorService interface {
	// Analyze runs the engine over ad-hoc holdings (memoized on content)
	Analyze(ctx context.Context, holdings []models.Holding, locale string) (*models.AnalysisResult, error)

	// AnalyzePortfolio fetches a portfolio from the backend, analyzes and records it.
	// When force is false a cached result for the same holdings may be returned.
	AnalyzePortfolio(ctx context.Context, name, locale string, force bool) (*models.AnalysisResult, error)

	// ApplyPriceUpdates reprices the last fetched holdings of a portfolio and re-analyzes
	ApplyPriceUpdates(ctx context.Context, name string, updates []models.PriceUpdate) (*models.AnalysisResult, error)

	// GetHistory returns stored analyses for a portfolio, newest first
	GetHistory(ctx context.Context, name string, limit int) ([]*models.AnalysisRecord, error)

	// ListPortfolios returns configured and previously analyzed portfolio names
	ListPortfolios(ctx context.Context) ([]string, error)

	// RenderChart renders current vs target weights as a PNG
	RenderChart(ctx context.Context, name string) ([]byte, error)

	// Summarize produces a narrative summary of the latest analysis
	Summarize(ctx context.Context, name, locale string) (string, error)

	// RefreshAll re-analyzes every configured portfolio
	RefreshAll(ctx context.Context) error
}

// ReportService renders analysis results as documents
type ReportService interface {
	Markdown(result *models.AnalysisResult) (string, error)
	HTML(result *models.AnalysisResult) (string, error)
}
