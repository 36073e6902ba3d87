package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/rebal/internal/models"
)

// ErrNotFound is returned by stores when no record exists.
var ErrNotFound = errors.New("not found")

// AnalysisStore persists analysis snapshots per portfolio
type AnalysisStore interface {
	// SaveAnalysis stores a record, assigning ID and CreatedAt when unset
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error

	// GetLatest returns the newest record for a portfolio or ErrNotFound
	GetLatest(ctx context.Context, portfolio string) (*models.AnalysisRecord, error)

	// ListAnalyses returns up to limit records, newest first. limit <= 0 means all.
	ListAnalyses(ctx context.Context, portfolio string, limit int) ([]*models.AnalysisRecord, error)

	// ListPortfolios returns the names of portfolios with stored records
	ListPortfolios(ctx context.Context) ([]string, error)

	// Close releases resources
	Close() error
}
