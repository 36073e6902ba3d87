// Package surrealdb implements analysis history storage on SurrealDB.
package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

const analysisTable = "analysis"

// analysisSelectFields aliases analysis_id to id for struct mapping.
const analysisSelectFields = `analysis_id as id, portfolio_name, fingerprint, holding_count,
	total_value, analysis_json, created_at`

// analysisRow is the stored shape. The analysis body is kept as JSON text so
// decimal values round-trip exactly.
type analysisRow struct {
	ID            string    `json:"id"`
	PortfolioName string    `json:"portfolio_name"`
	Fingerprint   string    `json:"fingerprint"`
	HoldingCount  int       `json:"holding_count"`
	TotalValue    string    `json:"total_value"`
	AnalysisJSON  string    `json:"analysis_json"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r *analysisRow) toRecord() (*models.AnalysisRecord, error) {
	rec := &models.AnalysisRecord{
		ID:            r.ID,
		PortfolioName: r.PortfolioName,
		Fingerprint:   r.Fingerprint,
		HoldingCount:  r.HoldingCount,
		TotalValue:    r.TotalValue,
		CreatedAt:     r.CreatedAt,
	}
	if r.AnalysisJSON != "" {
		var a models.PortfolioAnalysis
		if err := json.Unmarshal([]byte(r.AnalysisJSON), &a); err != nil {
			return nil, fmt.Errorf("failed to decode analysis %s: %w", r.ID, err)
		}
		rec.Analysis = &a
	}
	return rec, nil
}

// Store implements interfaces.AnalysisStore using SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
	limit  int
	owned  bool // Close also closes db
}

var _ interfaces.AnalysisStore = (*Store)(nil)

// Connect opens a SurrealDB connection from config and returns a Store that owns it.
func Connect(ctx context.Context, logger *common.Logger, config common.StorageConfig, limit int) (*Store, error) {
	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	s, err := NewStore(ctx, db, logger, limit)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}
	s.owned = true

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB analysis store initialized")

	return s, nil
}

// NewStore wraps an open connection, defining the analysis table if needed.
func NewStore(ctx context.Context, db *surrealdb.DB, logger *common.Logger, limit int) (*Store, error) {
	// SurrealDB v3 errors on querying non-existent tables
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", analysisTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return nil, fmt.Errorf("failed to define table %s: %w", analysisTable, err)
	}
	if limit < 0 {
		limit = 0
	}
	return &Store{db: db, logger: logger, limit: limit}, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	if record.PortfolioName == "" {
		return fmt.Errorf("analysis record has no portfolio name")
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(record.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	sql := `UPSERT $rid SET
		analysis_id = $analysis_id, portfolio_name = $portfolio_name, fingerprint = $fingerprint,
		holding_count = $holding_count, total_value = $total_value, analysis_json = $analysis_json,
		created_at = $created_at`
	vars := map[string]any{
		"rid":            surrealmodels.NewRecordID(analysisTable, record.ID),
		"analysis_id":    record.ID,
		"portfolio_name": record.PortfolioName,
		"fingerprint":    record.Fingerprint,
		"holding_count":  record.HoldingCount,
		"total_value":    record.TotalValue,
		"analysis_json":  string(body),
		"created_at":     record.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	if s.limit > 0 {
		s.prune(ctx, record.PortfolioName)
	}
	return nil
}

// prune deletes records beyond the newest s.limit for a portfolio.
func (s *Store) prune(ctx context.Context, portfolio string) {
	sql := `DELETE analysis WHERE portfolio_name = $portfolio AND analysis_id NOT IN
		(SELECT VALUE analysis_id FROM analysis WHERE portfolio_name = $portfolio
		 ORDER BY created_at DESC LIMIT $limit)`
	vars := map[string]any{"portfolio": portfolio, "limit": s.limit}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		s.logger.Warn().Err(err).Str("portfolio", portfolio).Msg("Failed to prune analysis history")
	}
}

func (s *Store) GetLatest(ctx context.Context, portfolio string) (*models.AnalysisRecord, error) {
	records, err := s.ListAnalyses(ctx, portfolio, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("analysis for '%s': %w", portfolio, interfaces.ErrNotFound)
	}
	return records[0], nil
}

func (s *Store) ListAnalyses(ctx context.Context, portfolio string, limit int) ([]*models.AnalysisRecord, error) {
	sql := "SELECT " + analysisSelectFields + " FROM analysis WHERE portfolio_name = $portfolio ORDER BY created_at DESC"
	vars := map[string]any{"portfolio": portfolio}
	if limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = limit
	}

	results, err := surrealdb.Query[[]analysisRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	records := make([]*models.AnalysisRecord, 0)
	if results == nil || len(*results) == 0 {
		return records, nil
	}
	for i := range (*results)[0].Result {
		rec, err := (*results)[0].Result[i].toRecord()
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping undecodable analysis record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) ListPortfolios(ctx context.Context) ([]string, error) {
	type row struct {
		PortfolioName string `json:"portfolio_name"`
	}
	sql := "SELECT portfolio_name FROM analysis GROUP BY portfolio_name"

	results, err := surrealdb.Query[[]row](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	names := make([]string, 0)
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			if strings.TrimSpace(r.PortfolioName) != "" {
				names = append(names, r.PortfolioName)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Close() error {
	if s.owned {
		return s.db.Close(context.Background())
	}
	return nil
}
