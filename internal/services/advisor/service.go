// Package advisor provides the advisory service: it fetches holdings, runs the
// engine with memoization, records analysis history and renders derived views.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	engine "github.com/bobmcallan/rebal/internal/advisor"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// ErrSummaryUnavailable is returned by Summarize when no Gemini client is configured.
var ErrSummaryUnavailable = errors.New("narrative summaries are not configured")

// refreshConcurrency bounds parallel backend fetches in RefreshAll.
const refreshConcurrency = 4

// Service implements AdvisorService
type Service struct {
	holdings interfaces.HoldingsClient
	store    interfaces.AnalysisStore
	gemini   interfaces.GeminiClient // optional
	config   *common.Config
	logger   *common.Logger
	memo     *memo
	now      func() time.Time

	mu         sync.Mutex
	portfolios map[string]*models.Portfolio // last fetched or repriced holdings
	recorded   map[string]string            // last persisted fingerprint per portfolio
}

var _ interfaces.AdvisorService = (*Service)(nil)

// NewService creates a new advisory service. gemini may be nil.
func NewService(
	holdings interfaces.HoldingsClient,
	store interfaces.AnalysisStore,
	gemini interfaces.GeminiClient,
	config *common.Config,
	logger *common.Logger,
) *Service {
	return &Service{
		holdings:   holdings,
		store:      store,
		gemini:     gemini,
		config:     config,
		logger:     logger,
		memo:       newMemo(config.Advisor.MemoSize),
		now:        time.Now,
		portfolios: make(map[string]*models.Portfolio),
		recorded:   make(map[string]string),
	}
}

func (s *Service) locale(requested string) string {
	if requested == "" {
		requested = s.config.Locale
	}
	return engine.NormalizeLocale(requested)
}

// analyze runs the engine through the memo.
func (s *Service) analyze(holdings []models.Holding) (string, *models.PortfolioAnalysis, error) {
	fp, err := Fingerprint(holdings)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fingerprint holdings: %w", err)
	}

	if a, ok := s.memo.get(fp); ok {
		return fp, a, nil
	}

	a := engine.Analyze(holdings)
	s.memo.put(fp, a)
	return fp, a, nil
}

func (s *Service) buildResult(portfolio, fp, locale string, holdings []models.Holding, a *models.PortfolioAnalysis) *models.AnalysisResult {
	var stale []string
	for _, h := range holdings {
		if !h.HasCurrentPrice() && h.Quantity > 0 {
			stale = append(stale, h.Symbol)
		}
	}

	return &models.AnalysisResult{
		Portfolio:   portfolio,
		Fingerprint: fp,
		Locale:      locale,
		Analysis:    a,
		Findings:    engine.RenderFindings(a, locale),
		Reasons:     engine.RenderReasons(a, locale),
		Stale:       stale,
		AnalyzedAt:  s.now().UTC(),
	}
}

// Analyze runs the engine over ad-hoc holdings. Nothing is persisted.
func (s *Service) Analyze(ctx context.Context, holdings []models.Holding, locale string) (*models.AnalysisResult, error) {
	fp, a, err := s.analyze(holdings)
	if err != nil {
		return nil, err
	}
	return s.buildResult("", fp, s.locale(locale), holdings, a), nil
}

// fetch returns the holdings of a portfolio, from the backend when force is set
// or nothing has been fetched yet.
func (s *Service) fetch(ctx context.Context, name string, force bool) (*models.Portfolio, error) {
	if !force {
		s.mu.Lock()
		p, ok := s.portfolios[name]
		s.mu.Unlock()
		if ok {
			return p, nil
		}
	}

	if s.holdings == nil {
		return nil, fmt.Errorf("no holdings backend configured")
	}

	p, err := s.holdings.GetHoldings(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings for '%s': %w", name, err)
	}

	s.mu.Lock()
	s.portfolios[name] = p
	s.mu.Unlock()
	return p, nil
}

// record persists the analysis unless it matches the last stored fingerprint.
func (s *Service) record(ctx context.Context, name, fp string, a *models.PortfolioAnalysis) {
	if s.store == nil {
		return
	}

	s.mu.Lock()
	last, known := s.recorded[name]
	s.mu.Unlock()

	if !known {
		if latest, err := s.store.GetLatest(ctx, name); err == nil {
			last = latest.Fingerprint
		} else if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn().Err(err).Str("portfolio", name).Msg("Failed to read latest analysis")
		}
	}
	if last == fp {
		s.mu.Lock()
		s.recorded[name] = fp
		s.mu.Unlock()
		return
	}

	rec := &models.AnalysisRecord{
		PortfolioName: name,
		Fingerprint:   fp,
		HoldingCount:  a.HoldingCount,
		TotalValue:    a.TotalValue.String(),
		Analysis:      a,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.SaveAnalysis(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("portfolio", name).Msg("Failed to save analysis")
		return
	}

	s.mu.Lock()
	s.recorded[name] = fp
	s.mu.Unlock()

	s.logger.Info().
		Str("portfolio", name).
		Int("score", a.DiversificationScore).
		Str("risk", string(a.RiskLevel)).
		Int("recommendations", len(a.Recommendations)).
		Msg("Analysis recorded")
}

// AnalyzePortfolio fetches, analyzes and records a portfolio.
func (s *Service) AnalyzePortfolio(ctx context.Context, name, locale string, force bool) (*models.AnalysisResult, error) {
	if name == "" {
		name = s.config.DefaultPortfolio()
	}
	if name == "" {
		return nil, fmt.Errorf("portfolio name is required")
	}

	p, err := s.fetch(ctx, name, force)
	if err != nil {
		return nil, err
	}

	fp, a, err := s.analyze(p.Holdings)
	if err != nil {
		return nil, err
	}
	s.record(ctx, name, fp, a)

	return s.buildResult(name, fp, s.locale(locale), p.Holdings, a), nil
}

// ApplyPriceUpdates reprices the last known holdings and re-analyzes.
func (s *Service) ApplyPriceUpdates(ctx context.Context, name string, updates []models.PriceUpdate) (*models.AnalysisResult, error) {
	p, err := s.fetch(ctx, name, false)
	if err != nil {
		return nil, err
	}

	repriced := &models.Portfolio{
		Name:      p.Name,
		Currency:  p.Currency,
		Holdings:  models.WithPrices(p.Holdings, updates),
		FetchedAt: p.FetchedAt,
	}

	s.mu.Lock()
	s.portfolios[name] = repriced
	s.mu.Unlock()

	fp, a, err := s.analyze(repriced.Holdings)
	if err != nil {
		return nil, err
	}
	s.record(ctx, name, fp, a)

	s.logger.Debug().Str("portfolio", name).Int("updates", len(updates)).Msg("Applied price updates")
	return s.buildResult(name, fp, s.locale(""), repriced.Holdings, a), nil
}

// GetHistory returns stored analyses, newest first.
func (s *Service) GetHistory(ctx context.Context, name string, limit int) ([]*models.AnalysisRecord, error) {
	if s.store == nil {
		return []*models.AnalysisRecord{}, nil
	}
	if limit <= 0 || limit > s.config.Advisor.HistoryLimit {
		limit = s.config.Advisor.HistoryLimit
	}
	records, err := s.store.ListAnalyses(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for '%s': %w", name, err)
	}
	return records, nil
}

// ListPortfolios returns configured portfolios first, then any others with history.
func (s *Service) ListPortfolios(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	names := make([]string, 0, len(s.config.Portfolios))
	for _, p := range s.config.Portfolios {
		if !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}

	if s.store == nil {
		return names, nil
	}
	stored, err := s.store.ListPortfolios(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored portfolios: %w", err)
	}
	sort.Strings(stored)
	for _, p := range stored {
		if !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}
	return names, nil
}

// RenderChart renders the current vs target weights of a portfolio.
func (s *Service) RenderChart(ctx context.Context, name string) ([]byte, error) {
	result, err := s.AnalyzePortfolio(ctx, name, "", false)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := s.portfolios[result.Portfolio]
	s.mu.Unlock()
	if p == nil {
		return nil, fmt.Errorf("no holdings loaded for '%s'", result.Portfolio)
	}

	return RenderWeightChart(result.Portfolio, p.Holdings, result.Analysis, result.Locale)
}

// Summarize asks Gemini for a narrative of the portfolio's current analysis.
func (s *Service) Summarize(ctx context.Context, name, locale string) (string, error) {
	if s.gemini == nil {
		return "", ErrSummaryUnavailable
	}

	result, err := s.AnalyzePortfolio(ctx, name, locale, false)
	if err != nil {
		return "", err
	}

	summary, err := s.gemini.SummarizeAnalysis(ctx, result)
	if err != nil {
		return "", fmt.Errorf("failed to summarize '%s': %w", result.Portfolio, err)
	}
	return summary, nil
}

// RefreshAll re-fetches and re-analyzes every configured portfolio. Failures
// are logged and joined; one failing portfolio does not stop the others.
func (s *Service) RefreshAll(ctx context.Context) error {
	portfolios := s.config.Portfolios
	if len(portfolios) == 0 {
		return nil
	}

	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, name := range portfolios {
		g.Go(func() error {
			start := s.now()
			if _, err := s.AnalyzePortfolio(gctx, name, "", true); err != nil {
				s.logger.Warn().Err(err).Str("portfolio", name).Msg("Refresh failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			s.logger.Debug().Str("portfolio", name).Dur("elapsed", s.now().Sub(start)).Msg("Portfolio refreshed")
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// MemoStats reports memo usage.
func (s *Service) MemoStats() MemoStats {
	return s.memo.stats()
}
