package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bobmcallan/rebal/internal/clients/backend"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
	"github.com/bobmcallan/rebal/internal/services/advisor"
)

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrNotFound), backend.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, advisor.ErrSummaryUnavailable):
		return http.StatusServiceUnavailable
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

// --- Analysis handlers ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Holdings json.RawMessage `json:"holdings"`
		Locale   string          `json:"locale"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	var holdings []models.Holding
	if len(req.Holdings) > 0 {
		if err := UnmarshalArrayParam(req.Holdings, &holdings); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid holdings: %v", err))
			return
		}
	}

	locale := req.Locale
	if locale == "" {
		locale = requestLocale(r)
	}

	result, err := s.app.AdvisorService.Analyze(r.Context(), holdings, locale)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis error: %v", err))
		return
	}

	s.writeResult(w, r, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.AdvisorService.RefreshAll(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Refresh completed with errors: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"refreshed": s.app.Config.Portfolios,
	})
}

// writeResult writes an analysis result as JSON, or as a report when
// ?format=markdown or ?format=html is given.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, result *models.AnalysisResult) {
	switch r.URL.Query().Get("format") {
	case "markdown", "md":
		md, err := s.app.ReportService.Markdown(result)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Report error: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(md))
	case "html":
		page, err := s.app.ReportService.HTML(result)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Report error: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(page))
	default:
		WriteJSON(w, http.StatusOK, result)
	}
}

// --- Portfolio handlers ---

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	portfolios, err := s.app.AdvisorService.ListPortfolios(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing portfolios: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": portfolios,
		"default":    s.app.Config.DefaultPortfolio(),
	})
}

func (s *Server) handlePortfolioAnalysis(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result, err := s.app.AdvisorService.AnalyzePortfolio(r.Context(), name, requestLocale(r), queryBool(r, "force"))
	if err != nil {
		WriteError(w, errorStatus(err), fmt.Sprintf("Analysis error: %v", err))
		return
	}

	s.writeResult(w, r, result)
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	records, err := s.app.AdvisorService.GetHistory(r.Context(), name, queryInt(r, "limit", 0))
	if err != nil {
		WriteError(w, errorStatus(err), fmt.Sprintf("History error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"count":     len(records),
		"history":   records,
	})
}

func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := s.app.AdvisorService.RenderChart(r.Context(), name)
	if err != nil {
		WriteError(w, errorStatus(err), fmt.Sprintf("Chart error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *Server) handlePortfolioReport(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result, err := s.app.AdvisorService.AnalyzePortfolio(r.Context(), name, requestLocale(r), queryBool(r, "force"))
	if err != nil {
		WriteError(w, errorStatus(err), fmt.Sprintf("Analysis error: %v", err))
		return
	}

	if r.URL.Query().Get("format") == "" {
		q := r.URL.Query()
		q.Set("format", "markdown")
		r.URL.RawQuery = q.Encode()
	}
	s.writeResult(w, r, result)
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := s.app.AdvisorService.Summarize(r.Context(), name, requestLocale(r))
	if err != nil {
		WriteError(w, errorStatus(err), fmt.Sprintf("Summary error: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"summary":   summary,
	})
}

func (s *Server) handlePortfolioPrices(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Updates json.RawMessage `json:"updates"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	var updates []models.PriceUpdate
	if err := UnmarshalArrayParam(req.Updates, &updates); err != nil || len(updates) == 0 {
		WriteError(w, http.StatusBadRequest, "updates must be a non-empty array of {symbol, price}")
		return
	}

	result, err := s.app.AdvisorService.ApplyPriceUpdates(r.Context(), name, updates)
	if err != nil {
		WriteError(w, errorStatus(err), fmt.Sprintf("Price update error: %v", err))
		return
	}

	s.writeResult(w, r, result)
}
