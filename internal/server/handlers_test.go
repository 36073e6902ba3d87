package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/rebal/internal/app"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/portfolios/growth/holdings":
			w.Write([]byte(`{"data":{"name":"growth","currency":"KRW","holdings":[
				{"symbol":"AAA","quantity":60,"avg_buy_price":"10","current_price":"10"},
				{"symbol":"BBB","quantity":40,"avg_buy_price":"10","current_price":"10"}
			]}}`))
		default:
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(backendSrv.Close)

	cfg := common.NewDefaultConfig()
	cfg.Portfolios = []string{"growth"}
	cfg.Storage.Path = t.TempDir()
	cfg.Clients.Backend.BaseURL = backendSrv.URL
	cfg.Clients.Backend.MaxRetries = 0
	cfg.Clients.Backend.APIKey = "secret-key"

	a, err := app.NewAppWithConfig(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return NewServer(a)
}

func do(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	rr = do(t, s, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"version"`)

	rr = do(t, s, http.MethodPost, "/api/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestConfig_RedactsSecrets(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.NotContains(t, body, "secret-key")
	assert.Contains(t, body, `"default_portfolio":"growth"`)
	assert.Contains(t, body, `"gemini_configured":false`)
}

func TestDiagnostics(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/diagnostics", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	decode(t, rr, &resp)
	assert.Contains(t, resp, "uptime")
	assert.Contains(t, resp, "memo")
	assert.Contains(t, resp, "goroutines")
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/analyze", `{"locale":"en","holdings":[
		{"symbol":"A","quantity":10,"avg_buy_price":100},
		{"symbol":"B","quantity":10,"avg_buy_price":100}
	]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result models.AnalysisResult
	decode(t, rr, &result)
	assert.Equal(t, 50, result.Analysis.DiversificationScore)
	assert.Equal(t, models.RiskHigh, result.Analysis.RiskLevel)
	assert.Equal(t, "en", result.Locale)
	assert.Len(t, result.Findings, len(result.Analysis.ConcentrationRisks))
}

func TestAnalyze_EmptyHoldings(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/analyze", `{"holdings":[]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var result models.AnalysisResult
	decode(t, rr, &result)
	assert.Equal(t, 0, result.Analysis.DiversificationScore)
	assert.Equal(t, models.RiskHigh, result.Analysis.RiskLevel)
	assert.Equal(t, []string{"보유 종목이 없습니다"}, result.Findings)
}

func TestAnalyze_BadRequests(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/analyze", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/analyze", `{"holdings":"nope"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/analyze", "").Code)
}

func TestAnalyze_MarkdownFormat(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/analyze?format=markdown", `{"locale":"en","holdings":[{"symbol":"A","quantity":1,"avg_buy_price":100}]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, rr.Body.String(), "# Diversification Report")
}

func TestPortfolioAnalysis(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolios/growth/analysis?locale=en", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result models.AnalysisResult
	decode(t, rr, &result)
	assert.Equal(t, "growth", result.Portfolio)
	assert.Equal(t, 48, result.Analysis.DiversificationScore)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestPortfolioAnalysis_NotFound(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolios/ghost/analysis", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, http.MethodGet, "/api/portfolios/growth/unknown", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPortfolioList(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolios", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Portfolios []string `json:"portfolios"`
		Default    string   `json:"default"`
	}
	decode(t, rr, &resp)
	assert.Equal(t, []string{"growth"}, resp.Portfolios)
	assert.Equal(t, "growth", resp.Default)
}

func TestPortfolioHistory(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/portfolios/growth", "").Code)

	rr := do(t, s, http.MethodGet, "/api/portfolios/growth/history?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Count   int                      `json:"count"`
		History []*models.AnalysisRecord `json:"history"`
	}
	decode(t, rr, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 48, resp.History[0].Analysis.DiversificationScore)
}

func TestPortfolioChart(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolios/growth/chart", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))
}

func TestPortfolioReport(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolios/growth/report?locale=en", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "# Diversification Report: growth")

	rr = do(t, s, http.MethodGet, "/api/portfolios/growth/report?format=html", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rr.Body.String(), "<h1>")
}

func TestPortfolioSummary_Unavailable(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodGet, "/api/portfolios/growth/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPortfolioPrices(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/portfolios/growth/prices", `{"updates":[{"symbol":"BBB","price":"15"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result models.AnalysisResult
	decode(t, rr, &result)
	assert.Equal(t, "1200", result.Analysis.TotalValue.String())

	rr = do(t, s, http.MethodPost, "/api/portfolios/growth/prices", `{"updates":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)

	rr := do(t, s, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestShutdown_SignalsChannel(t *testing.T) {
	s := newTestServer(t)
	ch := make(chan struct{}, 1)
	s.SetShutdownChannel(ch)

	rr := do(t, s, http.MethodPost, "/api/shutdown", "")
	require.Equal(t, http.StatusOK, rr.Code)
	<-ch
}
