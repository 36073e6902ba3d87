package server

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bobmcallan/rebal/internal/common"
)

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// MCP over Streamable HTTP
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s.app.MCPServer,
		server.WithStateLess(true),
	))

	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Analysis
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/refresh", s.handleRefresh)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolioList)
}

// routePortfolios dispatches /api/portfolios/{name}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		s.handlePortfolioList(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	name := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "", "analysis":
		s.handlePortfolioAnalysis(w, r, name)
	case "history":
		s.handlePortfolioHistory(w, r, name)
	case "chart":
		s.handlePortfolioChart(w, r, name)
	case "report":
		s.handlePortfolioReport(w, r, name)
	case "summary":
		s.handlePortfolioSummary(w, r, name)
	case "prices":
		s.handlePortfolioPrices(w, r, name)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.app.Config.Redacted()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"config":             cfg,
		"default_portfolio":  s.app.Config.DefaultPortfolio(),
		"storage":            s.app.Config.StorageDescription(),
		"backend_configured": s.app.HoldingsClient != nil,
		"gemini_configured":  s.app.GeminiClient != nil,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	resp := map[string]interface{}{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"commit":     common.GetGitCommit(),
		"uptime":     uptime.String(),
		"started_at": s.app.StartupTime,
		"goroutines": runtime.NumGoroutine(),
		"heap_mb":    float64(ms.HeapAlloc) / 1024 / 1024,
		"memo":       s.app.AdvisorService.MemoStats(),
	}

	if pct, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pct) > 0 {
		resp["cpu_percent"] = pct[0]
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to get CPU percentage")
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp["memory_percent"] = vm.UsedPercent
	} else {
		s.logger.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	WriteJSON(w, http.StatusOK, resp)
}
