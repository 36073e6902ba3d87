package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobmcallan/rebal/internal/app"
	"github.com/bobmcallan/rebal/internal/server"
)

// testServer creates an httptest.Server with the full rebal-server handler for testing.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/portfolios/core/holdings" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":{"name":"core","currency":"KRW","holdings":[
			{"symbol":"005930","quantity":10,"avg_buy_price":"70000","current_price":"72000"},
			{"symbol":"035420","quantity":5,"avg_buy_price":"200000","current_price":"190000"},
			{"symbol":"000660","quantity":4,"avg_buy_price":"120000","current_price":"130000"}
		]}}`))
	}))
	t.Cleanup(backend.Close)

	configPath := writeTestConfig(t, backend.URL)
	a, err := app.NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv := server.NewServer(a)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestHealthEndpoint verifies GET /api/health returns 200 with {"status":"ok"}.
func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("Expected status=ok, got %q", body["status"])
	}
}

// TestVersionEndpoint verifies GET /api/version returns version info.
func TestVersionEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["version"] == "" {
		t.Error("Expected non-empty version field")
	}
}

// TestConfigEndpoint verifies GET /api/config reports the loaded file config.
func TestConfigEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body["default_portfolio"] != "core" {
		t.Errorf("Expected default_portfolio=core, got %v", body["default_portfolio"])
	}
	if body["backend_configured"] != true {
		t.Error("Expected backend_configured=true")
	}
}

// TestPortfolioAnalysisEndpoint verifies a configured portfolio is fetched and analyzed.
func TestPortfolioAnalysisEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/portfolios/core/analysis")
	if err != nil {
		t.Fatalf("GET analysis failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Portfolio string `json:"portfolio"`
		Locale    string `json:"locale"`
		Analysis  struct {
			HoldingCount int `json:"holding_count"`
		} `json:"analysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if body.Portfolio != "core" {
		t.Errorf("Expected portfolio=core, got %q", body.Portfolio)
	}
	if body.Locale != "en" {
		t.Errorf("Expected locale from config (en), got %q", body.Locale)
	}
	if body.Analysis.HoldingCount != 3 {
		t.Errorf("Expected 3 holdings, got %d", body.Analysis.HoldingCount)
	}
}

// TestPortfolioReportEndpoint verifies the markdown report is served by default.
func TestPortfolioReportEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/portfolios/core/report")
	if err != nil {
		t.Fatalf("GET report failed: %v", err)
	}
	defer resp.Body.Close()

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/markdown") {
		t.Errorf("Expected markdown content type, got %q", resp.Header.Get("Content-Type"))
	}
}

// TestMCPEndpoint verifies the MCP endpoint is mounted.
func TestMCPEndpoint(t *testing.T) {
	ts := testServer(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	resp, err := http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /mcp failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		t.Error("Expected /mcp to be mounted, got 404")
	}
}

func writeTestConfig(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()

	os.MkdirAll(filepath.Join(dir, "data"), 0755)
	os.MkdirAll(filepath.Join(dir, "logs"), 0755)

	config := `
portfolios = ["core"]
locale = "en"

[storage]
backend = "file"
path = "` + filepath.Join(dir, "data") + `"

[clients.backend]
base_url = "` + backendURL + `"
max_retries = 0

[logging]
level = "error"
outputs = ["console"]
file_path = "` + filepath.Join(dir, "logs", "rebal.log") + `"
`
	configPath := filepath.Join(dir, "rebal.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
