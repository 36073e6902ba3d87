package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoEqualHoldings = `[
	{"symbol":"AAA","quantity":10,"avg_buy_price":100},
	{"symbol":"BBB","quantity":10,"avg_buy_price":100}
]`

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REBAL_LOCALE", "")

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze_JSONFromStdin(t *testing.T) {
	out, err := runCLI(t, twoEqualHoldings, "analyze", "--format", "json", "--locale", "en")
	require.NoError(t, err)

	assert.Contains(t, out, `"diversification_score": 50`)
	assert.Contains(t, out, `"risk_level": "high"`)
	assert.Contains(t, out, `"locale": "en"`)
}

func TestAnalyze_Query(t *testing.T) {
	out, err := runCLI(t, twoEqualHoldings, "analyze", "-", "--query", "$.analysis.diversification_score")
	require.NoError(t, err)
	assert.Equal(t, "50\n", out)

	_, err = runCLI(t, twoEqualHoldings, "analyze", "--query", "$.nosuchkey")
	assert.Error(t, err)
}

func TestAnalyze_TextDefaultsToKorean(t *testing.T) {
	out, err := runCLI(t, twoEqualHoldings, "analyze")
	require.NoError(t, err)

	assert.Contains(t, out, "분산 점수 50/100")
	assert.Contains(t, out, "HIGH")
}

func TestAnalyze_TextEnglish(t *testing.T) {
	out, err := runCLI(t, `[{"symbol":"AAA","quantity":1,"avg_buy_price":100}]`, "analyze", "--locale", "en")
	require.NoError(t, err)

	assert.Contains(t, out, "Score 0/100")
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "stale: AAA")
}

func TestAnalyze_MarkdownFromWrappedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"holdings":`+twoEqualHoldings+`}`), 0644))

	out, err := runCLI(t, "", "analyze", path, "--format", "markdown", "--style", "notty", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Diversification Report")
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := runCLI(t, twoEqualHoldings, "analyze", "--format", "yaml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = runCLI(t, "not json", "analyze")
	assert.ErrorContains(t, err, "invalid holdings JSON")

	_, err = runCLI(t, "", "analyze", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to open holdings")
}

func TestChart_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.png")

	out, err := runCLI(t, twoEqualHoldings, "chart", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestChart_EmptyHoldings(t *testing.T) {
	_, err := runCLI(t, `[]`, "chart", "-o", filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rebal "))
}

func TestParseHoldings(t *testing.T) {
	holdings, err := parseHoldings([]byte(twoEqualHoldings))
	require.NoError(t, err)
	assert.Len(t, holdings, 2)

	holdings, err = parseHoldings([]byte(`{"holdings":[{"symbol":"X","quantity":1,"avg_buy_price":"5"}]}`))
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "X", holdings[0].Symbol)

	_, err = parseHoldings([]byte(``))
	assert.Error(t, err)
}
