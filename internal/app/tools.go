package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// --- Tool definitions ---

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the rebal server version and status. Use this to verify connectivity."),
	)
}

func createAnalyzeHoldingsTool() mcp.Tool {
	return mcp.NewTool("analyze_holdings",
		mcp.WithDescription("Analyze an ad-hoc list of holdings: diversification score (0-100), risk level, concentration risks and rebalancing recommendations. Nothing is stored."),
		mcp.WithString("holdings",
			mcp.Required(),
			mcp.Description(`JSON array of holdings, e.g. [{"symbol":"005930","quantity":10,"avg_buy_price":"70000","current_price":"72000","profit_loss_percent":"2.9"}]`),
		),
		mcp.WithString("locale",
			mcp.Description("Message language: 'ko' (default) or 'en'"),
		),
	)
}

func createPortfolioAnalysisTool() mcp.Tool {
	return mcp.NewTool("portfolio_analysis",
		mcp.WithDescription("Fetch a portfolio from the holdings backend and return its diversification analysis as a markdown report."),
		mcp.WithString("portfolio_name",
			mcp.Description("Name of the portfolio (default: the configured default portfolio)"),
		),
		mcp.WithString("locale",
			mcp.Description("Message language: 'ko' (default) or 'en'"),
		),
		mcp.WithBoolean("force_refresh",
			mcp.Description("Re-fetch holdings from the backend (default: false)"),
		),
	)
}

func createListPortfoliosTool() mcp.Tool {
	return mcp.NewTool("list_portfolios",
		mcp.WithDescription("List configured portfolios and portfolios with stored analysis history."),
	)
}

func createAnalysisHistoryTool() mcp.Tool {
	return mcp.NewTool("analysis_history",
		mcp.WithDescription("List stored analyses for a portfolio, newest first."),
		mcp.WithString("portfolio_name",
			mcp.Required(),
			mcp.Description("Name of the portfolio"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum records to return (default: 10)"),
		),
	)
}

// --- Tool handlers ---

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("rebal MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

func handleAnalyzeHoldings(svc interfaces.AdvisorService, reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("holdings")
		if err != nil || strings.TrimSpace(raw) == "" {
			return errorResult("Error: holdings parameter is required"), nil
		}

		var holdings []models.Holding
		if err := json.Unmarshal([]byte(raw), &holdings); err != nil {
			return errorResult(fmt.Sprintf("Error: holdings must be a JSON array: %v", err)), nil
		}

		result, err := svc.Analyze(ctx, holdings, request.GetString("locale", ""))
		if err != nil {
			logger.Error().Err(err).Msg("Holdings analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		md, err := reports.Markdown(result)
		if err != nil {
			return errorResult(fmt.Sprintf("Report error: %v", err)), nil
		}
		return textResult(md), nil
	}
}

func handlePortfolioAnalysis(svc interfaces.AdvisorService, reports interfaces.ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := request.GetString("portfolio_name", "")
		locale := request.GetString("locale", "")
		force := request.GetBool("force_refresh", false)

		result, err := svc.AnalyzePortfolio(ctx, name, locale, force)
		if err != nil {
			logger.Error().Err(err).Str("portfolio", name).Msg("Portfolio analysis failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		md, err := reports.Markdown(result)
		if err != nil {
			return errorResult(fmt.Sprintf("Report error: %v", err)), nil
		}
		return textResult(md), nil
	}
}

func handleListPortfolios(svc interfaces.AdvisorService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := svc.ListPortfolios(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("List portfolios failed")
			return errorResult(fmt.Sprintf("Error listing portfolios: %v", err)), nil
		}
		if len(names) == 0 {
			return textResult("No portfolios configured."), nil
		}

		var sb strings.Builder
		sb.WriteString("# Portfolios\n\n")
		for _, n := range names {
			sb.WriteString(fmt.Sprintf("- %s\n", n))
		}
		return textResult(sb.String()), nil
	}
}

func handleAnalysisHistory(svc interfaces.AdvisorService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("portfolio_name")
		if err != nil || name == "" {
			return errorResult("Error: portfolio_name parameter is required"), nil
		}
		limit := request.GetInt("limit", 10)

		records, err := svc.GetHistory(ctx, name, limit)
		if err != nil {
			logger.Error().Err(err).Str("portfolio", name).Msg("Analysis history failed")
			return errorResult(fmt.Sprintf("History error: %v", err)), nil
		}
		if len(records) == 0 {
			return textResult(fmt.Sprintf("No stored analyses for '%s'.", name)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("# Analysis History: %s\n\n", name))
		sb.WriteString("| Date | Holdings | Score | Risk | Recommendations |\n")
		sb.WriteString("|------|----------|-------|------|-----------------|\n")
		for _, r := range records {
			score, risk, recs := 0, "", 0
			if r.Analysis != nil {
				score, risk, recs = r.Analysis.DiversificationScore, string(r.Analysis.RiskLevel), len(r.Analysis.Recommendations)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %d |\n",
				r.CreatedAt.Format("2006-01-02 15:04"), r.HoldingCount, score, risk, recs))
		}
		return textResult(sb.String()), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
