// Package report provides report generation services
package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// Service implements ReportService
type Service struct {
	currency string
	markdown goldmark.Markdown
	logger   *common.Logger
}

var _ interfaces.ReportService = (*Service)(nil)

// NewService creates a new report service. Amounts are shown in the
// configured display currency.
func NewService(config *common.Config, logger *common.Logger) *Service {
	return &Service{
		currency: config.DisplayCurrency,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
		logger:   logger,
	}
}

// Markdown renders an analysis result as a markdown report
func (s *Service) Markdown(result *models.AnalysisResult) (string, error) {
	return s.MarkdownWithSummary(result, "")
}

// MarkdownWithSummary renders the report with a narrative summary section
func (s *Service) MarkdownWithSummary(result *models.AnalysisResult, summary string) (string, error) {
	if result == nil || result.Analysis == nil {
		return "", fmt.Errorf("no analysis to report")
	}
	return formatAnalysisMarkdown(result, s.currency, summary), nil
}

// HTML renders the markdown report as a standalone HTML page
func (s *Service) HTML(result *models.AnalysisResult) (string, error) {
	md, err := s.Markdown(result)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("failed to render report HTML: %w", err)
	}

	title := result.Portfolio
	if title == "" {
		title = labelsFor(result.Locale).untitled
	}

	s.logger.Debug().Str("portfolio", result.Portfolio).Int("bytes", body.Len()).Msg("Rendered HTML report")

	return fmt.Sprintf(htmlTemplate, html.EscapeString(result.Locale), html.EscapeString(title), body.String()), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="%s">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; }
</style>
</head>
<body>
%s</body>
</html>
`
