package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/models"
	"github.com/bobmcallan/rebal/internal/services/advisor"
	"github.com/bobmcallan/rebal/internal/services/report"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rebal",
		Short: "rebal - portfolio diversification advisor",
		Long: `rebal analyzes a set of holdings for concentration risk and produces
a diversification score, a risk level and prioritized rebalancing recommendations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newChartCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file path")
	rootCmd.PersistentFlags().String("locale", "", "Output locale (ko or en)")

	return rootCmd
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [FILE|-]",
		Short: "Analyze holdings from a JSON file or stdin",
		Long: `Analyze reads holdings as a JSON array (or an object with a "holdings" array)
and prints the diversification analysis.
Example: rebal analyze holdings.json --format markdown --locale en`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			query, _ := cmd.Flags().GetString("query")
			style, _ := cmd.Flags().GetString("style")

			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			holdings, err := readHoldings(cmd, args)
			if err != nil {
				return err
			}

			result, err := env.advisor.Analyze(cmd.Context(), holdings, env.locale)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if query != "" {
				return writeQuery(out, result, query)
			}

			switch format {
			case "json":
				return writeJSON(out, result)
			case "markdown", "md":
				md, err := env.report.Markdown(result)
				if err != nil {
					return err
				}
				rendered, err := renderMarkdown(md, style)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, rendered)
				return err
			case "text", "":
				_, err := fmt.Fprintln(out, renderSummary(result))
				return err
			default:
				return fmt.Errorf("unknown format %q (want text, json or markdown)", format)
			}
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format: text, json or markdown")
	cmd.Flags().StringP("query", "q", "", "JSONPath query applied to the JSON result (e.g. $.analysis.diversification_score)")
	cmd.Flags().String("style", "auto", "Markdown style: auto, dark, light or notty")

	return cmd
}

// newChartCmd creates the chart command
func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart [FILE|-]",
		Short: "Render a PNG weight chart for holdings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			title, _ := cmd.Flags().GetString("title")

			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			holdings, err := readHoldings(cmd, args)
			if err != nil {
				return err
			}

			result, err := env.advisor.Analyze(cmd.Context(), holdings, env.locale)
			if err != nil {
				return err
			}
			png, err := advisor.RenderWeightChart(title, holdings, result.Analysis, result.Locale)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, png, 0644); err != nil {
				return fmt.Errorf("failed to write chart: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Chart written to "+output))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "weights.png", "Output PNG path")
	cmd.Flags().String("title", "Holdings", "Chart title")

	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := common.GetVersionInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "rebal %s (build %s, commit %s)\n", info.Version, info.Build, info.Commit)
		},
	}
}

// cliEnv holds the services a command needs.
type cliEnv struct {
	advisor *advisor.Service
	report  *report.Service
	locale  string
}

func newCLIEnv(cmd *cobra.Command) (*cliEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	locale, _ := cmd.Flags().GetString("locale")

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := common.NewLoggerWithOutput("warn", cmd.ErrOrStderr())

	return &cliEnv{
		advisor: advisor.NewService(nil, nil, nil, config, logger),
		report:  report.NewService(config, logger),
		locale:  locale,
	}, nil
}

// readHoldings decodes holdings from the named file, or stdin for "-" or no argument.
func readHoldings(cmd *cobra.Command, args []string) ([]models.Holding, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open holdings: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read holdings: %w", err)
	}
	return parseHoldings(data)
}

// parseHoldings accepts a bare array or an object wrapping a "holdings" array.
func parseHoldings(data []byte) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := json.Unmarshal(data, &holdings); err == nil {
		return holdings, nil
	}

	var wrapped struct {
		Holdings []models.Holding `json:"holdings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid holdings JSON: %w", err)
	}
	return wrapped.Holdings, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeQuery evaluates a JSONPath expression against the JSON form of result.
func writeQuery(w io.Writer, result *models.AnalysisResult, query string) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	val, err := jsonpath.Get(query, doc)
	if err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	return writeJSON(w, val)
}

func renderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		opt = glamour.WithStandardStyle(style)
	}

	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render(md)
}
