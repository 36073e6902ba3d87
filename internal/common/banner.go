package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// StorageDescription returns a short human label for the configured storage backend.
func (c *Config) StorageDescription() string {
	if c.Storage.Backend == "surrealdb" {
		return fmt.Sprintf("surrealdb %s (%s/%s)", c.Storage.Address, c.Storage.Namespace, c.Storage.Database)
	}
	return "file " + c.Storage.Path
}

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	version := GetVersion()
	build := GetBuild()
	commit := GetGitCommit()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	storage := config.StorageDescription()

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 60
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` 8888888b.  8888888888 888888b.         d8888 888`,
		` 888   Y88b 888        888  "88b       d88888 888`,
		` 888    888 888        888  .88P      d88P888 888`,
		` 888   d88P 8888888    8888888K.     d88P 888 888`,
		` 8888888P"  888        888  "Y88b   d88P  888 888`,
		` 888 T88b   888        888    888  d88P   888 888`,
		` 888  T88b  888        888   d88P d8888888888 888`,
		` 888   T88b 8888888888 8888888P" d88P     888 88888888`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  Portfolio Diversification & Rebalancing Advisor%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	kvPad := 16
	kvLines := [][2]string{
		{"Version", version},
		{"Build", build},
		{"Commit", commit},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
		{"Storage", storage},
		{"Locale", config.Locale},
		{"Portfolios", strings.Join(config.Portfolios, ", ")},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("commit", commit).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Str("storage", storage).
		Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 42) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  REBAL: SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Msg("Application shutting down")
}
