package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/rebal/internal/clients/backend"
	"github.com/bobmcallan/rebal/internal/clients/gemini"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/services/advisor"
	"github.com/bobmcallan/rebal/internal/services/report"
	"github.com/bobmcallan/rebal/internal/storage"
)

// App holds all initialized services, clients, storage and the MCP server.
// It is the shared core used by cmd/rebal-server.
type App struct {
	Config         *common.Config
	Logger         *common.Logger
	Store          interfaces.AnalysisStore
	HoldingsClient interfaces.HoldingsClient
	GeminiClient   interfaces.GeminiClient
	AdvisorService *advisor.Service
	ReportService  *report.Service
	MCPServer      *server.MCPServer
	StartupTime    time.Time

	scheduler    *cron.Cron
	streamCancel context.CancelFunc
	streams      sync.WaitGroup
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and initializes the App.
// configPath may be empty, in which case REBAL_CONFIG, then rebal.toml next to
// the binary, then config/rebal.toml are tried.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("REBAL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "rebal.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/rebal.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewAppWithConfig(context.Background(), config, logger)
}

// NewAppWithConfig initializes the App from an already loaded configuration.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	store, err := storage.NewAnalysisStore(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var holdingsClient interfaces.HoldingsClient
	if config.Clients.Backend.BaseURL != "" {
		holdingsClient = backend.NewClientFromConfig(config.Clients.Backend, logger)
	} else {
		logger.Warn().Msg("Holdings backend not configured - portfolio analysis will be unavailable")
	}

	var geminiClient interfaces.GeminiClient
	if key := config.Clients.Gemini.APIKey; key != "" {
		client, err := gemini.NewClient(ctx, key,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			geminiClient = client
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - summaries will be unavailable")
	}

	advisorService := advisor.NewService(holdingsClient, store, geminiClient, config, logger)
	reportService := report.NewService(config, logger)

	mcpServer := server.NewMCPServer(
		"rebal",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:         config,
		Logger:         logger,
		Store:          store,
		HoldingsClient: holdingsClient,
		GeminiClient:   geminiClient,
		AdvisorService: advisorService,
		ReportService:  reportService,
		MCPServer:      mcpServer,
		StartupTime:    startupStart,
	}

	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, stop price streams, close storage.
func (a *App) Close() {
	a.StopScheduler()
	if a.streamCancel != nil {
		a.streamCancel()
		a.streamCancel = nil
		a.streams.Wait()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Store = nil
	}
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	svc := a.AdvisorService
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeHoldingsTool(), handleAnalyzeHoldings(svc, a.ReportService, logger))
	s.AddTool(createPortfolioAnalysisTool(), handlePortfolioAnalysis(svc, a.ReportService, logger))
	s.AddTool(createListPortfoliosTool(), handleListPortfolios(svc, logger))
	s.AddTool(createAnalysisHistoryTool(), handleAnalysisHistory(svc, logger))
}
