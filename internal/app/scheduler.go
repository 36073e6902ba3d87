package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/rebal/internal/clients/backend"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/models"
)

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct {
	logger *common.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// StartScheduler registers the periodic portfolio refresh on RefreshCron.
// It is a no-op when the scheduler is disabled.
func (a *App) StartScheduler() error {
	if !a.Config.Scheduler.Enabled {
		return nil
	}
	if a.scheduler != nil {
		return nil
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger{logger: a.Logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: a.Logger})),
	)

	schedule := a.Config.Scheduler.RefreshCron
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		a.refreshPortfolios(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	a.scheduler = c

	a.Logger.Info().
		Str("schedule", schedule).
		Int("portfolios", len(a.Config.Portfolios)).
		Msg("Refresh scheduler started")
	return nil
}

// StopScheduler stops the refresh scheduler and waits for a running job.
func (a *App) StopScheduler() {
	if a.scheduler == nil {
		return
	}
	ctx := a.scheduler.Stop()
	<-ctx.Done()
	a.scheduler = nil
	a.Logger.Info().Msg("Refresh scheduler stopped")
}

func (a *App) refreshPortfolios(ctx context.Context) {
	start := time.Now()
	if err := a.AdvisorService.RefreshAll(ctx); err != nil {
		a.Logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Portfolio refresh: completed with errors")
		return
	}
	a.Logger.Info().
		Int("portfolios", len(a.Config.Portfolios)).
		Dur("elapsed", time.Since(start)).
		Msg("Portfolio refresh: complete")
}

// StartPriceStreams subscribes to live prices for every configured portfolio
// and re-analyzes on each batch of updates. It is a no-op without a stream URL.
func (a *App) StartPriceStreams() {
	cfg := a.Config.Clients.Backend
	if cfg.StreamURL == "" || len(a.Config.Portfolios) == 0 || a.streamCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.streamCancel = cancel

	stream := backend.NewPriceStream(cfg.StreamURL, cfg.APIKey, backend.WithStreamLogger(a.Logger))
	for _, name := range a.Config.Portfolios {
		a.streams.Add(1)
		go func() {
			defer a.streams.Done()
			err := stream.Run(ctx, name, func(updates []models.PriceUpdate) {
				if _, err := a.AdvisorService.ApplyPriceUpdates(ctx, name, updates); err != nil {
					a.Logger.Warn().Err(err).Str("portfolio", name).Msg("Failed to apply price updates")
				}
			})
			if err != nil {
				a.Logger.Error().Err(err).Str("portfolio", name).Msg("Price stream stopped")
			}
		}()
	}

	a.Logger.Info().Int("portfolios", len(a.Config.Portfolios)).Msg("Price streams started")
}
