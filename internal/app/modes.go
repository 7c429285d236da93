package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okquant/costsim/internal/domain"
	"github.com/okquant/costsim/internal/feed"
	"github.com/okquant/costsim/internal/orderbook"
	"github.com/okquant/costsim/internal/report"
	"github.com/okquant/costsim/internal/server"
	"github.com/okquant/costsim/internal/server/handler"
	"github.com/okquant/costsim/internal/simulator"
	"github.com/okquant/costsim/internal/slippage"
)

// pipeline groups the long-lived objects shared by every mode.
type pipeline struct {
	book   *orderbook.Book
	engine *simulator.Engine
	feeder *feed.BookFeeder
}

// buildPipeline assembles the book, predictor, engine and feeder from the
// configuration, optionally restoring model state from the cache.
func (a *App) buildPipeline(ctx context.Context, deps *Dependencies) *pipeline {
	simCfg := a.cfg.Simulator

	book := orderbook.New(a.cfg.Exchange.Name, a.cfg.Exchange.Symbol)
	predictor := slippage.NewModel()
	fees := simulator.NewTieredFees(a.cfg.Exchange.Name, simCfg.FeeTier)
	impact := simulator.NewSquareRootImpact(
		simCfg.Volatility, simCfg.DailyVolume,
		simCfg.TempImpactFactor, simCfg.PermImpactFactor,
	)

	engine := simulator.NewEngine(
		a.cfg.Exchange.Name, a.cfg.Exchange.Symbol,
		simCfg.InitialCapital, predictor, fees, impact, a.logger,
	)

	if simCfg.RestoreState {
		err := engine.LoadState(ctx, deps.ModelCache)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.logger.Info("no saved model state, starting cold")
		case err != nil:
			a.logger.Warn("model state restore failed, starting cold",
				slog.String("error", err.Error()),
			)
		}
	}

	probe := feed.ProbeOrder{
		Size:       simCfg.ProbeSize,
		LimitPrice: simCfg.ProbeLimitPrice,
		OrderType:  simCfg.ProbeOrderType,
		Horizon:    simCfg.ProbeHorizonSec,
	}
	feeder := feed.NewBookFeeder(a.cfg.Feed.WsURL, book, engine, probe, a.logger)

	return &pipeline{book: book, engine: engine, feeder: feeder}
}

// startCommon launches the goroutines every mode shares: the feeder, the
// periodic model-state saver, and the status server when enabled.
func (a *App) startCommon(ctx context.Context, g *errgroup.Group, p *pipeline, deps *Dependencies) {
	g.Go(func() error {
		defer p.feeder.Close()
		return p.feeder.Run(ctx)
	})

	if interval := a.cfg.Simulator.SaveInterval.Duration; interval > 0 {
		g.Go(func() error {
			return a.saveStateLoop(ctx, p.engine, deps.ModelCache, interval)
		})
	}

	if a.cfg.Server.Enabled {
		srv := server.NewServer(
			server.Config{Port: a.cfg.Server.Port},
			server.Handlers{
				Health: handler.NewHealthHandler(a.logger),
				Metrics: handler.NewMetricsHandler(
					a.cfg.Exchange.Name, a.cfg.Exchange.Symbol,
					deps.MetricsCache, deps.EstimateStore, a.logger,
				),
				Ledger:  handler.NewLedgerHandler(p.engine, a.logger),
				Execute: handler.NewExecuteHandler(p.engine, deps.SimTradeStore, a.logger),
			},
			a.logger,
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
}

// saveStateLoop persists the model state on every tick and once more on
// shutdown.
func (a *App) saveStateLoop(ctx context.Context, engine *simulator.Engine, cache domain.ModelStateCache, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := engine.SaveState(saveCtx, cache); err != nil {
				a.logger.Error("final model state save failed", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := engine.SaveState(ctx, cache); err != nil {
				a.logger.Error("model state save failed", "error", err)
			}
		}
	}
}

// MonitorMode streams the book, prints every estimate to stdout, and keeps
// the latest estimate in the cache. Nothing is persisted to the database.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	p := a.buildPipeline(ctx, deps)

	reporter := report.NewConsoleReporter(os.Stdout)
	p.feeder.AddSink(func(ctx context.Context, rec domain.EstimateRecord) {
		reporter.Report(rec)
	})
	p.feeder.AddSink(a.cacheSink(deps))

	a.startCommon(ctx, g, p, deps)
	return g.Wait()
}

// LiveMode is MonitorMode plus database persistence of every estimate.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode")

	g, ctx := errgroup.WithContext(ctx)
	p := a.buildPipeline(ctx, deps)

	p.feeder.AddSink(a.cacheSink(deps))
	p.feeder.AddSink(a.storeSink(deps))

	a.startCommon(ctx, g, p, deps)
	return g.Wait()
}

// FullMode is LiveMode plus console output and periodic archival to object
// storage when archiving is enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	p := a.buildPipeline(ctx, deps)

	reporter := report.NewConsoleReporter(os.Stdout)
	p.feeder.AddSink(func(ctx context.Context, rec domain.EstimateRecord) {
		reporter.Report(rec)
	})
	p.feeder.AddSink(a.cacheSink(deps))
	p.feeder.AddSink(a.storeSink(deps))

	if deps.Archiver != nil {
		p.feeder.AddSink(func(_ context.Context, rec domain.EstimateRecord) {
			deps.Archiver.Add(rec)
		})
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	a.startCommon(ctx, g, p, deps)
	return g.Wait()
}

// cacheSink keeps the latest estimate in the metrics cache for the status
// server.
func (a *App) cacheSink(deps *Dependencies) feed.EstimateSink {
	return func(ctx context.Context, rec domain.EstimateRecord) {
		if err := deps.MetricsCache.SetLatest(ctx, rec); err != nil {
			a.logger.Warn("cache latest estimate failed", "error", err)
		}
	}
}

// storeSink persists every estimate to the database.
func (a *App) storeSink(deps *Dependencies) feed.EstimateSink {
	return func(ctx context.Context, rec domain.EstimateRecord) {
		if err := deps.EstimateStore.Insert(ctx, rec); err != nil {
			a.logger.Error("persist estimate failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
