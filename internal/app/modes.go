package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dmelo/crossarb/internal/arbitrage"
	"github.com/dmelo/crossarb/internal/server"
	"github.com/dmelo/crossarb/internal/server/handler"
	"github.com/dmelo/crossarb/internal/server/ws"
	"github.com/dmelo/crossarb/internal/service"
)

// services bundles the domain services shared by the application modes.
type services struct {
	prices *service.PriceService
	arb    *service.ArbService
	trades *service.TradeService
	status *service.StatusService
}

// buildServices constructs the detector, executor, and services from the
// wired dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	detector := arbitrage.NewDetector(arbitrage.DetectorConfig{
		Threshold: decimal.NewFromFloat(a.cfg.Arbitrage.ProfitThreshold),
		Logger:    a.logger,
	})
	executor := arbitrage.NewExecutor(arbitrage.ExecutorConfig{
		Connectors: deps.Connectors,
		Logger:     a.logger,
	})

	return &services{
		prices: service.NewPriceService(deps.Connectors, deps.PriceCache, deps.SignalBus, a.logger),
		arb:    service.NewArbService(detector, deps.OpportunityCache, deps.SignalBus, deps.Notifier, a.logger),
		trades: service.NewTradeService(executor, deps.OpportunityCache, deps.Credentials, deps.SignalBus, deps.Notifier, a.logger),
		status: service.NewStatusService(deps.Connectors, deps.StatusCache, deps.SignalBus, a.logger),
	}
}

// MonitorMode polls prices and detects opportunities without serving the API.
// No orders are placed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.startDetectionLoop(ctx, g, svcs)
	a.startStatusCron(ctx, g, svcs)

	return g.Wait()
}

// ServerMode serves the HTTP + WebSocket API over cached state. Detection
// does not run; trades can still be executed via POST /api/trade against
// opportunities already in the cache.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.startStatusCron(ctx, g, svcs)
	a.startHTTPServer(ctx, g, deps, svcs)

	return g.Wait()
}

// FullMode runs detection and the HTTP server together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.startDetectionLoop(ctx, g, svcs)
	a.startStatusCron(ctx, g, svcs)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}

	return g.Wait()
}

// startDetectionLoop adds the poll-and-detect goroutine to the errgroup. Every
// tick it fetches quotes for each configured symbol concurrently across the
// exchanges and runs detection on the batch.
func (a *App) startDetectionLoop(ctx context.Context, g *errgroup.Group, svcs *services) {
	interval := a.cfg.Arbitrage.PollInterval.Duration
	symbols := a.cfg.Arbitrage.Symbols

	g.Go(func() error {
		a.logger.InfoContext(ctx, "detection loop started",
			slog.Duration("interval", interval),
			slog.Any("symbols", symbols),
		)

		runOnce := func() {
			for _, symbol := range symbols {
				quotes := svcs.prices.Poll(ctx, symbol)
				if len(quotes) < 2 {
					continue
				}
				svcs.arb.Process(ctx, quotes)
			}
		}

		runOnce()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runOnce()
			}
		}
	})
}

// startStatusCron schedules the exchange reachability probe on the configured
// cron expression. An empty or invalid expression disables the probe.
func (a *App) startStatusCron(ctx context.Context, g *errgroup.Group, svcs *services) {
	spec := a.cfg.Arbitrage.StatusCron
	if spec == "" {
		return
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		svcs.status.ProbeAll(probeCtx)
	})
	if err != nil {
		a.logger.WarnContext(ctx, "status probe disabled, invalid cron expression",
			slog.String("cron", spec),
			slog.String("error", err.Error()),
		)
		return
	}

	g.Go(func() error {
		c.Start()
		a.logger.InfoContext(ctx, "status probe scheduled", slog.String("cron", spec))

		// Probe once at startup so /api/status has data before the first tick.
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		svcs.status.ProbeAll(probeCtx)
		cancel()

		<-ctx.Done()
		stopCtx := c.Stop()
		<-stopCtx.Done()
		return ctx.Err()
	})
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// errgroup. The server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIToken:    a.cfg.Server.APIToken,
	}, server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Prices: handler.NewPriceHandler(svcs.prices, a.logger),
		Arb:    handler.NewArbHandler(svcs.arb, a.logger),
		Trades: handler.NewTradeHandler(svcs.trades, a.cfg.Arbitrage.TradeQuantity, a.logger),
		Status: handler.NewStatusHandler(a.cfg.Mode, svcs.status, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
