// Package arbitrage implements the arbitrage bounded context: the
// flash-loan-funded executor and the paced engine driving it.
package arbitrage

import (
	"context"
	"fmt"

	lendingDI "github.com/fd1az/flashpool/business/lending/di"
	poolDI "github.com/fd1az/flashpool/business/pool/di"

	"github.com/fd1az/flashpool/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/flashpool/business/arbitrage/di"
	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/business/arbitrage/infra"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/config"
	"github.com/fd1az/flashpool/internal/di"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
	"github.com/fd1az/flashpool/internal/monolith"
)

// ExecutorLabel names the executor's ledger account.
const ExecutorLabel = "executor"

// Module implements the arbitrage bounded context.
type Module struct {
	// Instruments is optional, set by main when telemetry is enabled.
	Instruments *metrics.Instruments

	// Reporter overrides the default console reporter, used by main to
	// plug the TUI in. A configured feed server is composed either way.
	Reporter app.Reporter
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		base := m.Reporter
		if base == nil {
			base = infra.NewConsoleReporter()
		}

		if cfg.Feed.Enabled {
			return infra.NewMultiReporter(base, infra.NewFeedServer(log, cfg.Feed.Port))
		}
		return base
	})

	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		led := sr.Get("ledger").(*ledger.Ledger)
		pools := poolDI.GetPoolService(sr)
		loans := lendingDI.GetLoanController(sr)

		return app.NewExecutor(log, ledger.NamedAccount(ExecutorLabel), led, pools, loans,
			cfg.Arbitrage.ProfitThresholdBps)
	})

	di.RegisterToken(c, arbitrageDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		pools := poolDI.GetPoolService(sr)
		executor := arbitrageDI.GetExecutor(sr)
		reporter := arbitrageDI.GetReporter(sr)

		borrow, ok := registry.GetBySymbolAndChain(cfg.Arbitrage.BorrowSymbol, cfg.App.ChainID)
		if !ok {
			panic(fmt.Sprintf("arbitrage: unknown borrow asset %q", cfg.Arbitrage.BorrowSymbol))
		}

		tradeSize, err := asset.ParseString(borrow, cfg.Arbitrage.TradeSize)
		if err != nil {
			panic(fmt.Sprintf("arbitrage: trade size: %v", err))
		}

		routeKind := domain.CrossVenue
		if cfg.Arbitrage.Route == "same" {
			routeKind = domain.SameVenue
		}

		venues := make([]string, 0, len(cfg.Venues))
		for _, v := range cfg.Venues {
			venues = append(venues, v.Name)
		}

		return app.NewEngine(log, pools, executor, reporter, m.Instruments, app.EngineConfig{
			RouteKind:         routeKind,
			Venues:            venues,
			Borrow:            borrow,
			TradeSize:         tradeSize,
			AttemptsPerMinute: cfg.Arbitrage.AttemptsPerMinute,
			BreakerFailures:   cfg.Arbitrage.BreakerFailures,
			BreakerCooldown:   cfg.Arbitrage.BreakerCooldown,
		})
	})

	return nil
}

// Startup starts the reporter and launches the engine loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	reporter := arbitrageDI.GetReporter(mono.Services())
	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("arbitrage: reporter: %w", err)
	}

	engine := arbitrageDI.GetEngine(mono.Services())
	go func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "engine exited", "error", err)
		}
	}()

	log.Info(ctx, "arbitrage module started")
	return nil
}
