// Package pool implements the pool bounded context: constant-product
// venues settling against the shared ledger.
package pool

import (
	"context"
	"fmt"

	"github.com/fd1az/flashpool/business/pool/app"
	"github.com/fd1az/flashpool/business/pool/domain"
	poolDI "github.com/fd1az/flashpool/business/pool/di"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/di"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
	"github.com/fd1az/flashpool/internal/monolith"
)

// OperatorLabel names the account that owns every configured venue and
// receives the initial mint used to seed reserves.
const OperatorLabel = "operator"

// Module implements the pool bounded context.
type Module struct {
	// Instruments is optional, set by main when telemetry is enabled.
	Instruments *metrics.Instruments
}

// RegisterServices registers all pool services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, poolDI.PoolService, func(sr di.ServiceRegistry) *app.PoolService {
		log := sr.Get("logger").(logger.LoggerInterface)
		led := sr.Get("ledger").(*ledger.Ledger)
		return app.NewPoolService(log, led, m.Instruments)
	})

	return nil
}

// Startup builds the configured venues, mints their seed reserves to the
// operator, and deposits them as initial liquidity.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	led := mono.Ledger()
	registry := mono.AssetRegistry()
	svc := poolDI.GetPoolService(mono.Services())

	operator := ledger.NamedAccount(OperatorLabel)

	for _, vc := range cfg.Venues {
		base, ok := registry.GetBySymbolAndChain(vc.BaseSymbol, cfg.App.ChainID)
		if !ok {
			return fmt.Errorf("pool: unknown base asset %q on chain %d", vc.BaseSymbol, cfg.App.ChainID)
		}
		quote, ok := registry.GetBySymbolAndChain(vc.QuoteSymbol, cfg.App.ChainID)
		if !ok {
			return fmt.Errorf("pool: unknown quote asset %q on chain %d", vc.QuoteSymbol, cfg.App.ChainID)
		}

		account := ledger.NamedAccount("venue/" + vc.Name)

		p, err := domain.NewPool(vc.Name, account, operator, base, quote, vc.FeeNumerator, vc.FeeDenominator)
		if err != nil {
			return fmt.Errorf("pool: venue %q: %w", vc.Name, err)
		}
		svc.RegisterPool(p)

		baseAmt, err := asset.ParseString(base, vc.BaseReserve)
		if err != nil {
			return fmt.Errorf("pool: venue %q base reserve: %w", vc.Name, err)
		}
		quoteAmt, err := asset.ParseString(quote, vc.QuoteReserve)
		if err != nil {
			return fmt.Errorf("pool: venue %q quote reserve: %w", vc.Name, err)
		}

		if err := led.Mint(operator, base.ID(), baseAmt.Raw()); err != nil {
			return fmt.Errorf("pool: venue %q seed mint: %w", vc.Name, err)
		}
		if err := led.Mint(operator, quote.ID(), quoteAmt.Raw()); err != nil {
			return fmt.Errorf("pool: venue %q seed mint: %w", vc.Name, err)
		}

		if err := svc.AddLiquidity(ctx, vc.Name, operator, baseAmt, quoteAmt); err != nil {
			return fmt.Errorf("pool: venue %q seed liquidity: %w", vc.Name, err)
		}

		price, _ := p.SpotPrice()
		log.Info(ctx, "venue seeded",
			"venue", vc.Name,
			"pair", fmt.Sprintf("%s/%s", base.Symbol(), quote.Symbol()),
			"base_reserve", baseAmt.String(),
			"quote_reserve", quoteAmt.String(),
			"spot", price.StringFixed(6))
	}

	log.Info(ctx, "pool module started", "venues", len(cfg.Venues))
	return nil
}
