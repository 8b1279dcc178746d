// Package lending implements the flash loan bounded context.
package lending

import (
	"context"

	poolDI "github.com/fd1az/flashpool/business/pool/di"

	"github.com/fd1az/flashpool/business/lending/app"
	lendingDI "github.com/fd1az/flashpool/business/lending/di"
	"github.com/fd1az/flashpool/internal/config"
	"github.com/fd1az/flashpool/internal/di"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
	"github.com/fd1az/flashpool/internal/monolith"
)

// Module implements the lending bounded context.
type Module struct {
	// Instruments is optional, set by main when telemetry is enabled.
	Instruments *metrics.Instruments
}

// RegisterServices registers all lending services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, lendingDI.LoanController, func(sr di.ServiceRegistry) *app.FlashLoanController {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		led := sr.Get("ledger").(*ledger.Ledger)
		pools := poolDI.GetPoolService(sr)

		return app.NewFlashLoanController(log, led, pools, cfg.Lending.LoanFeeBps, m.Instruments)
	})

	return nil
}

// Startup initializes the lending module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	// Force construction so wiring errors surface at startup.
	lendingDI.GetLoanController(mono.Services())

	log.Info(ctx, "lending module started", "loan_fee_bps", cfg.Lending.LoanFeeBps)
	return nil
}
