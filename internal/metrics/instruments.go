package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments bundles the engine's domain counters and histograms.
// A nil *Instruments is a no-op recorder, so callers never need to
// guard on telemetry being enabled.
type Instruments struct {
	swaps         metric.Int64Counter
	swapVolume    metric.Float64Counter
	loansIssued   metric.Int64Counter
	loansRepaid   metric.Int64Counter
	loansReverted metric.Int64Counter
	attempts      metric.Int64Counter
	profit        metric.Float64Histogram
}

// NewInstruments registers the engine instruments on the global meter.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter("flashpool")

	swaps, err := meter.Int64Counter("pool.swaps",
		metric.WithDescription("Number of executed swaps"))
	if err != nil {
		return nil, err
	}

	swapVolume, err := meter.Float64Counter("pool.swap_volume",
		metric.WithDescription("Gross swap input volume in human units"))
	if err != nil {
		return nil, err
	}

	loansIssued, err := meter.Int64Counter("lending.loans_issued",
		metric.WithDescription("Flash loans issued"))
	if err != nil {
		return nil, err
	}

	loansRepaid, err := meter.Int64Counter("lending.loans_repaid",
		metric.WithDescription("Flash loans repaid with fee"))
	if err != nil {
		return nil, err
	}

	loansReverted, err := meter.Int64Counter("lending.loans_reverted",
		metric.WithDescription("Flash loans rolled back"))
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter("arbitrage.attempts",
		metric.WithDescription("Arbitrage attempts by outcome"))
	if err != nil {
		return nil, err
	}

	profit, err := meter.Float64Histogram("arbitrage.profit",
		metric.WithDescription("Net profit per settled attempt in human units"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		swaps:         swaps,
		swapVolume:    swapVolume,
		loansIssued:   loansIssued,
		loansRepaid:   loansRepaid,
		loansReverted: loansReverted,
		attempts:      attempts,
		profit:        profit,
	}, nil
}

// RecordSwap records one swap and its gross input volume on a venue.
func (i *Instruments) RecordSwap(ctx context.Context, venue, symbol string, volume float64) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("venue", venue),
		attribute.String("asset", symbol),
	)
	i.swaps.Add(ctx, 1, attrs)
	i.swapVolume.Add(ctx, volume, attrs)
}

// RecordLoanIssued records a flash loan issuance.
func (i *Instruments) RecordLoanIssued(ctx context.Context, symbol string) {
	if i == nil {
		return
	}
	i.loansIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("asset", symbol)))
}

// RecordLoanRepaid records a successful repayment.
func (i *Instruments) RecordLoanRepaid(ctx context.Context, symbol string) {
	if i == nil {
		return
	}
	i.loansRepaid.Add(ctx, 1, metric.WithAttributes(attribute.String("asset", symbol)))
}

// RecordLoanReverted records a rolled back loan.
func (i *Instruments) RecordLoanReverted(ctx context.Context, symbol string) {
	if i == nil {
		return
	}
	i.loansReverted.Add(ctx, 1, metric.WithAttributes(attribute.String("asset", symbol)))
}

// RecordAttempt records one arbitrage attempt with its outcome label.
func (i *Instruments) RecordAttempt(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordProfit records the net profit of a settled attempt.
func (i *Instruments) RecordProfit(ctx context.Context, symbol string, profit float64) {
	if i == nil {
		return
	}
	i.profit.Record(ctx, profit, metric.WithAttributes(attribute.String("asset", symbol)))
}
