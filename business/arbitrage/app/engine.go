package app

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	poolapp "github.com/fd1az/flashpool/business/pool/app"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/internal/apm"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
	"github.com/fd1az/flashpool/internal/ratelimit"
)

// EngineConfig sets the engine's route, pacing, and breaker behavior.
type EngineConfig struct {
	RouteKind         domain.RouteKind
	Venues            []string // one for same-venue, two for cross-venue
	Borrow            *asset.Asset
	TradeSize         asset.Amount
	AttemptsPerMinute int
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
}

// Engine paces arbitrage attempts through a rate limiter and a circuit
// breaker. Reverted attempts count as failures; enough of them in a row
// opens the breaker and pauses trading for the cooldown.
type Engine struct {
	log         logger.LoggerInterface
	pools       *poolapp.PoolService
	executor    *Executor
	reporter    Reporter
	instruments *metrics.Instruments
	tracer      apm.Tracer
	limiter     *ratelimit.Limiter
	breaker     *gobreaker.CircuitBreaker[domain.Result]
	cfg         EngineConfig
}

// NewEngine wires an engine. instruments may be nil.
func NewEngine(log logger.LoggerInterface, pools *poolapp.PoolService, executor *Executor, reporter Reporter, instruments *metrics.Instruments, cfg EngineConfig) *Engine {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[domain.Result](gobreaker.Settings{
		Name:    "arbitrage",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	attempts := cfg.AttemptsPerMinute
	if attempts <= 0 {
		attempts = 60
	}

	return &Engine{
		log:         log,
		pools:       pools,
		executor:    executor,
		reporter:    reporter,
		instruments: instruments,
		tracer:      apm.NewTracer("arbitrage-engine"),
		limiter:     ratelimit.New(attempts),
		breaker:     breaker,
		cfg:         cfg,
	}
}

// Run attempts round trips until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info(ctx, "engine started",
		"route", e.cfg.RouteKind.String(),
		"trade_size", e.cfg.TradeSize.String(),
		"attempts_per_minute", e.cfg.AttemptsPerMinute)

	for {
		if err := e.limiter.Wait(ctx); err != nil {
			e.log.Info(ctx, "engine stopped", "reason", ctx.Err())
			return ctx.Err()
		}
		e.Attempt(ctx)
	}
}

// Attempt runs one paced round trip and reports its settlement.
func (e *Engine) Attempt(ctx context.Context) {
	ctx, span := e.tracer.StartSpanFromContext(ctx, "arbitrage.attempt")
	defer span.End()

	e.publishSpots()

	route, err := e.PickRoute(ctx)
	if err != nil {
		span.NoticeError(err)
		e.log.Error(ctx, "route selection failed", "error", err)
		return
	}

	res, err := e.breaker.Execute(func() (domain.Result, error) {
		return e.executor.Execute(ctx, route, e.cfg.TradeSize)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		e.instruments.RecordAttempt(ctx, "circuit_open")
		e.log.Warn(ctx, "attempt skipped, circuit open", "route", route.String())
		return
	case err != nil:
		span.NoticeError(err)
		e.instruments.RecordAttempt(ctx, "reverted")
		// res carries the reverted settlement.
		e.logSettlement(ctx, &res)
		e.reporter.Report(&res)
		return
	}

	e.instruments.RecordAttempt(ctx, res.Outcome.String())
	if res.Outcome != domain.OutcomeReverted {
		e.instruments.RecordProfit(ctx, res.Borrowed.Asset().Symbol(),
			res.ProfitDecimal().InexactFloat64())
	}
	e.logSettlement(ctx, &res)
	e.reporter.Report(&res)
}

func (e *Engine) logSettlement(ctx context.Context, res *domain.Result) {
	e.log.Info(ctx, "attempt settled",
		"asset", res.Borrowed.Asset().Symbol(),
		"amount_borrowed", res.Borrowed.String(),
		"final_balance", res.Final.String(),
		"profit", res.Profit.String(),
		"is_profitable", res.Outcome == domain.OutcomeProfit)
}

// PickRoute chooses the trip direction from current spot prices: sell
// the borrowed asset where it is dearest, buy it back where cheapest,
// and borrow from the buy venue.
func (e *Engine) PickRoute(ctx context.Context) (domain.Route, error) {
	if len(e.cfg.Venues) == 0 {
		return domain.Route{}, errors.New("no venues configured")
	}
	if e.cfg.RouteKind == domain.SameVenue || len(e.cfg.Venues) < 2 {
		return domain.NewSameVenueRoute(e.cfg.Borrow, e.cfg.Venues[0]), nil
	}

	a, b := e.cfg.Venues[0], e.cfg.Venues[1]

	spotA, err := e.pools.SpotPrice(ctx, a)
	if err != nil {
		return domain.Route{}, err
	}
	spotB, err := e.pools.SpotPrice(ctx, b)
	if err != nil {
		return domain.Route{}, err
	}

	if spotB.GreaterThan(spotA) {
		return domain.NewCrossVenueRoute(e.cfg.Borrow, b, a), nil
	}
	return domain.NewCrossVenueRoute(e.cfg.Borrow, a, b), nil
}

func (e *Engine) publishSpots() {
	for _, venue := range e.cfg.Venues {
		if spot, err := e.pools.SpotPrice(context.Background(), venue); err == nil {
			e.reporter.UpdateSpot(venue, spot)
		}
	}
}
