package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
)

// captureReporter records everything reported to it.
type captureReporter struct {
	mu      sync.Mutex
	results []domain.Result
	spots   map[string]decimal.Decimal
}

func newCaptureReporter() *captureReporter {
	return &captureReporter{spots: make(map[string]decimal.Decimal)}
}

func (r *captureReporter) Start(ctx context.Context) error { return nil }
func (r *captureReporter) Stop() error                     { return nil }

func (r *captureReporter) Report(res *domain.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, *res)
}

func (r *captureReporter) UpdateSpot(venue string, price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spots[venue] = price
}

func newTestEngine(t *testing.T, venues []venueSpec, routeKind domain.RouteKind, tradeSize int64) (*Engine, *captureReporter, *ledger.Ledger) {
	t.Helper()

	executor, pools, led := newTestStack(t, venues, 9, 100)
	reporter := newCaptureReporter()

	names := make([]string, len(venues))
	for i, v := range venues {
		names[i] = v.name
	}

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	engine := NewEngine(log, pools, executor, reporter, nil, EngineConfig{
		RouteKind:         routeKind,
		Venues:            names,
		Borrow:            asset.DAI,
		TradeSize:         asset.NewAmountFromInt64(asset.DAI, tradeSize),
		AttemptsPerMinute: 6000,
		BreakerFailures:   3,
		BreakerCooldown:   time.Minute,
	})
	return engine, reporter, led
}

func TestAttemptReportsProfit(t *testing.T) {
	engine, reporter, _ := newTestEngine(t, []venueSpec{
		{"alpha", 1000000, 1000000},
		{"beta", 1000000, 1050000},
	}, domain.CrossVenue, 10000)

	engine.Attempt(context.Background())

	if len(reporter.results) != 1 {
		t.Fatalf("reported %d results, want 1", len(reporter.results))
	}
	res := reporter.results[0]
	if res.Outcome != domain.OutcomeProfit {
		t.Errorf("outcome = %s, want profit", res.Outcome)
	}
	if len(reporter.spots) != 2 {
		t.Errorf("spots for %d venues, want 2", len(reporter.spots))
	}
}

func TestPickRouteSellsOnDearerVenue(t *testing.T) {
	engine, _, _ := newTestEngine(t, []venueSpec{
		{"alpha", 1000000, 1000000},
		{"beta", 1000000, 1050000},
	}, domain.CrossVenue, 10000)

	route, err := engine.PickRoute(context.Background())
	if err != nil {
		t.Fatalf("PickRoute: %v", err)
	}
	if route.SellVenue != "beta" || route.BuyVenue != "alpha" {
		t.Errorf("route = sell %s buy %s, want sell beta buy alpha",
			route.SellVenue, route.BuyVenue)
	}
	if route.LendVenue != "alpha" {
		t.Errorf("lend venue = %s, want alpha", route.LendVenue)
	}
}

func TestPickRouteRequiresVenues(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	engine := NewEngine(log, nil, nil, newCaptureReporter(), nil, EngineConfig{
		RouteKind: domain.CrossVenue,
		Borrow:    asset.DAI,
	})

	if _, err := engine.PickRoute(context.Background()); err == nil {
		t.Fatal("PickRoute with no venues should fail")
	}
}

func TestBreakerOpensAfterConsecutiveReverts(t *testing.T) {
	// Same-venue trips with no buffer always revert. Three consecutive
	// failures trip the breaker, after which attempts are skipped and
	// nothing further is reported.
	engine, reporter, _ := newTestEngine(t, []venueSpec{
		{"alpha", 1000000, 1000000},
	}, domain.SameVenue, 10000)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		engine.Attempt(ctx)
	}

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.results) != 3 {
		t.Fatalf("reported %d results, want 3 before breaker opened", len(reporter.results))
	}
	for i, res := range reporter.results {
		if res.Outcome != domain.OutcomeReverted {
			t.Errorf("result %d outcome = %s, want reverted", i, res.Outcome)
		}
	}
}
