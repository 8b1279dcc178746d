package app

import (
	"context"
	"io"
	"testing"

	lendingapp "github.com/fd1az/flashpool/business/lending/app"
	lendingdomain "github.com/fd1az/flashpool/business/lending/domain"
	poolapp "github.com/fd1az/flashpool/business/pool/app"
	pooldomain "github.com/fd1az/flashpool/business/pool/domain"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/internal/apperror"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
)

var (
	operator = ledger.NamedAccount("operator")
	execAcct = ledger.NamedAccount("executor")
)

type venueSpec struct {
	name         string
	baseReserve  int64
	quoteReserve int64
}

func newTestStack(t *testing.T, venues []venueSpec, loanFeeBps, thresholdBps int64) (*Executor, *poolapp.PoolService, *ledger.Ledger) {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	led := ledger.New()
	pools := poolapp.NewPoolService(log, led, nil)

	ctx := context.Background()
	for _, vs := range venues {
		p, err := pooldomain.NewPool(vs.name,
			ledger.NamedAccount("venue/"+vs.name), operator,
			asset.DAI, asset.USDC, 3, 1000)
		if err != nil {
			t.Fatalf("NewPool %s: %v", vs.name, err)
		}
		pools.RegisterPool(p)

		baseAmt := asset.NewAmountFromInt64(asset.DAI, vs.baseReserve)
		quoteAmt := asset.NewAmountFromInt64(asset.USDC, vs.quoteReserve)
		led.Mint(operator, asset.DAI.ID(), baseAmt.Raw())
		led.Mint(operator, asset.USDC.ID(), quoteAmt.Raw())
		if err := pools.AddLiquidity(ctx, vs.name, operator, baseAmt, quoteAmt); err != nil {
			t.Fatalf("AddLiquidity %s: %v", vs.name, err)
		}
	}

	controller := lendingapp.NewFlashLoanController(log, led, pools, loanFeeBps, nil)
	executor := NewExecutor(log, execAcct, led, pools, controller, thresholdBps)
	return executor, pools, led
}

func TestExecuteCrossVenueProfit(t *testing.T) {
	// Beta quotes DAI five percent above alpha, a 10000 DAI trip nets
	// 218 DAI after both pool fees and the 9 bps loan fee.
	executor, pools, led := newTestStack(t, []venueSpec{
		{"alpha", 1000000, 1000000},
		{"beta", 1000000, 1050000},
	}, 9, 100)

	route := domain.NewCrossVenueRoute(asset.DAI, "beta", "alpha")
	res, err := executor.Execute(context.Background(),
		route, asset.NewAmountFromInt64(asset.DAI, 10000))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Outcome != domain.OutcomeProfit {
		t.Fatalf("outcome = %s, want profit", res.Outcome)
	}
	if res.Final.Raw().Int64() != 10227 {
		t.Errorf("final = %d, want 10227", res.Final.Raw().Int64())
	}
	if res.Fee.Raw().Int64() != 9 {
		t.Errorf("loan fee = %d, want 9", res.Fee.Raw().Int64())
	}
	if res.Profit.Int64() != 218 {
		t.Errorf("profit = %d, want 218", res.Profit.Int64())
	}

	// The profit is the executor's to keep.
	if got := led.BalanceOf(execAcct, asset.DAI.ID()); got.Int64() != 218 {
		t.Errorf("executor balance = %d, want 218", got.Int64())
	}

	// The lender was traded against mid-loan, yet its account mirrors
	// its reserves again once the fee accrued.
	p, _ := pools.Pool("alpha")
	reserve, _ := p.Reserve(asset.DAI.ID())
	if got := led.BalanceOf(p.Account(), asset.DAI.ID()); got.Cmp(reserve) != 0 {
		t.Errorf("lender balance = %s, reserve = %s, want equal", got, reserve)
	}
}

func TestExecuteRevertRestoresEveryVenue(t *testing.T) {
	// A trip routed against the price gap (sell cheap, buy dear) loses
	// on both legs and cannot repay. The rollback must also undo leg 1,
	// which mutated a venue other than the lender.
	executor, pools, led := newTestStack(t, []venueSpec{
		{"alpha", 1000000, 1000000},
		{"beta", 1000000, 1050000},
	}, 9, 100)

	route := domain.NewCrossVenueRoute(asset.DAI, "alpha", "beta")
	_, err := executor.Execute(context.Background(),
		route, asset.NewAmountFromInt64(asset.DAI, 10000))
	if apperror.GetCode(err) != apperror.CodeLoanNotRepaid {
		t.Fatalf("code = %v, want %v", apperror.GetCode(err), apperror.CodeLoanNotRepaid)
	}

	for _, want := range []struct {
		venue string
		base  int64
		quote int64
	}{
		{"alpha", 1000000, 1000000},
		{"beta", 1000000, 1050000},
	} {
		p, _ := pools.Pool(want.venue)
		baseRes, _ := p.Reserve(asset.DAI.ID())
		quoteRes, _ := p.Reserve(asset.USDC.ID())
		if baseRes.Int64() != want.base || quoteRes.Int64() != want.quote {
			t.Errorf("%s reserves = %d/%d, want %d/%d",
				want.venue, baseRes.Int64(), quoteRes.Int64(), want.base, want.quote)
		}
		if got := led.BalanceOf(p.Account(), asset.DAI.ID()); got.Int64() != want.base {
			t.Errorf("%s venue balance = %d, want %d", want.venue, got.Int64(), want.base)
		}
	}
	if got := led.BalanceOf(execAcct, asset.DAI.ID()); got.Sign() != 0 {
		t.Errorf("executor balance = %s, want 0", got)
	}
}

func TestExecuteSameVenueRepaidUnprofitable(t *testing.T) {
	// A same-venue round trip pays the pool fee twice and always loses,
	// but an executor holding its own buffer can still repay. That is a
	// settled unprofitable attempt, not an error.
	executor, _, led := newTestStack(t, []venueSpec{
		{"alpha", 1000000, 1000000},
	}, 9, 100)

	led.Mint(execAcct, asset.DAI.ID(), asset.NewAmountFromInt64(asset.DAI, 1000).Raw())

	route := domain.NewSameVenueRoute(asset.DAI, "alpha")
	res, err := executor.Execute(context.Background(),
		route, asset.NewAmountFromInt64(asset.DAI, 10000))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Outcome != domain.OutcomeUnprofitable {
		t.Fatalf("outcome = %s, want unprofitable", res.Outcome)
	}
	if res.Final.Raw().Int64() != 9939 {
		t.Errorf("final = %d, want 9939", res.Final.Raw().Int64())
	}
	if res.Profit.Int64() != -70 {
		t.Errorf("profit = %d, want -70", res.Profit.Int64())
	}

	// Buffer covered the 70 unit loss.
	if got := led.BalanceOf(execAcct, asset.DAI.ID()); got.Int64() != 930 {
		t.Errorf("executor balance = %d, want 930", got.Int64())
	}
}

func TestExecuteRevertsWhenUnableToRepay(t *testing.T) {
	// Without a buffer the same losing trip cannot repay, so the
	// controller unwinds everything.
	executor, pools, led := newTestStack(t, []venueSpec{
		{"alpha", 1000000, 1000000},
	}, 9, 100)

	route := domain.NewSameVenueRoute(asset.DAI, "alpha")
	res, err := executor.Execute(context.Background(),
		route, asset.NewAmountFromInt64(asset.DAI, 10000))

	if apperror.GetCode(err) != apperror.CodeLoanNotRepaid {
		t.Fatalf("code = %v, want %v", apperror.GetCode(err), apperror.CodeLoanNotRepaid)
	}
	if res.Outcome != domain.OutcomeReverted {
		t.Errorf("outcome = %s, want reverted", res.Outcome)
	}

	// Nothing moved: executor empty, venue back to its seeded state.
	if got := led.BalanceOf(execAcct, asset.DAI.ID()); got.Sign() != 0 {
		t.Errorf("executor balance = %s, want 0", got)
	}
	p, _ := pools.Pool("alpha")
	baseRes, _ := p.Reserve(asset.DAI.ID())
	quoteRes, _ := p.Reserve(asset.USDC.ID())
	if baseRes.Int64() != 1000000 || quoteRes.Int64() != 1000000 {
		t.Errorf("reserves = %d/%d, want 1000000/1000000",
			baseRes.Int64(), quoteRes.Int64())
	}
	if got := led.BalanceOf(p.Account(), asset.DAI.ID()); got.Int64() != 1000000 {
		t.Errorf("venue balance = %d, want 1000000", got.Int64())
	}
}

func TestOnLoanReceivedRejectsUnexpectedCaller(t *testing.T) {
	executor, pools, _ := newTestStack(t, []venueSpec{
		{"alpha", 1000000, 1000000},
	}, 9, 100)

	p, _ := pools.Pool("alpha")

	// No Execute in flight: any callback is unauthorized.
	loan := lendingdomain.Loan{
		Venue:     "alpha",
		Principal: asset.NewAmountFromInt64(asset.DAI, 100),
		Fee:       asset.Zero(asset.DAI),
		Borrower:  execAcct,
		Lender:    p.Account(),
	}
	err := executor.OnLoanReceived(context.Background(), loan)
	if apperror.GetCode(err) != apperror.CodeUnauthorizedCallback {
		t.Errorf("code = %v, want %v", apperror.GetCode(err), apperror.CodeUnauthorizedCallback)
	}
}

func TestExecuteRejectsMismatchedTradeAsset(t *testing.T) {
	executor, _, _ := newTestStack(t, []venueSpec{
		{"alpha", 1000000, 1000000},
	}, 9, 100)

	route := domain.NewSameVenueRoute(asset.DAI, "alpha")
	_, err := executor.Execute(context.Background(),
		route, asset.NewAmountFromInt64(asset.USDC, 10000))
	if apperror.GetCode(err) != apperror.CodeInvalidInput {
		t.Errorf("code = %v, want %v", apperror.GetCode(err), apperror.CodeInvalidInput)
	}
}
