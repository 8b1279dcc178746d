package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/fd1az/flashpool/business/pool/domain"
	"github.com/fd1az/flashpool/internal/apperror"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
)

var (
	operator = ledger.NamedAccount("operator")
	trader   = ledger.NamedAccount("trader")
)

func newTestService(t *testing.T) (*PoolService, *ledger.Ledger, *domain.Pool) {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	led := ledger.New()
	svc := NewPoolService(log, led, nil)

	p, err := domain.NewPool("alpha",
		ledger.NamedAccount("venue/alpha"), operator,
		asset.DAI, asset.USDC, 3, 1000)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	svc.RegisterPool(p)

	baseAmt := asset.NewAmountFromInt64(asset.DAI, 1000000)
	quoteAmt := asset.NewAmountFromInt64(asset.USDC, 1000000)

	if err := led.Mint(operator, asset.DAI.ID(), baseAmt.Raw()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := led.Mint(operator, asset.USDC.ID(), quoteAmt.Raw()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := svc.AddLiquidity(context.Background(), "alpha", operator, baseAmt, quoteAmt); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	return svc, led, p
}

func TestAddLiquidityOwnerGate(t *testing.T) {
	svc, led, _ := newTestService(t)
	ctx := context.Background()

	baseAmt := asset.NewAmountFromInt64(asset.DAI, 100)
	quoteAmt := asset.NewAmountFromInt64(asset.USDC, 100)
	led.Mint(trader, asset.DAI.ID(), baseAmt.Raw())
	led.Mint(trader, asset.USDC.ID(), quoteAmt.Raw())

	err := svc.AddLiquidity(ctx, "alpha", trader, baseAmt, quoteAmt)
	if apperror.GetCode(err) != apperror.CodeUnauthorizedProvider {
		t.Fatalf("code = %v, want %v", apperror.GetCode(err), apperror.CodeUnauthorizedProvider)
	}

	// Balances untouched.
	if got := led.BalanceOf(trader, asset.DAI.ID()); got.Int64() != 100 {
		t.Errorf("trader DAI = %d, want 100", got.Int64())
	}
}

func TestSwapSettlesOnLedger(t *testing.T) {
	svc, led, p := newTestService(t)
	ctx := context.Background()

	in := asset.NewAmountFromInt64(asset.DAI, 10000)
	led.Mint(trader, asset.DAI.ID(), in.Raw())

	out, err := svc.Swap(ctx, "alpha", trader, in)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if out.Raw().Int64() != 9871 {
		t.Errorf("out = %d, want 9871", out.Raw().Int64())
	}

	// Trader paid the input and holds the output.
	if got := led.BalanceOf(trader, asset.DAI.ID()); got.Sign() != 0 {
		t.Errorf("trader DAI = %s, want 0", got)
	}
	if got := led.BalanceOf(trader, asset.USDC.ID()); got.Int64() != 9871 {
		t.Errorf("trader USDC = %d, want 9871", got.Int64())
	}

	// Venue account mirrors its reserves.
	baseRes, _ := p.Reserve(asset.DAI.ID())
	if got := led.BalanceOf(p.Account(), asset.DAI.ID()); got.Cmp(baseRes) != 0 {
		t.Errorf("venue DAI balance %s != reserve %s", got, baseRes)
	}
	quoteRes, _ := p.Reserve(asset.USDC.ID())
	if got := led.BalanceOf(p.Account(), asset.USDC.ID()); got.Cmp(quoteRes) != 0 {
		t.Errorf("venue USDC balance %s != reserve %s", got, quoteRes)
	}
}

func TestSwapRejections(t *testing.T) {
	tests := []struct {
		name     string
		venue    string
		in       asset.Amount
		mint     int64
		wantCode apperror.Code
	}{
		{
			name:     "unknown venue",
			venue:    "missing",
			in:       asset.NewAmountFromInt64(asset.DAI, 100),
			mint:     100,
			wantCode: apperror.CodeNotFound,
		},
		{
			name:     "trader has no balance",
			venue:    "alpha",
			in:       asset.NewAmountFromInt64(asset.DAI, 100),
			mint:     0,
			wantCode: apperror.CodeInsufficientBalance,
		},
		{
			name:     "asset outside the pair",
			venue:    "alpha",
			in:       asset.NewAmountFromInt64(asset.WETH, 100),
			mint:     100,
			wantCode: apperror.CodeUnsupportedPair,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, led, p := newTestService(t)
			ctx := context.Background()

			if tt.mint > 0 {
				led.Mint(trader, tt.in.Asset().ID(), big.NewInt(tt.mint))
			}

			before := p.K()
			_, err := svc.Swap(ctx, tt.venue, trader, tt.in)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperror.GetCode(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", apperror.GetCode(err), tt.wantCode)
			}
			if p.K().Cmp(before) != 0 {
				t.Error("failed swap mutated reserves")
			}
			// Input never left the trader.
			if tt.mint > 0 {
				if got := led.BalanceOf(trader, tt.in.Asset().ID()); got.Int64() != tt.mint {
					t.Errorf("trader balance = %d, want %d", got.Int64(), tt.mint)
				}
			}
		})
	}
}

func TestQuoteDoesNotSettle(t *testing.T) {
	svc, led, p := newTestService(t)
	ctx := context.Background()

	before := p.K()
	out, err := svc.Quote(ctx, "alpha", asset.NewAmountFromInt64(asset.DAI, 10000))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if out.Raw().Int64() != 9871 {
		t.Errorf("out = %d, want 9871", out.Raw().Int64())
	}
	if p.K().Cmp(before) != 0 {
		t.Error("quote mutated reserves")
	}
	if got := led.BalanceOf(trader, asset.USDC.ID()); got.Sign() != 0 {
		t.Error("quote moved ledger balances")
	}
}

func TestSpotPriceService(t *testing.T) {
	svc, _, _ := newTestService(t)

	price, err := svc.SpotPrice(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("SpotPrice: %v", err)
	}
	// Raw reserves are equal but decimals differ, the quote is in human units.
	if price.IsZero() {
		t.Error("spot price is zero")
	}

	_, err = svc.SpotPrice(context.Background(), "missing")
	if !errors.Is(err, apperror.New(apperror.CodeNotFound)) {
		t.Errorf("code = %v, want %v", apperror.GetCode(err), apperror.CodeNotFound)
	}
}
