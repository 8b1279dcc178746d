package domain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
)

func newTestPool(t testing.TB, feeNum, feeDen int64, baseReserve, quoteReserve int64) *Pool {
	t.Helper()

	p, err := NewPool("test",
		ledger.NamedAccount("venue/test"),
		ledger.NamedAccount("operator"),
		asset.DAI, asset.USDC, feeNum, feeDen)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	if baseReserve > 0 && quoteReserve > 0 {
		err = p.AddReserves(
			asset.NewAmountFromInt64(asset.DAI, baseReserve),
			asset.NewAmountFromInt64(asset.USDC, quoteReserve),
		)
		if err != nil {
			t.Fatalf("AddReserves: %v", err)
		}
	}
	return p
}

func TestNewPoolRejects(t *testing.T) {
	account := ledger.NamedAccount("venue/test")
	owner := ledger.NamedAccount("operator")

	tests := []struct {
		name           string
		base, quote    *asset.Asset
		feeNum, feeDen int64
	}{
		{"same asset both sides", asset.DAI, asset.DAI, 3, 1000},
		{"nil base", nil, asset.USDC, 3, 1000},
		{"fee numerator equals denominator", asset.DAI, asset.USDC, 1000, 1000},
		{"negative fee", asset.DAI, asset.USDC, -1, 1000},
		{"zero denominator", asset.DAI, asset.USDC, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPool("bad", account, owner, tt.base, tt.quote, tt.feeNum, tt.feeDen); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestQuoteSwapExactOutput(t *testing.T) {
	tests := []struct {
		name           string
		feeNum, feeDen int64
		reserveIn      int64
		reserveOut     int64
		in             int64
		wantOut        int64
		wantFee        int64
	}{
		{
			name:   "uniswap reference vector",
			feeNum: 3, feeDen: 1000,
			reserveIn: 10000, reserveOut: 10000,
			in:      1000,
			wantOut: 906, // 997*10000/10997
			wantFee: 3,
		},
		{
			name:   "deep pool small trade",
			feeNum: 3, feeDen: 1000,
			reserveIn: 1000000, reserveOut: 1000000,
			in:      10000,
			wantOut: 9871, // 9970*1000000/1009970
			wantFee: 30,
		},
		{
			name:   "zero fee",
			feeNum: 0, feeDen: 1000,
			reserveIn: 10000, reserveOut: 10000,
			in:      1000,
			wantOut: 909, // 1000*10000/11000
			wantFee: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPool(t, tt.feeNum, tt.feeDen, tt.reserveIn, tt.reserveOut)

			q, err := p.QuoteSwap(asset.NewAmountFromInt64(asset.DAI, tt.in))
			if err != nil {
				t.Fatalf("QuoteSwap: %v", err)
			}

			if got := q.Out.Raw().Int64(); got != tt.wantOut {
				t.Errorf("out = %d, want %d", got, tt.wantOut)
			}
			if got := q.FeePortion.Raw().Int64(); got != tt.wantFee {
				t.Errorf("fee = %d, want %d", got, tt.wantFee)
			}
			if q.Out.Asset().Symbol() != "USDC" {
				t.Errorf("out asset = %s, want USDC", q.Out.Asset().Symbol())
			}
		})
	}
}

func TestQuoteSwapRejects(t *testing.T) {
	tests := []struct {
		name    string
		pool    func(t *testing.T) *Pool
		in      asset.Amount
		wantErr error
	}{
		{
			name:    "zero input",
			pool:    func(t *testing.T) *Pool { return newTestPool(t, 3, 1000, 10000, 10000) },
			in:      asset.Zero(asset.DAI),
			wantErr: ErrZeroAmount,
		},
		{
			name:    "asset outside the pair",
			pool:    func(t *testing.T) *Pool { return newTestPool(t, 3, 1000, 10000, 10000) },
			in:      asset.NewAmountFromInt64(asset.WETH, 100),
			wantErr: ErrUnsupportedAsset,
		},
		{
			name:    "unseeded reserves",
			pool:    func(t *testing.T) *Pool { return newTestPool(t, 3, 1000, 0, 0) },
			in:      asset.NewAmountFromInt64(asset.DAI, 100),
			wantErr: ErrEmptyReserves,
		},
		{
			name: "fee floors input to nothing",
			pool: func(t *testing.T) *Pool { return newTestPool(t, 3, 1000, 1000, 1000) },
			// 1 * 997 / 1000 floors to 0 after the fee
			in:      asset.NewAmountFromInt64(asset.DAI, 1),
			wantErr: ErrInsufficientLiquidity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.pool(t)
			before := p.K()

			_, err := p.QuoteSwap(tt.in)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if p.K().Cmp(before) != 0 {
				t.Error("failed quote mutated reserves")
			}
		})
	}
}

func TestApplySwapMovesGrossInput(t *testing.T) {
	p := newTestPool(t, 3, 1000, 10000, 10000)

	q, err := p.ApplySwap(asset.NewAmountFromInt64(asset.DAI, 1000))
	if err != nil {
		t.Fatalf("ApplySwap: %v", err)
	}

	// Gross input, fee included, joins the input reserve.
	baseRes, _ := p.Reserve(asset.DAI.ID())
	if baseRes.Int64() != 11000 {
		t.Errorf("base reserve = %d, want 11000", baseRes.Int64())
	}

	quoteRes, _ := p.Reserve(asset.USDC.ID())
	if want := 10000 - q.Out.Raw().Int64(); quoteRes.Int64() != want {
		t.Errorf("quote reserve = %d, want %d", quoteRes.Int64(), want)
	}
}

func TestReserveProductNeverDecreases(t *testing.T) {
	p := newTestPool(t, 3, 1000, 1000000, 1000000)

	swaps := []asset.Amount{
		asset.NewAmountFromInt64(asset.DAI, 50000),
		asset.NewAmountFromInt64(asset.USDC, 120000),
		asset.NewAmountFromInt64(asset.DAI, 7),
		asset.NewAmountFromInt64(asset.USDC, 999999),
		asset.NewAmountFromInt64(asset.DAI, 333333),
	}

	k := p.K()
	for i, in := range swaps {
		if _, err := p.ApplySwap(in); err != nil {
			t.Fatalf("swap %d: %v", i, err)
		}

		next := p.K()
		if next.Cmp(k) < 0 {
			t.Fatalf("swap %d: k decreased from %s to %s", i, k, next)
		}
		k = next
	}
}

func TestSwapNeverDrainsReserve(t *testing.T) {
	p := newTestPool(t, 3, 1000, 1000, 1000000)

	// An input many times the reserve still leaves the output side positive.
	q, err := p.ApplySwap(asset.NewAmountFromInt64(asset.DAI, 100000000))
	if err != nil {
		t.Fatalf("ApplySwap: %v", err)
	}

	quoteRes, _ := p.Reserve(asset.USDC.ID())
	if quoteRes.Sign() <= 0 {
		t.Fatalf("quote reserve drained to %s", quoteRes)
	}
	if q.Out.Raw().Cmp(big.NewInt(1000000)) >= 0 {
		t.Fatalf("out %s >= starting reserve", q.Out.Raw())
	}
}

func TestAccrueFee(t *testing.T) {
	p := newTestPool(t, 3, 1000, 10000, 10000)

	if err := p.AccrueFee(asset.NewAmountFromInt64(asset.DAI, 9)); err != nil {
		t.Fatalf("AccrueFee: %v", err)
	}

	baseRes, _ := p.Reserve(asset.DAI.ID())
	if baseRes.Int64() != 10009 {
		t.Errorf("base reserve = %d, want 10009", baseRes.Int64())
	}

	if err := p.AccrueFee(asset.NewAmountFromInt64(asset.WETH, 1)); err == nil {
		t.Error("accrued fee in foreign asset")
	}
}

func TestSnapshotRestoreReserves(t *testing.T) {
	p := newTestPool(t, 3, 1000, 10000, 10000)

	snap := p.SnapshotReserves()
	if _, err := p.ApplySwap(asset.NewAmountFromInt64(asset.DAI, 5000)); err != nil {
		t.Fatalf("ApplySwap: %v", err)
	}

	p.RestoreReserves(snap)

	baseRes, _ := p.Reserve(asset.DAI.ID())
	quoteRes, _ := p.Reserve(asset.USDC.ID())
	if baseRes.Int64() != 10000 || quoteRes.Int64() != 10000 {
		t.Errorf("reserves after restore = %d/%d, want 10000/10000",
			baseRes.Int64(), quoteRes.Int64())
	}
}

func TestSpotPrice(t *testing.T) {
	p, err := NewPool("test",
		ledger.NamedAccount("venue/test"),
		ledger.NamedAccount("operator"),
		asset.DAI, asset.USDC, 3, 1000)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	base, _ := asset.ParseString(asset.DAI, "1000")
	quote, _ := asset.ParseString(asset.USDC, "1020")
	if err := p.AddReserves(base, quote); err != nil {
		t.Fatalf("AddReserves: %v", err)
	}

	price, err := p.SpotPrice()
	if err != nil {
		t.Fatalf("SpotPrice: %v", err)
	}
	if price.String() != "1.02" {
		t.Errorf("spot = %s, want 1.02", price)
	}
}

func FuzzApplySwap(f *testing.F) {
	f.Add(int64(1000), true)
	f.Add(int64(1), false)
	f.Add(int64(999999), true)
	f.Add(int64(31337), false)

	f.Fuzz(func(t *testing.T, in int64, baseToQuote bool) {
		if in <= 0 || in > 1<<40 {
			t.Skip()
		}

		p := newTestPool(t, 3, 1000, 1000000, 1000000)
		k := p.K()

		inAsset := asset.DAI
		if !baseToQuote {
			inAsset = asset.USDC
		}

		q, err := p.ApplySwap(asset.NewAmountFromInt64(inAsset, in))
		if err != nil {
			// Rejected swaps must leave reserves alone.
			if p.K().Cmp(k) != 0 {
				t.Fatal("failed swap mutated reserves")
			}
			return
		}

		if p.K().Cmp(k) < 0 {
			t.Fatalf("k decreased: %s -> %s", k, p.K())
		}

		outRes, _ := p.Reserve(q.Out.Asset().ID())
		if outRes.Sign() <= 0 {
			t.Fatal("output reserve drained")
		}
	})
}

func BenchmarkQuoteSwap(b *testing.B) {
	p := newTestPool(b, 3, 1000, 1000000, 1000000)
	in := asset.NewAmountFromInt64(asset.DAI, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.QuoteSwap(in); err != nil {
			b.Fatal(err)
		}
	}
}
