package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/fd1az/flashpool/internal/asset"
)

func settleOutcome(t *testing.T, borrowed, fee, final, thresholdBps int64) Outcome {
	t.Helper()

	route := NewSameVenueRoute(asset.DAI, "alpha")
	res := Settle(route,
		asset.NewAmountFromInt64(asset.DAI, borrowed),
		asset.NewAmountFromInt64(asset.DAI, fee),
		asset.NewAmountFromInt64(asset.DAI, final),
		thresholdBps, time.Now())
	return res.Outcome
}

func TestSettleThresholdBoundary(t *testing.T) {
	tests := []struct {
		name         string
		borrowed     int64
		fee          int64
		final        int64
		thresholdBps int64
		want         Outcome
	}{
		{
			// owed = 10000, gate at owed*10100/10000 = 10100 exactly.
			name:     "exactly at threshold is not profitable",
			borrowed: 9991, fee: 9, final: 10100, thresholdBps: 100,
			want: OutcomeUnprofitable,
		},
		{
			name:     "one unit above threshold",
			borrowed: 9991, fee: 9, final: 10101, thresholdBps: 100,
			want: OutcomeProfit,
		},
		{
			name:     "break even at zero threshold is not profitable",
			borrowed: 10000, fee: 0, final: 10000, thresholdBps: 0,
			want: OutcomeUnprofitable,
		},
		{
			name:     "one unit above break even at zero threshold",
			borrowed: 10000, fee: 0, final: 10001, thresholdBps: 0,
			want: OutcomeProfit,
		},
		{
			name:     "repaid but losing",
			borrowed: 10000, fee: 9, final: 10005, thresholdBps: 100,
			want: OutcomeUnprofitable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := settleOutcome(t, tt.borrowed, tt.fee, tt.final, tt.thresholdBps)
			if got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSettleProfitSign(t *testing.T) {
	route := NewSameVenueRoute(asset.DAI, "alpha")

	res := Settle(route,
		asset.NewAmountFromInt64(asset.DAI, 10000),
		asset.NewAmountFromInt64(asset.DAI, 9),
		asset.NewAmountFromInt64(asset.DAI, 9950),
		100, time.Now())

	if res.Profit.Int64() != -59 {
		t.Errorf("profit = %d, want -59", res.Profit.Int64())
	}
	if res.Outcome != OutcomeUnprofitable {
		t.Errorf("outcome = %s, want unprofitable", res.Outcome)
	}
}

func TestReverted(t *testing.T) {
	route := NewCrossVenueRoute(asset.DAI, "beta", "alpha")
	res := Reverted(route, asset.NewAmountFromInt64(asset.DAI, 10000),
		errors.New("short repayment"), time.Now())

	if res.Outcome != OutcomeReverted {
		t.Errorf("outcome = %s, want reverted", res.Outcome)
	}
	if res.Err != "short repayment" {
		t.Errorf("err = %q", res.Err)
	}
	if res.Profit.Sign() != 0 {
		t.Errorf("profit = %s, want 0", res.Profit)
	}
}
