package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/internal/asset"
)

// bpsBasis is the denominator for basis point math.
var bpsBasis = big.NewInt(10000)

// Outcome classifies a settled attempt.
type Outcome int

const (
	// OutcomeProfit cleared the profitability threshold.
	OutcomeProfit Outcome = iota

	// OutcomeUnprofitable repaid the loan but did not clear the
	// threshold. Not an error: the trip simply wasn't worth taking.
	OutcomeUnprofitable

	// OutcomeReverted could not repay, the whole attempt was unwound.
	OutcomeReverted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProfit:
		return "profit"
	case OutcomeUnprofitable:
		return "unprofitable"
	case OutcomeReverted:
		return "reverted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the settlement of one arbitrage attempt.
type Result struct {
	Route     Route
	Borrowed  asset.Amount
	Fee       asset.Amount
	Final     asset.Amount // balance after both legs, before repayment
	Profit    *big.Int     // Final minus principal minus fee, negative on a losing trip
	Outcome   Outcome
	Timestamp time.Time
	Err       string // set only for OutcomeReverted
}

// Settle classifies a finished round trip. The trip is profitable only
// if the final amount strictly exceeds the total owed by more than
// thresholdBps basis points:
//
//	final * 10000 > (borrowed + fee) * (10000 + thresholdBps)
//
// The comparison is exact integer math, no rounding is involved.
func Settle(route Route, borrowed, fee, final asset.Amount, thresholdBps int64, now time.Time) Result {
	owed := new(big.Int).Add(borrowed.Raw(), fee.Raw())
	profit := new(big.Int).Sub(final.Raw(), owed)

	lhs := new(big.Int).Mul(final.Raw(), bpsBasis)
	rhs := new(big.Int).Mul(owed, new(big.Int).Add(bpsBasis, big.NewInt(thresholdBps)))

	outcome := OutcomeUnprofitable
	if lhs.Cmp(rhs) > 0 {
		outcome = OutcomeProfit
	}

	return Result{
		Route:     route,
		Borrowed:  borrowed,
		Fee:       fee,
		Final:     final,
		Profit:    profit,
		Outcome:   outcome,
		Timestamp: now,
	}
}

// Reverted builds the settlement for an attempt that was rolled back.
func Reverted(route Route, borrowed asset.Amount, err error, now time.Time) Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Route:     route,
		Borrowed:  borrowed,
		Fee:       asset.Zero(borrowed.Asset()),
		Final:     asset.Zero(borrowed.Asset()),
		Profit:    big.NewInt(0),
		Outcome:   OutcomeReverted,
		Timestamp: now,
		Err:       msg,
	}
}

// ProfitDecimal returns the net profit in human units for display.
func (r Result) ProfitDecimal() decimal.Decimal {
	if r.Profit == nil || r.Borrowed.Asset() == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(r.Profit, -int32(r.Borrowed.Asset().Decimals()))
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %s profit %s %s",
		r.Route, r.Outcome, r.ProfitDecimal(), r.Borrowed.Asset().Symbol())
}
