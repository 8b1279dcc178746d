// Package app contains the flash loan controller. It lends a venue's
// reserves out for the duration of one borrower callback and makes the
// whole issuance atomic: either the loan comes back with its fee, or
// every balance and reserve is restored to the pre-loan state.
package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	poolapp "github.com/fd1az/flashpool/business/pool/app"
	pooldomain "github.com/fd1az/flashpool/business/pool/domain"

	"github.com/fd1az/flashpool/business/lending/domain"
	"github.com/fd1az/flashpool/internal/apperror"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
)

// FlashLoanController implements LoanSource over the pool service's
// venues. One loan at a time: issuance while another is in flight
// fails fast instead of queueing.
type FlashLoanController struct {
	log         logger.LoggerInterface
	led         *ledger.Ledger
	pools       *poolapp.PoolService
	feeBps      int64
	instruments *metrics.Instruments

	mu       sync.Mutex
	inFlight bool
	state    domain.State
}

// NewFlashLoanController creates a controller charging feeBps basis
// points per loan. instruments may be nil.
func NewFlashLoanController(log logger.LoggerInterface, led *ledger.Ledger, pools *poolapp.PoolService, feeBps int64, instruments *metrics.Instruments) *FlashLoanController {
	return &FlashLoanController{
		log:         log,
		led:         led,
		pools:       pools,
		feeBps:      feeBps,
		instruments: instruments,
		state:       domain.StateIdle,
	}
}

// State returns the lifecycle state of the most recent issuance.
func (c *FlashLoanController) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FeeBps returns the configured loan fee in basis points.
func (c *FlashLoanController) FeeBps() int64 {
	return c.feeBps
}

// Issue lends principal from the venue's account to the borrower, runs
// the borrower's callback, and verifies the venue got principal plus
// fee back. On any shortfall the ledger and the venue's reserves are
// restored from snapshots taken before the transfer.
func (c *FlashLoanController) Issue(ctx context.Context, venue string, principal asset.Amount, borrower Borrower, payload []byte) (domain.Loan, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return domain.Loan{}, apperror.New(apperror.CodeLoanInFlight,
			apperror.WithContext(fmt.Sprintf("venue %q", venue)),
			apperror.WithCause(domain.ErrLoanInFlight))
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	pool, err := c.pools.Pool(venue)
	if err != nil {
		return domain.Loan{}, err
	}

	if !principal.IsPositive() {
		return domain.Loan{}, apperror.New(apperror.CodeZeroAmount,
			apperror.WithContext(fmt.Sprintf("venue %q loan", venue)),
			apperror.WithCause(domain.ErrZeroPrincipal))
	}
	if !pool.Holds(principal.Asset().ID()) {
		return domain.Loan{}, apperror.New(apperror.CodeUnsupportedPair,
			apperror.WithContext(fmt.Sprintf("venue %q does not hold %s", venue, principal.Asset().Symbol())))
	}

	reserve, err := pool.Reserve(principal.Asset().ID())
	if err != nil {
		return domain.Loan{}, apperror.Internal(apperror.CodeInternalError, "reserve lookup", err)
	}
	if reserve.Cmp(principal.Raw()) < 0 {
		return domain.Loan{}, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext(fmt.Sprintf("venue %q loan of %s", venue, principal.String())),
			apperror.WithCause(domain.ErrShortReserve))
	}

	loan := domain.Loan{
		Venue:     venue,
		Principal: principal,
		Fee:       domain.FeeFor(principal, c.feeBps),
		Borrower:  borrower.Address(),
		Lender:    pool.Account(),
		Payload:   payload,
	}

	assetID := principal.Asset().ID()
	ledgerSnap := c.led.Snapshot()

	// The callback may swap through any registered venue, not just the
	// lender, so every venue's reserves join the rollback set.
	venues := c.pools.Pools()
	reserveSnaps := make([]pooldomain.ReserveSnapshot, len(venues))
	for i, v := range venues {
		reserveSnaps[i] = v.SnapshotReserves()
	}
	restoreAll := func() {
		c.led.Restore(ledgerSnap)
		for i, v := range venues {
			v.RestoreReserves(reserveSnaps[i])
		}
	}

	c.setState(domain.StateIssued)
	if err := c.led.Transfer(loan.Lender, loan.Borrower, assetID, principal.Raw()); err != nil {
		c.setState(domain.StateReverted)
		return domain.Loan{}, apperror.Internal(apperror.CodeInternalError, "principal transfer", err)
	}
	c.instruments.RecordLoanIssued(ctx, principal.Asset().Symbol())

	c.log.Debug(ctx, "flash loan issued",
		"venue", venue,
		"principal", principal.String(),
		"fee", loan.Fee.String(),
		"borrower", loan.Borrower.Hex())

	c.setState(domain.StateCallbackRunning)
	callbackErr := borrower.OnLoanReceived(ctx, loan)

	// Swaps during the callback legitimately move the lender's balance,
	// but they move its reserve bookkeeping in the same step. The venue
	// is made whole only if its account covers the post-callback reserve
	// plus the loan fee: repayment must have returned principal and fee
	// on top of whatever the swaps settled.
	short := true
	if postReserve, rErr := pool.Reserve(assetID); rErr == nil {
		required := new(big.Int).Add(postReserve, loan.Fee.Raw())
		short = c.led.BalanceOf(loan.Lender, assetID).Cmp(required) < 0
	}

	if callbackErr != nil || short {
		restoreAll()
		c.setState(domain.StateReverted)
		c.instruments.RecordLoanReverted(ctx, principal.Asset().Symbol())

		c.log.Warn(ctx, "flash loan reverted",
			"venue", venue,
			"principal", principal.String(),
			"callback_error", fmt.Sprint(callbackErr))

		return domain.Loan{}, apperror.New(apperror.CodeLoanNotRepaid,
			apperror.WithContext(fmt.Sprintf("venue %q loan of %s", venue, principal.String())),
			apperror.WithCause(firstErr(callbackErr, domain.ErrNotRepaid)))
	}

	// The repaid fee joins the venue's reserves. A fee that floored to
	// zero has nothing to accrue.
	if !loan.Fee.IsZero() {
		if err := pool.AccrueFee(loan.Fee); err != nil {
			restoreAll()
			c.setState(domain.StateReverted)
			return domain.Loan{}, apperror.Internal(apperror.CodeInternalError, "fee accrual", err)
		}
	}

	c.setState(domain.StateRepaid)
	c.instruments.RecordLoanRepaid(ctx, principal.Asset().Symbol())

	c.log.Info(ctx, "flash loan repaid",
		"venue", venue,
		"principal", principal.String(),
		"fee", loan.Fee.String())

	return loan, nil
}

func (c *FlashLoanController) setState(s domain.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
