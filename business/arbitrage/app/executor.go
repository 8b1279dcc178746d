package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	lendingapp "github.com/fd1az/flashpool/business/lending/app"
	lendingdomain "github.com/fd1az/flashpool/business/lending/domain"
	poolapp "github.com/fd1az/flashpool/business/pool/app"

	"github.com/fd1az/flashpool/business/arbitrage/domain"
	"github.com/fd1az/flashpool/internal/apperror"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
)

// Executor runs flash-loan-funded round trips. It is the Borrower side
// of the lending context: Execute asks for a loan, and the swap legs
// plus repayment happen inside the loan callback, so a failed trip is
// unwound by the controller's rollback.
type Executor struct {
	log          logger.LoggerInterface
	account      ledger.Account
	led          *ledger.Ledger
	pools        *poolapp.PoolService
	loans        lendingapp.LoanSource
	thresholdBps int64

	mu      sync.Mutex
	pending *attempt
}

// attempt is the in-flight trip, pinned between Execute and the
// loan callback so the callback can verify its caller.
type attempt struct {
	route  domain.Route
	lender ledger.Account
	result *domain.Result
}

// NewExecutor creates an executor trading from its own ledger account.
func NewExecutor(log logger.LoggerInterface, account ledger.Account, led *ledger.Ledger, pools *poolapp.PoolService, loans lendingapp.LoanSource, thresholdBps int64) *Executor {
	return &Executor{
		log:          log,
		account:      account,
		led:          led,
		pools:        pools,
		loans:        loans,
		thresholdBps: thresholdBps,
	}
}

// Address implements lending/app.Borrower.
func (e *Executor) Address() ledger.Account {
	return e.account
}

// Execute borrows size from the route's lend venue and runs both legs.
// A repaid trip settles to a Result whether or not it cleared the
// threshold; a trip that could not repay returns the reverted Result
// alongside the controller's error.
func (e *Executor) Execute(ctx context.Context, route domain.Route, size asset.Amount) (domain.Result, error) {
	if !size.Asset().ID().Equals(route.Borrow.ID()) {
		return domain.Result{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("trade size in %s, route borrows %s",
				size.Asset().Symbol(), route.Borrow.Symbol())))
	}

	lendPool, err := e.pools.Pool(route.LendVenue)
	if err != nil {
		return domain.Result{}, err
	}

	e.mu.Lock()
	if e.pending != nil {
		e.mu.Unlock()
		return domain.Result{}, apperror.New(apperror.CodeArbitrageAborted,
			apperror.WithContext("attempt already in flight"))
	}
	e.pending = &attempt{route: route, lender: lendPool.Account()}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.pending = nil
		e.mu.Unlock()
	}()

	_, err = e.loans.Issue(ctx, route.LendVenue, size, e, nil)
	if err != nil {
		res := domain.Reverted(route, size, err, time.Now())
		return res, err
	}

	e.mu.Lock()
	res := e.pending.result
	e.mu.Unlock()

	if res == nil {
		// Repaid loan without a settlement should be impossible.
		return domain.Result{}, apperror.New(apperror.CodeInternalError,
			apperror.WithContext("loan repaid but attempt never settled"))
	}
	return *res, nil
}

// OnLoanReceived implements lending/app.Borrower. It runs with the
// principal already in the executor's account: sell leg, buy leg,
// then repayment of principal plus fee.
func (e *Executor) OnLoanReceived(ctx context.Context, loan lendingdomain.Loan) error {
	e.mu.Lock()
	pending := e.pending
	e.mu.Unlock()

	// Only the lender pinned by Execute may drive this callback.
	if pending == nil || loan.Lender != pending.lender {
		return apperror.New(apperror.CodeUnauthorizedCallback,
			apperror.WithContext(fmt.Sprintf("lender %s", loan.Lender.Hex())))
	}

	route := pending.route

	sold, err := e.pools.Swap(ctx, route.SellVenue, e.account, loan.Principal)
	if err != nil {
		return fmt.Errorf("sell leg on %q: %w", route.SellVenue, err)
	}

	final, err := e.pools.Swap(ctx, route.BuyVenue, e.account, sold)
	if err != nil {
		return fmt.Errorf("buy leg on %q: %w", route.BuyVenue, err)
	}

	due := loan.TotalDue()
	balance := e.led.BalanceOf(e.account, due.Asset().ID())
	if balance.Cmp(due.Raw()) < 0 {
		return fmt.Errorf("cannot repay %s: trip ended with %s in account",
			due.String(), balance.String())
	}

	if err := e.led.Transfer(e.account, loan.Lender, due.Asset().ID(), due.Raw()); err != nil {
		return fmt.Errorf("repayment: %w", err)
	}

	result := domain.Settle(route, loan.Principal, loan.Fee, final, e.thresholdBps, time.Now())

	e.mu.Lock()
	pending.result = &result
	e.mu.Unlock()

	e.log.Debug(ctx, "round trip settled",
		"route", route.String(),
		"borrowed", loan.Principal.String(),
		"final", final.String(),
		"outcome", result.Outcome.String())
	return nil
}
