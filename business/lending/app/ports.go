package app

import (
	"context"

	"github.com/fd1az/flashpool/business/lending/domain"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
)

// Borrower receives flash loan principal and must return principal plus
// fee to the lender account before its callback returns.
type Borrower interface {
	// Address is the ledger account credited with the principal.
	Address() ledger.Account

	// OnLoanReceived runs with the principal already credited. Returning
	// an error, or leaving the lender short, reverts the whole issuance.
	OnLoanReceived(ctx context.Context, loan domain.Loan) error
}

// LoanSource issues flash loans against a venue's reserves. payload is
// forwarded untouched to the borrower's callback.
type LoanSource interface {
	Issue(ctx context.Context, venue string, principal asset.Amount, borrower Borrower, payload []byte) (domain.Loan, error)
}
