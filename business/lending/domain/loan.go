// Package domain holds the flash loan aggregate and its lifecycle.
package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashpool/internal/asset"
)

// Domain errors for flash loans.
var (
	ErrZeroPrincipal = errors.New("lending: principal must be positive")
	ErrNotRepaid     = errors.New("lending: principal plus fee not returned")
	ErrLoanInFlight  = errors.New("lending: a loan is already in flight")
	ErrShortReserve  = errors.New("lending: principal exceeds lendable reserve")
)

// feeBasis is the denominator for basis point fee math.
var feeBasis = big.NewInt(10000)

// State tracks a loan through its lifecycle. Transitions only move
// forward: Idle -> Issued -> CallbackRunning -> Repaid or Reverted.
type State int

const (
	StateIdle State = iota
	StateIssued
	StateCallbackRunning
	StateRepaid
	StateReverted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIssued:
		return "issued"
	case StateCallbackRunning:
		return "callback_running"
	case StateRepaid:
		return "repaid"
	case StateReverted:
		return "reverted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Loan describes one flash loan issuance. Payload is opaque caller
// data carried through to the borrower's callback.
type Loan struct {
	Venue     string
	Principal asset.Amount
	Fee       asset.Amount
	Borrower  common.Address
	Lender    common.Address
	Payload   []byte
}

// TotalDue is the amount the borrower must return: principal plus fee.
func (l Loan) TotalDue() asset.Amount {
	return l.Principal.MustAdd(l.Fee)
}

func (l Loan) String() string {
	return fmt.Sprintf("loan %s from %s (fee %s)", l.Principal, l.Venue, l.Fee)
}

// FeeFor computes the loan fee at feeBps basis points, flooring.
func FeeFor(principal asset.Amount, feeBps int64) asset.Amount {
	fee := new(big.Int).Mul(principal.Raw(), big.NewInt(feeBps))
	fee.Div(fee, feeBasis)
	return asset.NewAmount(principal.Asset(), fee)
}
