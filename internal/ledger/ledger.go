// Package ledger provides an in-memory fungible-asset ledger with
// balanceOf/transfer/approve/transferFrom semantics. The ledger is an
// explicit object passed by handle to every component that reads or
// mutates balances, so a failed flash loan can be unwound by
// snapshot/restore over the entries touched during one issuance.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashpool/internal/asset"
)

// Common errors
var (
	ErrNilAmount             = errors.New("ledger: nil amount")
	ErrNonPositiveAmount     = errors.New("ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrSelfTransfer          = errors.New("ledger: transfer to self")
)

// Account identifies a balance holder.
type Account = common.Address

type balanceKey struct {
	holder Account
	asset  asset.AssetID
}

type allowanceKey struct {
	owner   Account
	spender Account
	asset   asset.AssetID
}

// Ledger is a thread-safe balance book for all holders and assets.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

// BalanceOf returns a copy of the holder's balance for the given asset.
// Unknown holder/asset pairs have a zero balance.
func (l *Ledger) BalanceOf(holder Account, id asset.AssetID) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if bal, ok := l.balances[balanceKey{holder, id}]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Mint credits newly created units to the holder. Used for seeding only.
func (l *Ledger) Mint(to Account, id asset.AssetID, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(to, id, amount)
	return nil
}

// Transfer moves amount of an asset from one holder to another.
// Fails without mutating anything if the sender's balance is short.
func (l *Ledger) Transfer(from, to Account, id asset.AssetID, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if from == to {
		return ErrSelfTransfer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.move(from, to, id, amount)
}

// Approve sets the spender's allowance over the owner's balance.
// A zero amount clears the allowance.
func (l *Ledger) Approve(owner, spender Account, id asset.AssetID, amount *big.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() < 0 {
		return ErrNonPositiveAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{owner, spender, id}
	if amount.Sign() == 0 {
		delete(l.allowances, key)
		return nil
	}
	l.allowances[key] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns a copy of the spender's remaining allowance.
func (l *Ledger) Allowance(owner, spender Account, id asset.AssetID) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if a, ok := l.allowances[allowanceKey{owner, spender, id}]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

// TransferFrom moves amount from owner to recipient on the spender's
// behalf, consuming allowance. Fails without mutation on short balance
// or short allowance.
func (l *Ledger) TransferFrom(spender, owner, to Account, id asset.AssetID, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if owner == to {
		return ErrSelfTransfer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{owner, spender, id}
	allowed, ok := l.allowances[key]
	if !ok || allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: spender %s asset %s", ErrInsufficientAllowance, spender.Hex(), id)
	}

	if err := l.move(owner, to, id, amount); err != nil {
		return err
	}

	remaining := new(big.Int).Sub(allowed, amount)
	if remaining.Sign() == 0 {
		delete(l.allowances, key)
	} else {
		l.allowances[key] = remaining
	}
	return nil
}

// Snapshot captures a deep copy of all balances and allowances.
type Snapshot struct {
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
}

// Snapshot returns a point-in-time copy of the ledger state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := &Snapshot{
		balances:   make(map[balanceKey]*big.Int, len(l.balances)),
		allowances: make(map[allowanceKey]*big.Int, len(l.allowances)),
	}
	for k, v := range l.balances {
		s.balances[k] = new(big.Int).Set(v)
	}
	for k, v := range l.allowances {
		s.allowances[k] = new(big.Int).Set(v)
	}
	return s
}

// Restore replaces the ledger state with the snapshot's.
func (l *Ledger) Restore(s *Snapshot) {
	if s == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances = make(map[balanceKey]*big.Int, len(s.balances))
	for k, v := range s.balances {
		l.balances[k] = new(big.Int).Set(v)
	}
	l.allowances = make(map[allowanceKey]*big.Int, len(s.allowances))
	for k, v := range s.allowances {
		l.allowances[k] = new(big.Int).Set(v)
	}
}

// move debits from and credits to. Caller holds the write lock.
func (l *Ledger) move(from, to Account, id asset.AssetID, amount *big.Int) error {
	fromKey := balanceKey{from, id}
	bal, ok := l.balances[fromKey]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s asset %s", ErrInsufficientBalance, from.Hex(), id)
	}

	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(l.balances, fromKey)
	}
	l.credit(to, id, amount)
	return nil
}

// credit adds to a balance. Caller holds the write lock.
func (l *Ledger) credit(to Account, id asset.AssetID, amount *big.Int) {
	key := balanceKey{to, id}
	if bal, ok := l.balances[key]; ok {
		bal.Add(bal, amount)
		return
	}
	l.balances[key] = new(big.Int).Set(amount)
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}
