// Package domain holds the constant-product pool entity and its swap math.
package domain

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/internal/asset"
)

// Pool is a single-pair constant-product market. Reserves are tracked in
// raw units and mirror the pool account's ledger balances. All integer
// math floors, matching on-chain AMM behavior.
type Pool struct {
	name    string
	account common.Address
	owner   common.Address
	base    *asset.Asset
	quote   *asset.Asset
	feeNum  *big.Int
	feeDen  *big.Int

	mu           sync.RWMutex
	reserveBase  *big.Int
	reserveQuote *big.Int
}

// SwapQuote is the outcome of pricing one swap against current reserves.
type SwapQuote struct {
	In          asset.Amount
	Out         asset.Amount
	FeePortion  asset.Amount // portion of the input retained by the fee
	BaseToQuote bool
}

// NewPool creates a pool for the base/quote pair with the given swap fee
// fraction feeNum/feeDen. The owner is the only account allowed to add
// liquidity; the account is the pool's own ledger identity.
func NewPool(name string, account, owner common.Address, base, quote *asset.Asset, feeNum, feeDen int64) (*Pool, error) {
	if base == nil || quote == nil {
		return nil, asset.ErrNilAsset
	}
	if base.ID().Equals(quote.ID()) {
		return nil, ErrSameAsset
	}
	if feeDen <= 0 || feeNum < 0 || feeNum >= feeDen {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidFee, feeNum, feeDen)
	}

	return &Pool{
		name:         name,
		account:      account,
		owner:        owner,
		base:         base,
		quote:        quote,
		feeNum:       big.NewInt(feeNum),
		feeDen:       big.NewInt(feeDen),
		reserveBase:  big.NewInt(0),
		reserveQuote: big.NewInt(0),
	}, nil
}

func (p *Pool) Name() string            { return p.name }
func (p *Pool) Account() common.Address { return p.account }
func (p *Pool) Owner() common.Address   { return p.owner }
func (p *Pool) Base() *asset.Asset      { return p.base }
func (p *Pool) Quote() *asset.Asset     { return p.quote }

// Holds reports whether the asset is one side of this pool's pair.
func (p *Pool) Holds(id asset.AssetID) bool {
	return p.base.ID().Equals(id) || p.quote.ID().Equals(id)
}

// Other returns the opposite side of the pair.
func (p *Pool) Other(id asset.AssetID) (*asset.Asset, error) {
	switch {
	case p.base.ID().Equals(id):
		return p.quote, nil
	case p.quote.ID().Equals(id):
		return p.base, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, id)
	}
}

// Reserve returns a copy of the current reserve for one side of the pair.
func (p *Pool) Reserve(id asset.AssetID) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch {
	case p.base.ID().Equals(id):
		return new(big.Int).Set(p.reserveBase), nil
	case p.quote.ID().Equals(id):
		return new(big.Int).Set(p.reserveQuote), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, id)
	}
}

// K returns the current reserve product.
func (p *Pool) K() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Mul(p.reserveBase, p.reserveQuote)
}

// AddReserves credits both sides of the pair at once. Used when the
// owner seeds or tops up liquidity.
func (p *Pool) AddReserves(baseAmt, quoteAmt asset.Amount) error {
	if !baseAmt.Asset().ID().Equals(p.base.ID()) || !quoteAmt.Asset().ID().Equals(p.quote.ID()) {
		return ErrUnsupportedAsset
	}
	if !baseAmt.IsPositive() || !quoteAmt.IsPositive() {
		return ErrZeroAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.reserveBase.Add(p.reserveBase, baseAmt.Raw())
	p.reserveQuote.Add(p.reserveQuote, quoteAmt.Raw())
	return nil
}

// AccrueFee credits a fee to the reserve of the matching asset without
// an opposing swap leg. Flash loan fees join reserves this way.
func (p *Pool) AccrueFee(fee asset.Amount) error {
	if !fee.IsPositive() {
		return ErrZeroAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.base.ID().Equals(fee.Asset().ID()):
		p.reserveBase.Add(p.reserveBase, fee.Raw())
	case p.quote.ID().Equals(fee.Asset().ID()):
		p.reserveQuote.Add(p.reserveQuote, fee.Raw())
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, fee.Asset().Symbol())
	}
	return nil
}

// QuoteSwap prices a swap of `in` against current reserves without
// mutating them. The output asset is the opposite side of the pair.
//
// The fee is taken from the input before pricing:
//
//	inAfterFee = in * (feeDen - feeNum) / feeDen
//	out        = inAfterFee * reserveOut / (reserveIn + inAfterFee)
//
// Both divisions floor. The gross input, fee included, joins reserveIn
// when the swap is applied.
func (p *Pool) QuoteSwap(in asset.Amount) (SwapQuote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.quoteLocked(in)
}

func (p *Pool) quoteLocked(in asset.Amount) (SwapQuote, error) {
	if !in.IsPositive() {
		return SwapQuote{}, ErrZeroAmount
	}

	var reserveIn, reserveOut *big.Int
	var outAsset *asset.Asset
	var baseToQuote bool

	switch {
	case p.base.ID().Equals(in.Asset().ID()):
		reserveIn, reserveOut = p.reserveBase, p.reserveQuote
		outAsset = p.quote
		baseToQuote = true
	case p.quote.ID().Equals(in.Asset().ID()):
		reserveIn, reserveOut = p.reserveQuote, p.reserveBase
		outAsset = p.base
	default:
		return SwapQuote{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, in.Asset().Symbol())
	}

	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return SwapQuote{}, ErrEmptyReserves
	}

	// inAfterFee = in * (feeDen - feeNum) / feeDen
	keep := new(big.Int).Sub(p.feeDen, p.feeNum)
	inAfterFee := new(big.Int).Mul(in.Raw(), keep)
	inAfterFee.Div(inAfterFee, p.feeDen)

	// out = inAfterFee * reserveOut / (reserveIn + inAfterFee)
	numerator := new(big.Int).Mul(inAfterFee, reserveOut)
	denominator := new(big.Int).Add(reserveIn, inAfterFee)
	out := numerator.Div(numerator, denominator)

	if out.Sign() == 0 {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	if out.Cmp(reserveOut) >= 0 {
		return SwapQuote{}, ErrReserveDrained
	}

	fee := new(big.Int).Sub(in.Raw(), inAfterFee)

	return SwapQuote{
		In:          in,
		Out:         asset.NewAmount(outAsset, out),
		FeePortion:  asset.NewAmount(in.Asset(), fee),
		BaseToQuote: baseToQuote,
	}, nil
}

// ApplySwap prices and applies a swap in one step. The gross input is
// added to the input reserve and the output subtracted from the output
// reserve, so the reserve product never decreases.
func (p *Pool) ApplySwap(in asset.Amount) (SwapQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, err := p.quoteLocked(in)
	if err != nil {
		return SwapQuote{}, err
	}

	if q.BaseToQuote {
		p.reserveBase.Add(p.reserveBase, q.In.Raw())
		p.reserveQuote.Sub(p.reserveQuote, q.Out.Raw())
	} else {
		p.reserveQuote.Add(p.reserveQuote, q.In.Raw())
		p.reserveBase.Sub(p.reserveBase, q.Out.Raw())
	}

	return q, nil
}

// SpotPrice returns the marginal quote-per-base price in human units,
// for display and route selection only. Execution always goes through
// QuoteSwap, which accounts for fees and slippage.
func (p *Pool) SpotPrice() (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.reserveBase.Sign() == 0 || p.reserveQuote.Sign() == 0 {
		return decimal.Zero, ErrEmptyReserves
	}

	quoteHuman := decimal.NewFromBigInt(p.reserveQuote, -int32(p.quote.Decimals()))
	baseHuman := decimal.NewFromBigInt(p.reserveBase, -int32(p.base.Decimals()))
	return quoteHuman.Div(baseHuman), nil
}

// ReserveSnapshot is a point-in-time copy of both reserves.
type ReserveSnapshot struct {
	base  *big.Int
	quote *big.Int
}

// SnapshotReserves captures the current reserves for later rollback.
func (p *Pool) SnapshotReserves() ReserveSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ReserveSnapshot{
		base:  new(big.Int).Set(p.reserveBase),
		quote: new(big.Int).Set(p.reserveQuote),
	}
}

// RestoreReserves resets reserves to a previously captured snapshot.
func (p *Pool) RestoreReserves(s ReserveSnapshot) {
	if s.base == nil || s.quote == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.reserveBase = new(big.Int).Set(s.base)
	p.reserveQuote = new(big.Int).Set(s.quote)
}

// String implements fmt.Stringer.
func (p *Pool) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("%s[%s/%s %s/%s]", p.name, p.base.Symbol(), p.quote.Symbol(),
		p.reserveBase.String(), p.reserveQuote.String())
}
