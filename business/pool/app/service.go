// Package app contains the pool application service, which settles swap
// legs on the shared ledger while the domain entity prices them.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashpool/business/pool/domain"
	"github.com/fd1az/flashpool/internal/apperror"
	"github.com/fd1az/flashpool/internal/asset"
	"github.com/fd1az/flashpool/internal/ledger"
	"github.com/fd1az/flashpool/internal/logger"
	"github.com/fd1az/flashpool/internal/metrics"
)

// PoolService executes swaps and liquidity operations against registered
// venues. Every balance movement settles on the shared ledger, and the
// venue's reserves mirror its ledger account at all times.
type PoolService struct {
	log         logger.LoggerInterface
	led         *ledger.Ledger
	instruments *metrics.Instruments

	mu    sync.Mutex
	pools map[string]*domain.Pool
}

// NewPoolService creates a pool service over the shared ledger.
// instruments may be nil when telemetry is disabled.
func NewPoolService(log logger.LoggerInterface, led *ledger.Ledger, instruments *metrics.Instruments) *PoolService {
	return &PoolService{
		log:         log,
		led:         led,
		instruments: instruments,
		pools:       make(map[string]*domain.Pool),
	}
}

// RegisterPool adds a venue. Registering the same name twice replaces it.
func (s *PoolService) RegisterPool(p *domain.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.Name()] = p
}

// Pool returns a registered venue by name.
func (s *PoolService) Pool(name string) (*domain.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[name]
	if !ok {
		return nil, apperror.New(apperror.CodeNotFound,
			apperror.WithContext(fmt.Sprintf("pool %q", name)))
	}
	return p, nil
}

// Pools returns all registered venues in name order.
func (s *PoolService) Pools() []*domain.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// AddLiquidity moves both sides of the pair from the provider to the
// venue's account and credits its reserves. Only the venue owner may
// provide liquidity.
func (s *PoolService) AddLiquidity(ctx context.Context, venue string, provider ledger.Account, baseAmt, quoteAmt asset.Amount) error {
	p, err := s.Pool(venue)
	if err != nil {
		return err
	}

	if provider != p.Owner() {
		return apperror.New(apperror.CodeUnauthorizedProvider,
			apperror.WithContext(fmt.Sprintf("venue %q provider %s", venue, provider.Hex())))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.led.Transfer(provider, p.Account(), baseAmt.Asset().ID(), baseAmt.Raw()); err != nil {
		return toAppError(err, fmt.Sprintf("venue %q base leg", venue))
	}
	if err := s.led.Transfer(provider, p.Account(), quoteAmt.Asset().ID(), quoteAmt.Raw()); err != nil {
		// Put the base leg back so a short quote balance leaves nothing behind.
		_ = s.led.Transfer(p.Account(), provider, baseAmt.Asset().ID(), baseAmt.Raw())
		return toAppError(err, fmt.Sprintf("venue %q quote leg", venue))
	}

	if err := p.AddReserves(baseAmt, quoteAmt); err != nil {
		_ = s.led.Transfer(p.Account(), provider, baseAmt.Asset().ID(), baseAmt.Raw())
		_ = s.led.Transfer(p.Account(), provider, quoteAmt.Asset().ID(), quoteAmt.Raw())
		return toAppError(err, fmt.Sprintf("venue %q", venue))
	}

	s.log.Info(ctx, "liquidity added",
		"venue", venue,
		"base", baseAmt.String(),
		"quote", quoteAmt.String())
	return nil
}

// Quote prices a swap without executing it.
func (s *PoolService) Quote(ctx context.Context, venue string, in asset.Amount) (asset.Amount, error) {
	p, err := s.Pool(venue)
	if err != nil {
		return asset.Amount{}, err
	}

	q, err := p.QuoteSwap(in)
	if err != nil {
		return asset.Amount{}, toAppError(err, fmt.Sprintf("venue %q", venue))
	}
	return q.Out, nil
}

// Swap executes a swap for the trader: the gross input moves to the
// venue's account, reserves shift, and the output moves back to the
// trader. The three steps succeed or leave no trace.
func (s *PoolService) Swap(ctx context.Context, venue string, trader ledger.Account, in asset.Amount) (asset.Amount, error) {
	p, err := s.Pool(venue)
	if err != nil {
		return asset.Amount{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.led.Transfer(trader, p.Account(), in.Asset().ID(), in.Raw()); err != nil {
		return asset.Amount{}, toAppError(err, fmt.Sprintf("venue %q input leg", venue))
	}

	snap := p.SnapshotReserves()
	q, err := p.ApplySwap(in)
	if err != nil {
		_ = s.led.Transfer(p.Account(), trader, in.Asset().ID(), in.Raw())
		return asset.Amount{}, toAppError(err, fmt.Sprintf("venue %q", venue))
	}

	if err := s.led.Transfer(p.Account(), trader, q.Out.Asset().ID(), q.Out.Raw()); err != nil {
		// Reserves mirror the account, so this branch means the mirror broke.
		p.RestoreReserves(snap)
		_ = s.led.Transfer(p.Account(), trader, in.Asset().ID(), in.Raw())
		return asset.Amount{}, apperror.Internal(apperror.CodeSwapFailed,
			fmt.Sprintf("venue %q output leg", venue), err)
	}

	s.instruments.RecordSwap(ctx, venue, in.Asset().Symbol(), in.ToDecimal().InexactFloat64())

	s.log.Debug(ctx, "swap executed",
		"venue", venue,
		"in", in.String(),
		"out", q.Out.String(),
		"fee", q.FeePortion.String())
	return q.Out, nil
}

// SpotPrice returns the venue's marginal quote-per-base price.
func (s *PoolService) SpotPrice(ctx context.Context, venue string) (decimal.Decimal, error) {
	p, err := s.Pool(venue)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := p.SpotPrice()
	if err != nil {
		return decimal.Zero, toAppError(err, fmt.Sprintf("venue %q", venue))
	}
	return price, nil
}

// toAppError maps domain and ledger errors onto application error codes.
func toAppError(err error, context string) *apperror.AppError {
	switch {
	case errors.Is(err, domain.ErrZeroAmount), errors.Is(err, ledger.ErrNonPositiveAmount), errors.Is(err, ledger.ErrNilAmount):
		return apperror.New(apperror.CodeZeroAmount, apperror.WithContext(context), apperror.WithCause(err))
	case errors.Is(err, domain.ErrUnsupportedAsset), errors.Is(err, domain.ErrSameAsset):
		return apperror.New(apperror.CodeUnsupportedPair, apperror.WithContext(context), apperror.WithCause(err))
	case errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrReserveDrained),
		errors.Is(err, domain.ErrEmptyReserves):
		return apperror.New(apperror.CodeInsufficientLiquidity, apperror.WithContext(context), apperror.WithCause(err))
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return apperror.New(apperror.CodeInsufficientBalance, apperror.WithContext(context), apperror.WithCause(err))
	default:
		return apperror.Internal(apperror.CodeSwapFailed, context, err)
	}
}
