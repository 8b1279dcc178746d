package domain

import "errors"

// Domain errors for pool operations.
var (
	ErrZeroAmount            = errors.New("pool: amount must be positive")
	ErrUnsupportedAsset      = errors.New("pool: asset is not part of this pair")
	ErrSameAsset             = errors.New("pool: base and quote must differ")
	ErrEmptyReserves         = errors.New("pool: reserves not seeded")
	ErrInsufficientLiquidity = errors.New("pool: swap output rounds to zero")
	ErrReserveDrained        = errors.New("pool: swap would drain a reserve")
	ErrInvalidFee            = errors.New("pool: invalid fee fraction")
)
