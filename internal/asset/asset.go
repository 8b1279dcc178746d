package asset

import "github.com/ethereum/go-ethereum/common"

// Asset represents the metadata of a fungible asset.
// It is a reference entity with stable identity (AssetID).
// The symbol is NOT identity - just metadata for display.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates a new Asset with the given parameters.
func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Asset{
		id:       id,
		symbol:   symbol,
		decimals: decimals,
	}
}

// NewAssetWithName creates a new Asset with a human-readable name.
func NewAssetWithName(id AssetID, symbol, name string, decimals uint8) *Asset {
	a := NewAsset(id, symbol, decimals)
	a.name = name
	return a
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID {
	return a.id
}

// Symbol returns the ticker symbol (e.g., "DAI", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name (e.g., "Dai Stablecoin").
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// ChainID returns the chain ID.
func (a *Asset) ChainID() uint64 {
	return a.id.ChainID()
}

// Address returns the token contract address (zero for native coins).
func (a *Asset) Address() common.Address {
	return a.id.Address()
}

// String returns a human-readable representation.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
