package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDArbitrum = 42161
	ChainIDLocal    = 31337 // local simulation chain
)

// Well-known token addresses on Ethereum Mainnet
var (
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// Well-known AssetIDs
var (
	IDEthereumETH  = NewNativeAssetID(ChainIDEthereum)
	IDEthereumDAI  = NewTokenAssetID(ChainIDEthereum, AddrDAIEthereum)
	IDEthereumUSDC = NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum)
	IDEthereumWETH = NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum)
)

// Well-known Assets (pre-created instances)
var (
	ETH  = NewAssetWithName(IDEthereumETH, "ETH", "Ethereum", 18)
	DAI  = NewAssetWithName(IDEthereumDAI, "DAI", "Dai Stablecoin", 18)
	USDC = NewAssetWithName(IDEthereumUSDC, "USDC", "USD Coin", 6)
	WETH = NewAssetWithName(IDEthereumWETH, "WETH", "Wrapped Ether", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ETH)
	r.Register(DAI)
	r.Register(USDC)
	r.Register(WETH)

	return r
}

// MustNewToken creates a new token asset with the given parameters.
// This is a convenience function for registering custom tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	id := NewTokenAssetID(chainID, address)
	return NewAssetWithName(id, symbol, name, decimals)
}
