package tokens

import (
	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/ethereum/go-ethereum/common"
)

func addrs(m map[uint64]string) map[uint64]common.Address {
	out := make(map[uint64]common.Address, len(m))
	for id, hex := range m {
		out[id] = common.HexToAddress(hex)
	}
	return out
}

// Default returns the built-in token table.
func Default() *Registry {
	r, err := NewRegistry(defaultTokens())
	if err != nil {
		panic("tokens: invalid default table: " + err.Error())
	}
	return r
}

func defaultTokens() []Token {
	native := chains.NativeToken.Hex()
	return []Token{
		{Symbol: "ETH", Name: "Ether", Decimals: 18, Addresses: addrs(map[uint64]string{
			chains.Mainnet:  native,
			chains.Arbitrum: native,
			chains.Base:     native,
		})},
		{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Addresses: addrs(map[uint64]string{
			chains.Mainnet:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			chains.Arbitrum: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
			chains.Base:     "0x4200000000000000000000000000000000000006",
		})},
		{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Addresses: addrs(map[uint64]string{
			chains.Mainnet:  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			chains.Arbitrum: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
			chains.Base:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		})},
		{Symbol: "WBTC", Name: "Wrapped BTC", Decimals: 8, Addresses: addrs(map[uint64]string{
			chains.Mainnet:  "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
			chains.Arbitrum: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f",
		})},
		{Symbol: "cbBTC", Name: "Coinbase Wrapped BTC", Decimals: 8, Addresses: addrs(map[uint64]string{
			chains.Base: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf",
		})},
		{Symbol: "stETH", Name: "Lido Staked Ether", Decimals: 18, Addresses: addrs(map[uint64]string{
			chains.Mainnet: "0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84",
		})},
		{Symbol: "wstETH", Name: "Wrapped liquid staked Ether", Decimals: 18, Addresses: addrs(map[uint64]string{
			chains.Mainnet: "0x7f39C581F595B53c5cb19bD0b3f8dA6c935E2Ca0",
		})},
		{Symbol: "icETH", Name: "Interest Compounding ETH Index", Decimals: 18, Leveraged: true, Addresses: addrs(map[uint64]string{
			chains.Mainnet: "0x7C07F7aBe10CE8e33DC6C5aD68FE033085256A84",
		})},
		{Symbol: "ETH2x-FLI", Name: "ETH 2x Flexible Leverage Index", Decimals: 18, Leveraged: true, Addresses: addrs(map[uint64]string{
			chains.Mainnet: "0xAa6E8127831c9DE45ae56bB1b0d4D4Da6e5665BD",
		})},
		{Symbol: "ETH2X", Name: "ETH 2x Leverage", Decimals: 18, Leveraged: true, Addresses: addrs(map[uint64]string{
			chains.Mainnet:  "0x65c4C0517025Ec0843C9146aF266A2C5a2D148A2",
			chains.Arbitrum: "0x26d7D3728C6bb762a5043a1d0CeF660988Bca43C",
			chains.Base:     "0xC884646E6C88d9b172a23051b38B0732Cc3E35a6",
		})},
		{Symbol: "ETH3X", Name: "ETH 3x Leverage", Decimals: 18, Leveraged: true, Addresses: addrs(map[uint64]string{
			chains.Arbitrum: "0xA0A17b2a015c14BE846C5d309D076379cCDfa543",
			chains.Base:     "0x329f6656792c7d34D0fBB9762FA9A8F852272acb",
		})},
		{Symbol: "BTC2X", Name: "BTC 2x Leverage", Decimals: 18, Leveraged: true, Addresses: addrs(map[uint64]string{
			chains.Mainnet:  "0xD2AC55cA3Bbd2Dd1e9936eC640dCb4b745fDe759",
			chains.Arbitrum: "0xeb5bE62e6770137beaA0cC712741165C594F59D7",
			chains.Base:     "0x186f3d8bb80dff50750BABc5a4bCC33134c39cde",
		})},
		{Symbol: "BTC3X", Name: "BTC 3x Leverage", Decimals: 18, Leveraged: true, Addresses: addrs(map[uint64]string{
			chains.Arbitrum: "0x3bDd0d5c0C795b2Bf076F5C8F177c58e42beC0E6",
		})},
	}
}
