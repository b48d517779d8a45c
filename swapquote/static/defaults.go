package static

import (
	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
)

var (
	stETHPool = common.HexToAddress("0xDC24316b9AE028F1497c275EB9192a3Ea0f67022")
	stETH     = common.HexToAddress("0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84")

	baseWETH  = common.HexToAddress("0x4200000000000000000000000000000000000006")
	baseUSDC  = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	baseCBBTC = common.HexToAddress("0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf")
)

// slipstreamTickSpacing is the concentrated pool spacing used on Base.
const slipstreamTickSpacing = 100

// DefaultEntries returns the built-in static routes.
func DefaultEntries() []Entry {
	mainnetWETH, _ := chains.WrappedNative(chains.Mainnet)
	return []Entry{
		// icETH levers stETH against WETH debt; both legs go through the stETH/ETH pool.
		{
			ChainID:      chains.Mainnet,
			IndexSymbol:  "icETH",
			CounterToken: chains.NativeToken,
			Route:        swaproute.NewStable(stETHPool, chains.NativeToken, stETH),
		},
		{
			ChainID:      chains.Mainnet,
			IndexSymbol:  "icETH",
			CounterToken: mainnetWETH,
			Route:        swaproute.NewStable(stETHPool, mainnetWETH, stETH),
		},
		{
			ChainID:      chains.Base,
			IndexSymbol:  "ETH2X",
			CounterToken: baseUSDC,
			Route:        swaproute.NewConcentratedLiquidity([]common.Address{baseUSDC, baseWETH}, []uint32{0}, []int32{slipstreamTickSpacing}),
		},
		{
			ChainID:      chains.Base,
			IndexSymbol:  "ETH3X",
			CounterToken: baseUSDC,
			Route:        swaproute.NewConcentratedLiquidity([]common.Address{baseUSDC, baseWETH}, []uint32{0}, []int32{slipstreamTickSpacing}),
		},
		{
			ChainID:      chains.Base,
			IndexSymbol:  "BTC2X",
			CounterToken: baseUSDC,
			Route:        swaproute.NewConcentratedLiquidity([]common.Address{baseUSDC, baseCBBTC}, []uint32{0}, []int32{slipstreamTickSpacing}),
		},
		{
			ChainID:      chains.Base,
			IndexSymbol:  "BTC2X",
			CounterToken: baseWETH,
			Route:        swaproute.NewConcentratedLiquidity([]common.Address{baseWETH, baseCBBTC}, []uint32{0}, []int32{slipstreamTickSpacing}),
		},
	}
}

// Default returns the built-in table. It panics on an invalid table.
func Default() *Table {
	t, err := NewTable(DefaultEntries())
	if err != nil {
		panic("static: invalid default table: " + err.Error())
	}
	return t
}
