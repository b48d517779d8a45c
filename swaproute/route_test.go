package swaproute

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	wbtc  = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	steth = common.HexToAddress("0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84")
	pool  = common.HexToAddress("0xDC24316b9AE028F1497c275EB9192a3Ea0f67022")
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		route   SwapRoute
		wantErr bool
	}{
		{name: "Empty route", route: Empty()},
		{name: "Empty route with a path", route: SwapRoute{Exchange: None, Path: []common.Address{weth, usdc}}, wantErr: true},
		{name: "V2 without fees", route: NewConstantProduct([]common.Address{weth, usdc})},
		{name: "V2 with a single token", route: NewConstantProduct([]common.Address{weth}), wantErr: true},
		{name: "V3 two hops", route: NewConcentratedLiquidity([]common.Address{wbtc, weth, usdc}, []uint32{3000, 500}, nil)},
		{name: "V3 fee count mismatch", route: NewConcentratedLiquidity([]common.Address{wbtc, weth, usdc}, []uint32{3000}, nil), wantErr: true},
		{name: "V3 with tick spacings", route: NewConcentratedLiquidity([]common.Address{weth, usdc}, []uint32{0}, []int32{100})},
		{name: "V3 tick spacing mismatch", route: NewConcentratedLiquidity([]common.Address{weth, usdc}, []uint32{0}, []int32{100, 1}), wantErr: true},
		{name: "Curve pool", route: NewStable(pool, weth, steth)},
		{name: "Curve pool with three tokens", route: SwapRoute{Exchange: Stable, Path: []common.Address{weth, steth, usdc}, Pool: pool}, wantErr: true},
		{name: "Balancer pool ids", route: NewBalancer([]common.Address{weth, steth}, []common.Hash{{0x01}})},
		{name: "Stable with both pool and ids", route: SwapRoute{Exchange: Stable, Path: []common.Address{weth, steth}, Pool: pool, PoolIDs: []common.Hash{{0x01}}}, wantErr: true},
		{name: "Aggregator", route: NewAggregator(pool, []byte{0xde, 0xad}, weth, usdc)},
		{name: "Aggregator without calldata", route: NewAggregator(pool, nil, weth, usdc), wantErr: true},
		{name: "V2 carrying a curve pool", route: SwapRoute{Exchange: ConstantProduct, Path: []common.Address{weth, usdc}, Pool: pool}, wantErr: true},
		{name: "Unknown exchange", route: SwapRoute{Exchange: Exchange(42), Path: []common.Address{weth, usdc}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.route.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSwapRoute)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReverse(t *testing.T) {
	route := NewConcentratedLiquidity([]common.Address{wbtc, weth, usdc}, []uint32{3000, 500}, []int32{60, 10})

	reversed := route.Reverse()

	assert.Equal(t, []common.Address{usdc, weth, wbtc}, reversed.Path)
	assert.Equal(t, []uint32{500, 3000}, reversed.Fees)
	assert.Equal(t, []int32{10, 60}, reversed.TickSpacings)
	require.NoError(t, reversed.Validate())

	// The receiver is untouched.
	assert.Equal(t, []common.Address{wbtc, weth, usdc}, route.Path)
	assert.Equal(t, route, reversed.Reverse())
}

func TestConstructorsCopyInputs(t *testing.T) {
	path := []common.Address{weth, usdc}
	fees := []uint32{500}
	route := NewConcentratedLiquidity(path, fees, nil)

	path[0] = wbtc
	fees[0] = 100

	assert.Equal(t, weth, route.Path[0])
	assert.Equal(t, uint32(500), route.Fees[0])

	in, ok := route.TokenIn()
	require.True(t, ok)
	assert.Equal(t, weth, in)
	out, ok := route.TokenOut()
	require.True(t, ok)
	assert.Equal(t, usdc, out)
	assert.Equal(t, 1, route.Hops())

	_, ok = Empty().TokenIn()
	assert.False(t, ok)
}
