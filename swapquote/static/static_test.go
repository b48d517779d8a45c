package static

import (
	"context"
	"math/big"
	"testing"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/logging"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPricer returns twice the fixed amount and remembers the route it priced.
type recordingPricer struct {
	route swaproute.SwapRoute
}

func (r *recordingPricer) PriceRoute(_ context.Context, _ uint64, route swaproute.SwapRoute, amountIn, amountOut *big.Int) (*big.Int, error) {
	r.route = route
	if amountIn != nil {
		return new(big.Int).Mul(amountIn, big.NewInt(2)), nil
	}
	return new(big.Int).Mul(amountOut, big.NewInt(2)), nil
}

func TestNewTable(t *testing.T) {
	t.Run("Default table is valid", func(t *testing.T) {
		assert.Equal(t, len(DefaultEntries()), Default().Len())
	})

	t.Run("Duplicate entries are rejected", func(t *testing.T) {
		e := DefaultEntries()[0]
		_, err := NewTable([]Entry{e, e})
		assert.ErrorIs(t, err, ErrDuplicateEntry)
	})

	t.Run("Route must start at the counter token", func(t *testing.T) {
		e := DefaultEntries()[2]
		e.CounterToken = baseWETH
		_, err := NewTable([]Entry{e})
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})

	t.Run("Invalid routes are rejected", func(t *testing.T) {
		_, err := NewTable([]Entry{{
			ChainID: chains.Base, IndexSymbol: "ETH2X", CounterToken: baseUSDC,
			Route: swaproute.NewConcentratedLiquidity([]common.Address{baseUSDC, baseWETH}, nil, nil),
		}})
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})
}

func TestLookup(t *testing.T) {
	table := Default()

	t.Run("Minting returns the authored route", func(t *testing.T) {
		route, ok := table.Lookup(chains.Base, "eth2x", baseUSDC, true)
		require.True(t, ok)
		assert.Equal(t, []common.Address{baseUSDC, baseWETH}, route.Path)
		assert.Equal(t, []int32{slipstreamTickSpacing}, route.TickSpacings)
	})

	t.Run("Redeeming returns the reversed route", func(t *testing.T) {
		route, ok := table.Lookup(chains.Base, "ETH2X", baseUSDC, false)
		require.True(t, ok)
		assert.Equal(t, []common.Address{baseWETH, baseUSDC}, route.Path)
	})

	t.Run("Native counter token falls back to WETH", func(t *testing.T) {
		route, ok := table.Lookup(chains.Base, "BTC2X", chains.NativeToken, true)
		require.True(t, ok)
		assert.Equal(t, []common.Address{baseWETH, baseCBBTC}, route.Path)
	})

	t.Run("Unknown chain or counter token", func(t *testing.T) {
		_, ok := table.Lookup(chains.Arbitrum, "ETH2X", baseUSDC, true)
		assert.False(t, ok)
		_, ok = table.Lookup(chains.Base, "ETH2X", baseCBBTC, true)
		assert.False(t, ok)
	})
}

func TestGetSwapQuote(t *testing.T) {
	pricer := &recordingPricer{}
	p, err := New(Config{
		Table: Default(),
		Pricers: map[swaproute.Exchange]swapquote.RoutePricer{
			swaproute.ConcentratedLiquidity: pricer,
		},
		Logger: logging.NewNop(),
	})
	require.NoError(t, err)

	t.Run("Mint leg prices the authored route", func(t *testing.T) {
		q, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Base, InputToken: baseUSDC, OutputToken: baseWETH,
			OutputAmount: big.NewInt(50), IndexSymbol: "ETH2X", IsMinting: true,
		})
		require.NoError(t, err)
		assert.Equal(t, Name, q.Source)
		assert.Equal(t, int64(100), q.InputAmount.Int64())
		assert.Equal(t, int64(50), q.OutputAmount.Int64())
		assert.Equal(t, []common.Address{baseUSDC, baseWETH}, pricer.route.Path)
	})

	t.Run("Redeem leg prices the reversed route", func(t *testing.T) {
		q, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Base, InputToken: baseWETH, OutputToken: baseUSDC,
			InputAmount: big.NewInt(10), IndexSymbol: "ETH2X",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(20), q.OutputAmount.Int64())
		assert.Equal(t, []common.Address{baseWETH, baseUSDC}, q.Route.Path)
	})

	t.Run("Request tokens must match the route", func(t *testing.T) {
		_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Base, InputToken: baseUSDC, OutputToken: baseCBBTC,
			InputAmount: big.NewInt(10), IndexSymbol: "ETH2X", IsMinting: true,
		})
		assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
	})

	t.Run("No pricer for the route kind", func(t *testing.T) {
		_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Mainnet, InputToken: chains.NativeToken, OutputToken: stETH,
			InputAmount: big.NewInt(10), IndexSymbol: "icETH", IsMinting: true,
		})
		assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
	})

	t.Run("Missing index symbol", func(t *testing.T) {
		_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Base, InputToken: baseUSDC, OutputToken: baseWETH, InputAmount: big.NewInt(1),
		})
		assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
	})
}
