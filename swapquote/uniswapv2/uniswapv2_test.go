package uniswapv2

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/logging"
	"github.com/defistate/flashmint-quote-go/onchain"
	"github.com/defistate/flashmint-quote-go/onchain/onchaintest"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	factory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	usdc    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	wbtc    = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	weth, _ = chains.WrappedNative(chains.Mainnet)
)

type pairState struct {
	address  common.Address
	tokenA   common.Address
	tokenB   common.Address
	reserveA int64
	reserveB int64
}

// setupPairs registers a factory and the given pairs on a fake caller.
// token0 is the lower address, as in the real factory.
func setupPairs(pairs ...pairState) *onchaintest.FakeCaller {
	fake := onchaintest.NewFakeCaller()
	byTokens := make(map[[2]common.Address]common.Address)

	for _, p := range pairs {
		token0, token1 := p.tokenA, p.tokenB
		r0, r1 := big.NewInt(p.reserveA), big.NewInt(p.reserveB)
		if bytes.Compare(token0.Bytes(), token1.Bytes()) > 0 {
			token0, token1 = token1, token0
			r0, r1 = r1, r0
		}
		byTokens[[2]common.Address{token0, token1}] = p.address

		fake.Handle(p.address, parsedPairABI, "token0", func([]any) ([]any, error) {
			return []any{token0}, nil
		})
		fake.Handle(p.address, parsedPairABI, "getReserves", func([]any) ([]any, error) {
			return []any{r0, r1, uint32(1_700_000_000)}, nil
		})
	}

	fake.Handle(factory, parsedFactoryABI, "getPair", func(args []any) ([]any, error) {
		a, b := args[0].(common.Address), args[1].(common.Address)
		if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
			a, b = b, a
		}
		return []any{byTokens[[2]common.Address{a, b}]}, nil
	})
	return fake
}

var (
	usdcWeth = pairState{common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"), usdc, weth, 1_000_000, 1_000_000_000}
	wethWbtc = pairState{common.HexToAddress("0xBb2b8038a1640196FbE3e38816F3e67Cba72D940"), weth, wbtc, 1_000_000_000, 50_000_000}
	usdcWbtc = pairState{common.HexToAddress("0x004375Dff511095CC5A197A54140a24eFEF3A416"), usdc, wbtc, 1_000_000, 400_000}
)

func newTestRouter(t *testing.T, fake *onchaintest.FakeCaller) *Router {
	t.Helper()
	r, err := New(Config{
		Factories: map[uint64]common.Address{chains.Mainnet: factory},
		Callers:   onchain.Callers{chains.Mainnet: fake},
		Logger:    logging.NewNop(),
	})
	require.NoError(t, err)
	return r
}

func TestGetSwapQuote(t *testing.T) {
	testCases := []struct {
		name         string
		pairs        []pairState
		req          swapquote.Request
		expectedPath []common.Address
		expectedIn   int64
		expectedOut  int64
	}{
		{
			name:  "Exact input through WETH when no direct pair exists",
			pairs: []pairState{usdcWeth, wethWbtc},
			req: swapquote.Request{
				ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, InputAmount: big.NewInt(10_000),
			},
			expectedPath: []common.Address{usdc, weth, wbtc},
			expectedIn:   10_000,
			expectedOut:  487_302,
		},
		{
			name:  "Exact input takes the direct pair even when WETH pays more",
			pairs: []pairState{usdcWeth, wethWbtc, usdcWbtc},
			req: swapquote.Request{
				ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, InputAmount: big.NewInt(10_000),
			},
			expectedPath: []common.Address{usdc, wbtc},
			expectedIn:   10_000,
			expectedOut:  3_948,
		},
		{
			name:  "Exact output takes the direct pair",
			pairs: []pairState{usdcWeth, wethWbtc, usdcWbtc},
			req: swapquote.Request{
				ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, OutputAmount: big.NewInt(100),
			},
			expectedPath: []common.Address{usdc, wbtc},
			expectedIn:   251,
			expectedOut:  100,
		},
		{
			name:  "Exact output through WETH when no direct pair exists",
			pairs: []pairState{usdcWeth, wethWbtc},
			req: swapquote.Request{
				ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, OutputAmount: big.NewInt(100),
			},
			expectedPath: []common.Address{usdc, weth, wbtc},
			expectedIn:   3,
			expectedOut:  100,
		},
		{
			name:  "Direct pair only",
			pairs: []pairState{usdcWbtc},
			req: swapquote.Request{
				ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, InputAmount: big.NewInt(10_000),
			},
			expectedPath: []common.Address{usdc, wbtc},
			expectedIn:   10_000,
			expectedOut:  3_948,
		},
		{
			name:  "Native input is routed as WETH",
			pairs: []pairState{usdcWeth},
			req: swapquote.Request{
				ChainID: chains.Mainnet, InputToken: chains.NativeToken, OutputToken: usdc, OutputAmount: big.NewInt(100),
			},
			expectedPath: []common.Address{weth, usdc},
			expectedIn:   100_311,
			expectedOut:  100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, setupPairs(tc.pairs...))
			q, err := r.GetSwapQuote(context.Background(), tc.req)
			require.NoError(t, err)

			assert.Equal(t, DefaultName, q.Source)
			assert.Equal(t, swaproute.ConstantProduct, q.Route.Exchange)
			assert.Equal(t, tc.expectedPath, q.Route.Path)
			assert.Equal(t, tc.expectedIn, q.InputAmount.Int64())
			assert.Equal(t, tc.expectedOut, q.OutputAmount.Int64())
		})
	}
}

func TestGetSwapQuoteErrors(t *testing.T) {
	t.Run("no pairs at all", func(t *testing.T) {
		r := newTestRouter(t, setupPairs())
		_, err := r.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, InputAmount: big.NewInt(1),
		})
		assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
	})

	t.Run("output above reserves", func(t *testing.T) {
		r := newTestRouter(t, setupPairs(usdcWbtc))
		_, err := r.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, OutputAmount: big.NewInt(400_000),
		})
		assert.ErrorIs(t, err, swapquote.ErrInsufficientLiquidity)
	})

	t.Run("factory unreachable", func(t *testing.T) {
		fake := onchaintest.NewFakeCaller()
		fake.Handle(factory, parsedFactoryABI, "getPair", func([]any) ([]any, error) {
			return nil, errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
		})
		r := newTestRouter(t, fake)
		_, err := r.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Mainnet, InputToken: usdc, OutputToken: wbtc, InputAmount: big.NewInt(1),
		})

		var callFailed *swapquote.CallFailedError
		require.ErrorAs(t, err, &callFailed)
		assert.Equal(t, DefaultName, callFailed.Source)
		assert.NotErrorIs(t, err, swapquote.ErrUnsupportedPair)
		assert.Equal(t, 1, fake.Calls("getPair"))
	})

	t.Run("chain without factory", func(t *testing.T) {
		r := newTestRouter(t, setupPairs(usdcWbtc))
		_, err := r.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID: chains.Base, InputToken: usdc, OutputToken: wbtc, InputAmount: big.NewInt(1),
		})
		assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
	})
}

func TestPriceRoute(t *testing.T) {
	r := newTestRouter(t, setupPairs(usdcWeth, wethWbtc))
	route := swaproute.NewConstantProduct([]common.Address{usdc, weth, wbtc})

	out, err := r.PriceRoute(context.Background(), chains.Mainnet, route, big.NewInt(10_000), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(487_302), out.Int64())

	in, err := r.PriceRoute(context.Background(), chains.Mainnet, route, nil, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, int64(3), in.Int64())

	_, err = r.PriceRoute(context.Background(), chains.Mainnet, swaproute.NewConcentratedLiquidity([]common.Address{usdc, weth}, []uint32{500}, nil), big.NewInt(1), nil)
	assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
}
