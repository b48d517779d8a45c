package uniswapapi

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/codec"
	"github.com/defistate/flashmint-quote-go/logging"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	usdc   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	wbtc   = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	router = common.HexToAddress("0x66a9893cC07D91D95644AEDD05D03f95e1dBA8Af")
)

// mockTradingAPI answers every quote with calldata for route.
type mockTradingAPI struct {
	t       *testing.T
	route   swaproute.SwapRoute
	status  int
	errCode string
	last    quoteRequest
}

func (m *mockTradingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	require.Equal(m.t, "/quote", r.URL.Path)
	require.Equal(m.t, http.MethodPost, r.Method)
	require.Equal(m.t, "test-key", r.Header.Get("x-api-key"))
	require.NoError(m.t, json.NewDecoder(r.Body).Decode(&m.last))

	w.Header().Set("Content-Type", "application/json")
	if m.status != 0 {
		w.WriteHeader(m.status)
		_ = json.NewEncoder(w).Encode(errorResponse{ErrorCode: m.errCode, Detail: "no quotes available"})
		return
	}

	amount, _ := new(big.Int).SetString(m.last.Amount, 10)
	in, out := amount, new(big.Int).Mul(amount, big.NewInt(3))
	if m.last.Type == exactOutput {
		in, out = new(big.Int).Quo(amount, big.NewInt(3)), amount
	}
	callData, err := codec.EncodeUniversalRouter(m.route, in, out, common.HexToAddress("0x1"), big.NewInt(1_900_000_000))
	require.NoError(m.t, err)

	var resp quoteResponse
	resp.Routing = "CLASSIC"
	resp.Quote.Input = tokenAmount{Token: m.last.TokenIn, Amount: in.String()}
	resp.Quote.Output = tokenAmount{Token: m.last.TokenOut, Amount: out.String()}
	resp.Quote.MethodParameters.To = router
	resp.Quote.MethodParameters.Calldata = hexutil.Bytes(callData)
	resp.Quote.MethodParameters.Value = "0x00"
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestProvider(t *testing.T, mock *mockTradingAPI) *Provider {
	t.Helper()
	mock.t = t
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	p, err := New(Config{
		BaseURL:           server.URL,
		APIKey:            "test-key",
		Chains:            []uint64{chains.Mainnet},
		RequestsPerSecond: 1000,
		Logger:            logging.NewNop(),
	})
	require.NoError(t, err)
	return p
}

func TestGetSwapQuote(t *testing.T) {
	t.Run("exact input decodes a multi hop V3 route", func(t *testing.T) {
		mock := &mockTradingAPI{route: swaproute.NewConcentratedLiquidity([]common.Address{usdc, weth, wbtc}, []uint32{500, 3000}, nil)}
		p := newTestProvider(t, mock)

		q, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID:     chains.Mainnet,
			InputToken:  usdc,
			OutputToken: wbtc,
			InputAmount: big.NewInt(1_000),
			Slippage:    decimal.RequireFromString("0.5"),
		})
		require.NoError(t, err)

		assert.Equal(t, swaproute.ConcentratedLiquidity, q.Route.Exchange)
		assert.Equal(t, []common.Address{usdc, weth, wbtc}, q.Route.Path)
		assert.Equal(t, []uint32{500, 3000}, q.Route.Fees)
		assert.Equal(t, int64(1_000), q.InputAmount.Int64())
		assert.Equal(t, int64(3_000), q.OutputAmount.Int64())

		assert.Equal(t, exactInput, mock.last.Type)
		require.NotNil(t, mock.last.SlippageTolerance)
		assert.InDelta(t, 0.5, *mock.last.SlippageTolerance, 1e-9)
	})

	t.Run("exact output with native input matches the wrapped path", func(t *testing.T) {
		mock := &mockTradingAPI{route: swaproute.NewConstantProduct([]common.Address{weth, usdc})}
		p := newTestProvider(t, mock)

		q, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID:      chains.Mainnet,
			InputToken:   chains.NativeToken,
			OutputToken:  usdc,
			OutputAmount: big.NewInt(3_000),
		})
		require.NoError(t, err)

		assert.Equal(t, swaproute.ConstantProduct, q.Route.Exchange)
		assert.Equal(t, int64(1_000), q.InputAmount.Int64())
		assert.Equal(t, exactOutput, mock.last.Type)
		assert.Equal(t, common.Address{}.Hex(), mock.last.TokenIn)
	})

	t.Run("calldata for a different pair is rejected", func(t *testing.T) {
		mock := &mockTradingAPI{route: swaproute.NewConcentratedLiquidity([]common.Address{usdc, weth}, []uint32{500}, nil)}
		p := newTestProvider(t, mock)

		_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID:     chains.Mainnet,
			InputToken:  usdc,
			OutputToken: wbtc,
			InputAmount: big.NewInt(1_000),
		})
		assert.ErrorIs(t, err, swaproute.ErrInvalidSwapRoute)
	})

	t.Run("no route maps to insufficient liquidity", func(t *testing.T) {
		testCases := []struct {
			name    string
			status  int
			errCode string
		}{
			{"not found", http.StatusNotFound, "QUOTE_ERROR"},
			{"no route code", http.StatusBadRequest, noRouteCode},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				p := newTestProvider(t, &mockTradingAPI{status: tc.status, errCode: tc.errCode})
				_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
					ChainID:     chains.Mainnet,
					InputToken:  usdc,
					OutputToken: weth,
					InputAmount: big.NewInt(1_000),
				})
				assert.ErrorIs(t, err, swapquote.ErrInsufficientLiquidity)
			})
		}
	})

	t.Run("server error is a call failure", func(t *testing.T) {
		p := newTestProvider(t, &mockTradingAPI{status: http.StatusBadGateway})
		_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID:     chains.Mainnet,
			InputToken:  usdc,
			OutputToken: weth,
			InputAmount: big.NewInt(1_000),
		})
		var cf *swapquote.CallFailedError
		assert.ErrorAs(t, err, &cf)
	})

	t.Run("unconfigured chain is unsupported", func(t *testing.T) {
		p := newTestProvider(t, &mockTradingAPI{})
		_, err := p.GetSwapQuote(context.Background(), swapquote.Request{
			ChainID:     chains.Arbitrum,
			InputToken:  usdc,
			OutputToken: weth,
			InputAmount: big.NewInt(1_000),
		})
		assert.ErrorIs(t, err, swapquote.ErrUnsupportedPair)
	})
}
