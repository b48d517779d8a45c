package swapquote

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func TestRequestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "Exact input", req: Request{InputToken: weth, OutputToken: usdc, InputAmount: big.NewInt(1)}},
		{name: "Exact output", req: Request{InputToken: weth, OutputToken: usdc, OutputAmount: big.NewInt(1)}},
		{name: "Both amounts", req: Request{InputToken: weth, OutputToken: usdc, InputAmount: big.NewInt(1), OutputAmount: big.NewInt(1)}, wantErr: true},
		{name: "No amount", req: Request{InputToken: weth, OutputToken: usdc}, wantErr: true},
		{name: "Zero amount", req: Request{InputToken: weth, OutputToken: usdc, InputAmount: big.NewInt(0)}, wantErr: true},
		{name: "Same token", req: Request{InputToken: weth, OutputToken: weth, InputAmount: big.NewInt(1)}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCallFailed(t *testing.T) {
	boom := errors.New("connection reset")

	err := CallFailed("zeroex", boom)
	var cf *CallFailedError
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "zeroex", cf.Source)
	assert.ErrorIs(t, err, boom)

	assert.Same(t, err, CallFailed("other", err), "already wrapped errors are kept")
	assert.Equal(t, ErrInsufficientLiquidity, CallFailed("zeroex", ErrInsufficientLiquidity))
}

type stubProvider struct {
	quote *Quote
	err   error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) GetSwapQuote(context.Context, Request) (*Quote, error) {
	return s.quote, s.err
}

func TestInstrument(t *testing.T) {
	registry := prometheus.NewRegistry()

	ok, err := Instrument(stubProvider{quote: &Quote{Source: "stub"}}, registry)
	require.NoError(t, err)
	failing, err := Instrument(stubProvider{err: ErrInsufficientLiquidity}, registry)
	require.NoError(t, err, "a second instrumented provider reuses the collectors")

	_, err = ok.GetSwapQuote(context.Background(), Request{})
	require.NoError(t, err)
	_, err = failing.GetSwapQuote(context.Background(), Request{})
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	m, err := newMetrics(registry)
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, m.requests.WithLabelValues("stub", "ok")))
	assert.Equal(t, 1.0, counterValue(t, m.requests.WithLabelValues("stub", "no_liquidity")))
	assert.Equal(t, "stub", ok.Name())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "unsupported", Outcome(ErrUnsupportedPair))
	assert.Equal(t, "call_failed", Outcome(CallFailed("x", errors.New("eof"))))
	assert.Equal(t, "cancelled", Outcome(context.Canceled))
	assert.Equal(t, "error", Outcome(errors.New("other")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
