package onchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/logging"
	"github.com/defistate/flashmint-quote-go/onchain/onchaintest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Setup: Mock RPC Server ---

type mockEthService struct {
	chainID uint64
}

func (s *mockEthService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).SetUint64(s.chainID))
}

func setupMockNode(t *testing.T, chainID uint64) string {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &mockEthService{chainID: chainID}))

	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	return httpServer.URL
}

func TestDial(t *testing.T) {
	logger := logging.NewNop()

	t.Run("connects and verifies chain id", func(t *testing.T) {
		url := setupMockNode(t, chains.Arbitrum)
		client, err := Dial(context.Background(), DialConfig{
			ChainID:     chains.Arbitrum,
			URL:         url,
			Logger:      logger,
			MaxAttempts: 1,
		})
		require.NoError(t, err)
		defer client.Close()
	})

	t.Run("chain id mismatch is not retried", func(t *testing.T) {
		url := setupMockNode(t, chains.Base)
		start := time.Now()
		_, err := Dial(context.Background(), DialConfig{
			ChainID:     chains.Mainnet,
			URL:         url,
			Logger:      logger,
			MaxAttempts: 5,
			RetryDelay:  time.Second,
		})
		require.ErrorIs(t, err, ErrChainIDMismatch)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		dead := httptest.NewServer(nil)
		deadURL := dead.URL
		dead.Close()

		_, err := Dial(context.Background(), DialConfig{
			ChainID:     chains.Mainnet,
			URL:         deadURL,
			Logger:      logger,
			MaxAttempts: 2,
			RetryDelay:  10 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})

	t.Run("invalid config", func(t *testing.T) {
		testCases := []struct {
			name string
			cfg  DialConfig
		}{
			{"missing chain id", DialConfig{URL: "http://x", Logger: logger, MaxAttempts: 1}},
			{"missing url", DialConfig{ChainID: 1, Logger: logger, MaxAttempts: 1}},
			{"missing logger", DialConfig{ChainID: 1, URL: "http://x", MaxAttempts: 1}},
			{"zero attempts", DialConfig{ChainID: 1, URL: "http://x", Logger: logger}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Dial(context.Background(), tc.cfg)
				require.Error(t, err)
				assert.Contains(t, err.Error(), "config:")
			})
		}
	})
}

func TestCallers(t *testing.T) {
	fake := onchaintest.NewFakeCaller()
	callers := Callers{chains.Mainnet: fake}

	got, err := callers.ForChain(chains.Mainnet)
	require.NoError(t, err)
	assert.Same(t, fake, got)

	_, err = callers.ForChain(chains.Base)
	assert.ErrorIs(t, err, ErrNoCaller)
}

type revertError struct{ data string }

func (e revertError) Error() string          { return "reverted" }
func (e revertError) ErrorCode() int         { return 3 }
func (e revertError) ErrorData() interface{} { return e.data }

func TestIsRevert(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "No error", err: nil, want: false},
		{name: "Node message", err: errors.New("execution reverted: SPL"), want: true},
		{name: "Wrapped rpc error with revert data", err: fmt.Errorf("call quote: %w", revertError{data: "0x08c379a0"}), want: true},
		{name: "Connection refused", err: errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"), want: false},
		{name: "Deadline", err: context.DeadlineExceeded, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRevert(tc.err))
		})
	}
}

func TestLeveragedReader(t *testing.T) {
	entry := contracts.Entry{
		ChainID: chains.Arbitrum,
		Address: common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Type:    contracts.FlashMintLeveraged,
	}
	setToken := common.HexToAddress("0x2000000000000000000000000000000000000002")
	want := contracts.LeveragedTokenData{
		CollateralAToken: common.HexToAddress("0x3000000000000000000000000000000000000003"),
		CollateralToken:  common.HexToAddress("0x4000000000000000000000000000000000000004"),
		CollateralAmount: big.NewInt(2_000_000),
		DebtToken:        common.HexToAddress("0x5000000000000000000000000000000000000005"),
		DebtAmount:       big.NewInt(1_000_000),
	}

	fake := onchaintest.NewFakeCaller()
	var gotArgs []any
	fake.Handle(entry.Address, entry.Type.ABI(), contracts.MethodGetLeveragedTokenData, func(args []any) ([]any, error) {
		gotArgs = args
		return []any{want}, nil
	})
	reader := NewLeveragedReader(Callers{chains.Arbitrum: fake})

	t.Run("decodes the position", func(t *testing.T) {
		data, err := reader.GetLeveragedTokenData(context.Background(), entry, setToken, big.NewInt(1e18), true)
		require.NoError(t, err)
		assert.Equal(t, want.CollateralToken, data.CollateralToken)
		assert.Equal(t, want.DebtToken, data.DebtToken)
		assert.Equal(t, 0, want.CollateralAmount.Cmp(data.CollateralAmount))
		assert.Equal(t, 0, want.DebtAmount.Cmp(data.DebtAmount))

		require.Len(t, gotArgs, 3)
		assert.Equal(t, setToken, gotArgs[0])
		assert.Equal(t, 0, big.NewInt(1e18).Cmp(gotArgs[1].(*big.Int)))
		assert.Equal(t, true, gotArgs[2])
	})

	t.Run("unknown chain", func(t *testing.T) {
		other := entry
		other.ChainID = chains.Base
		_, err := reader.GetLeveragedTokenData(context.Background(), other, setToken, big.NewInt(1), false)
		assert.ErrorIs(t, err, ErrNoCaller)
	})

	t.Run("revert is surfaced", func(t *testing.T) {
		failing := onchaintest.NewFakeCaller()
		boom := errors.New("execution reverted")
		failing.Handle(entry.Address, entry.Type.ABI(), contracts.MethodGetLeveragedTokenData, func([]any) ([]any, error) {
			return nil, boom
		})
		r := NewLeveragedReader(Callers{chains.Arbitrum: failing})
		_, err := r.GetLeveragedTokenData(context.Background(), entry, setToken, big.NewInt(1), true)
		assert.ErrorIs(t, err, boom)
	})
}

func TestTokenReader(t *testing.T) {
	usdc := common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	fake := onchaintest.NewFakeCaller()
	fake.Handle(usdc, parsedERC20, "decimals", func([]any) ([]any, error) {
		return []any{uint8(6)}, nil
	})

	reader, err := NewTokenReader(Callers{chains.Arbitrum: fake}, 16)
	require.NoError(t, err)

	t.Run("native asset needs no call", func(t *testing.T) {
		d, err := reader.Decimals(context.Background(), chains.Arbitrum, chains.NativeToken)
		require.NoError(t, err)
		assert.Equal(t, uint8(18), d)
		assert.Zero(t, fake.Calls("decimals"))
	})

	t.Run("reads once then caches", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			d, err := reader.Decimals(context.Background(), chains.Arbitrum, usdc)
			require.NoError(t, err)
			assert.Equal(t, uint8(6), d)
		}
		assert.Equal(t, 1, fake.Calls("decimals"))
	})

	t.Run("unknown token reverts", func(t *testing.T) {
		_, err := reader.Decimals(context.Background(), chains.Arbitrum, common.HexToAddress("0xdead"))
		assert.Error(t, err)
	})

	t.Run("balance of an ERC-20", func(t *testing.T) {
		holder := common.HexToAddress("0x1111111111111111111111111111111111111111")
		fake.Handle(usdc, parsedERC20, "balanceOf", func(args []any) ([]any, error) {
			if args[0].(common.Address) != holder {
				return []any{big.NewInt(0)}, nil
			}
			return []any{big.NewInt(2_500_000)}, nil
		})

		balance, err := reader.BalanceOf(context.Background(), chains.Arbitrum, usdc, holder)
		require.NoError(t, err)
		assert.Equal(t, int64(2_500_000), balance.Int64())
	})

	t.Run("native balance needs BalanceAt", func(t *testing.T) {
		_, err := reader.BalanceOf(context.Background(), chains.Arbitrum, chains.NativeToken, common.Address{})
		assert.ErrorIs(t, err, ErrNoNativeBalance)
	})
}
