package onchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const erc20ABI = `[
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var parsedERC20 = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

const nativeDecimals = 18

// ErrNoNativeBalance is returned when the chain's caller cannot read native balances.
var ErrNoNativeBalance = errors.New("caller cannot read native balances")

// balanceReader is satisfied by *ethclient.Client.
type balanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type tokenKey struct {
	chainID uint64
	token   common.Address
}

// TokenReader reads ERC-20 metadata and caches it, since decimals never change.
type TokenReader struct {
	callers Callers
	cache   *lru.Cache[tokenKey, uint8]
}

// NewTokenReader creates a reader caching up to cacheSize tokens.
func NewTokenReader(callers Callers, cacheSize int) (*TokenReader, error) {
	cache, err := lru.New[tokenKey, uint8](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decimals cache: %w", err)
	}
	return &TokenReader{callers: callers, cache: cache}, nil
}

// Decimals returns the token's decimals. The native asset has 18.
func (r *TokenReader) Decimals(ctx context.Context, chainID uint64, token common.Address) (uint8, error) {
	if chains.IsNative(token) {
		return nativeDecimals, nil
	}

	key := tokenKey{chainID: chainID, token: token}
	if d, ok := r.cache.Get(key); ok {
		return d, nil
	}

	caller, err := r.callers.ForChain(chainID)
	if err != nil {
		return 0, err
	}
	values, err := Call(ctx, caller, token, parsedERC20, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned %T", values[0])
	}

	r.cache.Add(key, d)
	return d, nil
}

// BalanceOf returns account's balance of token at the latest block. Native
// balances need a caller that also implements BalanceAt.
func (r *TokenReader) BalanceOf(ctx context.Context, chainID uint64, token, account common.Address) (*big.Int, error) {
	caller, err := r.callers.ForChain(chainID)
	if err != nil {
		return nil, err
	}
	if chains.IsNative(token) {
		br, ok := caller.(balanceReader)
		if !ok {
			return nil, fmt.Errorf("%w: chain %d", ErrNoNativeBalance, chainID)
		}
		return br.BalanceAt(ctx, account, nil)
	}
	return CallUint256(ctx, caller, token, parsedERC20, "balanceOf", account)
}
