// Package uniswapv2 routes swaps over constant-product pairs, reading
// reserves on demand and pricing paths with the local calculator.
package uniswapv2

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/onchain"
	"github.com/defistate/flashmint-quote-go/protocols/uniswapv2"
	calculator "github.com/defistate/flashmint-quote-go/protocols/uniswapv2/calculator"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultName   = "uniswapv2"
	defaultFeeBps = 30
)

const factoryABI = `[
{"type":"function","name":"getPair","stateMutability":"view","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"outputs":[{"name":"pair","type":"address"}]}
]`

const pairABI = `[
{"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"token1","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getReserves","stateMutability":"view","inputs":[],"outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]}
]`

var (
	parsedFactoryABI = mustParseABI(factoryABI)
	parsedPairABI    = mustParseABI(pairABI)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Config holds the configuration for the path router.
type Config struct {
	// Name overrides the source name, e.g. for Sushiswap forks.
	Name string
	// Factories holds the pair factory per chain.
	Factories map[uint64]common.Address
	FeeBps    uint16
	Callers   onchain.Callers
	Logger    chains.Logger
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if len(c.Factories) == 0 {
		return errors.New("config: Factories is required")
	}
	if c.Callers == nil {
		return errors.New("config: Callers is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Router quotes swaps along direct pairs or through the wrapped native token.
type Router struct {
	name      string
	factories map[uint64]common.Address
	feeBps    uint16
	callers   onchain.Callers
	logger    chains.Logger
}

// New creates a path router.
func New(cfg Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	fee := cfg.FeeBps
	if fee == 0 {
		fee = defaultFeeBps
	}
	factories := make(map[uint64]common.Address, len(cfg.Factories))
	for chainID, f := range cfg.Factories {
		factories[chainID] = f
	}
	return &Router{
		name:      name,
		factories: factories,
		feeBps:    fee,
		callers:   cfg.Callers,
		logger:    cfg.Logger,
	}, nil
}

func (r *Router) Name() string {
	return r.name
}

// GetSwapQuote prices the direct pair when the factory has one, otherwise
// the route through the chain's wrapped native token.
func (r *Router) GetSwapQuote(ctx context.Context, req swapquote.Request) (*swapquote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	factory, ok := r.factories[req.ChainID]
	if !ok {
		return nil, swapquote.ErrUnsupportedPair
	}
	caller, err := r.callers.ForChain(req.ChainID)
	if err != nil {
		return nil, swapquote.CallFailed(r.name, err)
	}

	in := chains.Canonicalize(req.ChainID, req.InputToken)
	out := chains.Canonicalize(req.ChainID, req.OutputToken)
	if in == out {
		return nil, swapquote.ErrUnsupportedPair
	}

	path := []common.Address{in, out}
	pools, err := r.loadPath(ctx, caller, factory, path)
	if errors.Is(err, swapquote.ErrUnsupportedPair) {
		weth, ok := chains.WrappedNative(req.ChainID)
		if !ok || in == weth || out == weth {
			return nil, err
		}
		path = []common.Address{in, weth, out}
		pools, err = r.loadPath(ctx, caller, factory, path)
	}
	if err != nil {
		return nil, err
	}

	q, err := r.price(path, pools, req.InputAmount, req.OutputAmount)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("V2 route priced", "source", r.name, "chain", req.ChainID, "hops", q.Route.Hops())
	return q, nil
}

// PriceRoute prices an explicit constant-product route. Exactly one of
// amountIn and amountOut is set; the other side is returned.
func (r *Router) PriceRoute(ctx context.Context, chainID uint64, route swaproute.SwapRoute, amountIn, amountOut *big.Int) (*big.Int, error) {
	if route.Exchange != swaproute.ConstantProduct {
		return nil, fmt.Errorf("%w: %s cannot price %s routes", swapquote.ErrUnsupportedPair, r.name, route.Exchange)
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	factory, ok := r.factories[chainID]
	if !ok {
		return nil, swapquote.ErrUnsupportedPair
	}
	caller, err := r.callers.ForChain(chainID)
	if err != nil {
		return nil, swapquote.CallFailed(r.name, err)
	}

	pools, err := r.loadPath(ctx, caller, factory, route.Path)
	if err != nil {
		return nil, err
	}
	q, err := r.price(route.Path, pools, amountIn, amountOut)
	if err != nil {
		return nil, err
	}
	if amountIn != nil {
		return q.OutputAmount, nil
	}
	return q.InputAmount, nil
}

func (r *Router) price(path []common.Address, pools []uniswapv2.Pool, amountIn, amountOut *big.Int) (*swapquote.Quote, error) {
	var (
		amounts []*big.Int
		err     error
	)
	if amountOut != nil {
		amounts, err = calculator.GetAmountsIn(amountOut, path, pools)
	} else {
		amounts, err = calculator.GetAmountsOut(amountIn, path, pools)
	}
	if errors.Is(err, calculator.ErrInsufficientLiquidity) {
		return nil, fmt.Errorf("%w: %v", swapquote.ErrInsufficientLiquidity, err)
	}
	if err != nil {
		return nil, err
	}
	return &swapquote.Quote{
		Source:       r.name,
		Route:        swaproute.NewConstantProduct(path),
		InputAmount:  amounts[0],
		OutputAmount: amounts[len(amounts)-1],
	}, nil
}

// loadPath reads the pair for every hop of path. A missing pair makes the
// path unsupported.
func (r *Router) loadPath(ctx context.Context, caller onchain.Caller, factory common.Address, path []common.Address) ([]uniswapv2.Pool, error) {
	pools := make([]uniswapv2.Pool, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		pool, err := r.loadPool(ctx, caller, factory, path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func (r *Router) loadPool(ctx context.Context, caller onchain.Caller, factory, tokenA, tokenB common.Address) (uniswapv2.Pool, error) {
	values, err := onchain.Call(ctx, caller, factory, parsedFactoryABI, "getPair", tokenA, tokenB)
	if err != nil {
		return uniswapv2.Pool{}, swapquote.CallFailed(r.name, err)
	}
	pair, _ := values[0].(common.Address)
	if pair == (common.Address{}) {
		return uniswapv2.Pool{}, fmt.Errorf("%w: no pair for %s/%s", swapquote.ErrUnsupportedPair, tokenA.Hex(), tokenB.Hex())
	}

	values, err = onchain.Call(ctx, caller, pair, parsedPairABI, "token0")
	if err != nil {
		return uniswapv2.Pool{}, swapquote.CallFailed(r.name, err)
	}
	token0, _ := values[0].(common.Address)

	values, err = onchain.Call(ctx, caller, pair, parsedPairABI, "getReserves")
	if err != nil {
		return uniswapv2.Pool{}, swapquote.CallFailed(r.name, err)
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return uniswapv2.Pool{}, swapquote.CallFailed(r.name, fmt.Errorf("unexpected reserves from %s", pair.Hex()))
	}

	token1 := tokenB
	if token0 == tokenB {
		token1 = tokenA
	}
	pool := uniswapv2.Pool{
		Address:  pair,
		Token0:   token0,
		Token1:   token1,
		Reserve0: reserve0,
		Reserve1: reserve1,
		FeeBps:   r.feeBps,
	}
	if !pool.Has(tokenA) || !pool.Has(tokenB) {
		return uniswapv2.Pool{}, swapquote.CallFailed(r.name, fmt.Errorf("pair %s reports token0 %s outside %s/%s", pair.Hex(), token0.Hex(), tokenA.Hex(), tokenB.Hex()))
	}
	return pool, nil
}
