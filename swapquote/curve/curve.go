// Package curve quotes swaps against single Curve pools such as stETH/ETH.
package curve

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/convergence"
	"github.com/defistate/flashmint-quote-go/onchain"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	Name = "curve"

	defaultToleranceBps = 10
	defaultHeadroomBps  = 100
)

const poolABI = `[
{"type":"function","name":"get_dy","stateMutability":"view","inputs":[{"name":"i","type":"int128"},{"name":"j","type":"int128"},{"name":"dx","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var parsedPoolABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// StETHETHPool is the mainnet stETH/ETH pool. Coin 0 is native ETH.
var StETHETHPool = Pool{
	ChainID: chains.Mainnet,
	Address: common.HexToAddress("0xDC24316b9AE028F1497c275EB9192a3Ea0f67022"),
	Coins: []common.Address{
		chains.NativeToken,
		common.HexToAddress("0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84"),
	},
}

// Pool is a Curve pool and its coins in index order.
type Pool struct {
	ChainID uint64
	Address common.Address
	Coins   []common.Address
}

// Config holds the configuration for the Curve adapter.
type Config struct {
	Pools        []Pool
	Callers      onchain.Callers
	ToleranceBps uint64
	HeadroomBps  uint64
	MaxRequests  int
	Logger       chains.Logger
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if len(c.Pools) == 0 {
		return errors.New("config: Pools is required")
	}
	if c.Callers == nil {
		return errors.New("config: Callers is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	for _, p := range c.Pools {
		if len(p.Coins) < 2 {
			return fmt.Errorf("config: pool %s needs at least two coins", p.Address.Hex())
		}
	}
	return nil
}

// Provider is a swapquote.Provider over a fixed set of Curve pools.
type Provider struct {
	pools        []Pool
	callers      onchain.Callers
	toleranceBps uint64
	headroomBps  uint64
	engine       *convergence.Engine
	logger       chains.Logger
}

// New creates a Curve provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tolerance := cfg.ToleranceBps
	if tolerance == 0 {
		tolerance = defaultToleranceBps
	}
	headroom := cfg.HeadroomBps
	if headroom == 0 {
		headroom = defaultHeadroomBps
	}
	return &Provider{
		pools:        cfg.Pools,
		callers:      cfg.Callers,
		toleranceBps: tolerance,
		headroomBps:  headroom,
		engine:       convergence.New(cfg.MaxRequests),
		logger:       cfg.Logger,
	}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GetSwapQuote quotes req on the first pool holding both tokens. WETH is
// treated as the pool's native coin.
func (p *Provider) GetSwapQuote(ctx context.Context, req swapquote.Request) (*swapquote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pool, i, j, ok := p.findPool(req.ChainID, req.InputToken, req.OutputToken)
	if !ok {
		return nil, swapquote.ErrUnsupportedPair
	}
	caller, err := p.callers.ForChain(req.ChainID)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}

	getDy := func(ctx context.Context, from, to int, dx *big.Int) (*big.Int, error) {
		dy, err := onchain.CallUint256(ctx, caller, pool.Address, parsedPoolABI, "get_dy", big.NewInt(int64(from)), big.NewInt(int64(to)), dx)
		if err != nil {
			return nil, swapquote.CallFailed(Name, err)
		}
		return dy, nil
	}

	route := swaproute.NewStable(pool.Address, req.InputToken, req.OutputToken)

	if !req.ExactOutput() {
		out, err := getDy(ctx, i, j, req.InputAmount)
		if err != nil {
			return nil, err
		}
		if out.Sign() == 0 {
			return nil, fmt.Errorf("%w: curve pool %s returned zero", swapquote.ErrInsufficientLiquidity, pool.Address.Hex())
		}
		return &swapquote.Quote{Source: Name, Route: route, InputAmount: new(big.Int).Set(req.InputAmount), OutputAmount: out}, nil
	}

	maxSell := req.MaxInputAmount
	if maxSell == nil {
		probe, err := getDy(ctx, j, i, req.OutputAmount)
		if err != nil {
			return nil, err
		}
		maxSell = new(big.Int).Mul(probe, new(big.Int).SetUint64(10_000+p.headroomBps))
		maxSell.Quo(maxSell, big.NewInt(10_000))
		if maxSell.Sign() == 0 {
			return nil, fmt.Errorf("%w: curve pool %s returned zero", swapquote.ErrInsufficientLiquidity, pool.Address.Hex())
		}
	}

	quoteFn := func(ctx context.Context, sell *big.Int) (*big.Int, struct{}, error) {
		out, err := getDy(ctx, i, j, sell)
		return out, struct{}{}, err
	}
	res, err := convergence.Converge(ctx, p.engine, quoteFn, convergence.NewTarget(req.OutputAmount, p.toleranceBps), maxSell)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Curve convergence finished", "pool", pool.Address.Hex(), "attempts", res.Attempts)
	return &swapquote.Quote{Source: Name, Route: route, InputAmount: res.SellAmount, OutputAmount: res.BuyAmount}, nil
}

func (p *Provider) findPool(chainID uint64, in, out common.Address) (Pool, int, int, bool) {
	for _, pool := range p.pools {
		if pool.ChainID != chainID {
			continue
		}
		i, j := coinIndex(chainID, pool, in), coinIndex(chainID, pool, out)
		if i >= 0 && j >= 0 && i != j {
			return pool, i, j, true
		}
	}
	return Pool{}, -1, -1, false
}

func coinIndex(chainID uint64, pool Pool, token common.Address) int {
	for idx, coin := range pool.Coins {
		if chains.SameAsset(chainID, coin, token) {
			return idx
		}
	}
	return -1
}

// PriceRoute prices a stable route through one of the configured pools.
func (p *Provider) PriceRoute(ctx context.Context, chainID uint64, route swaproute.SwapRoute, amountIn, amountOut *big.Int) (*big.Int, error) {
	if route.Exchange != swaproute.Stable || route.Pool == (common.Address{}) {
		return nil, fmt.Errorf("%w: %s cannot price %s routes", swapquote.ErrUnsupportedPair, Name, route.Exchange)
	}
	in, _ := route.TokenIn()
	out, _ := route.TokenOut()
	pool, _, _, ok := p.findPool(chainID, in, out)
	if !ok || pool.Address != route.Pool {
		return nil, fmt.Errorf("%w: pool %s is not configured", swapquote.ErrUnsupportedPair, route.Pool.Hex())
	}

	q, err := p.GetSwapQuote(ctx, swapquote.Request{
		ChainID:      chainID,
		InputToken:   in,
		OutputToken:  out,
		InputAmount:  amountIn,
		OutputAmount: amountOut,
	})
	if err != nil {
		return nil, err
	}
	if amountIn != nil {
		return q.OutputAmount, nil
	}
	return q.InputAmount, nil
}
