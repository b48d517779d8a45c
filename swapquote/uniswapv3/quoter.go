// Package uniswapv3 prices concentrated-liquidity paths with the on-chain
// QuoterV2 contract.
package uniswapv3

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/codec"
	"github.com/defistate/flashmint-quote-go/onchain"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const Name = "uniswapv3"

// DefaultFeeTiers are the fee tiers tried for direct pairs.
var DefaultFeeTiers = []uint32{100, 500, 3000, 10000}

const quoterABI = `[
{"type":"function","name":"quoteExactInput","stateMutability":"nonpayable","inputs":[{"name":"path","type":"bytes"},{"name":"amountIn","type":"uint256"}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96AfterList","type":"uint160[]"},{"name":"initializedTicksCrossedList","type":"uint32[]"},{"name":"gasEstimate","type":"uint256"}]},
{"type":"function","name":"quoteExactOutput","stateMutability":"nonpayable","inputs":[{"name":"path","type":"bytes"},{"name":"amountOut","type":"uint256"}],"outputs":[{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceX96AfterList","type":"uint160[]"},{"name":"initializedTicksCrossedList","type":"uint32[]"},{"name":"gasEstimate","type":"uint256"}]}
]`

var parsedQuoterABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(quoterABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Config holds the configuration for the QuoterV2 pricer.
type Config struct {
	// Quoters holds the QuoterV2 deployment per chain.
	Quoters  map[uint64]common.Address
	FeeTiers []uint32
	Callers  onchain.Callers
	Logger   chains.Logger
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if len(c.Quoters) == 0 {
		return errors.New("config: Quoters is required")
	}
	if c.Callers == nil {
		return errors.New("config: Callers is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Quoter prices explicit V3 paths and quotes direct pairs over fee tiers.
type Quoter struct {
	quoters  map[uint64]common.Address
	feeTiers []uint32
	callers  onchain.Callers
	logger   chains.Logger
}

// New creates a QuoterV2 pricer.
func New(cfg Config) (*Quoter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tiers := slices.Clone(cfg.FeeTiers)
	if len(tiers) == 0 {
		tiers = slices.Clone(DefaultFeeTiers)
	}
	quoters := make(map[uint64]common.Address, len(cfg.Quoters))
	for chainID, q := range cfg.Quoters {
		quoters[chainID] = q
	}
	return &Quoter{quoters: quoters, feeTiers: tiers, callers: cfg.Callers, logger: cfg.Logger}, nil
}

func (q *Quoter) Name() string {
	return Name
}

// PriceRoute prices a concentrated-liquidity route. Exactly one of amountIn
// and amountOut is set; the other side is returned.
func (q *Quoter) PriceRoute(ctx context.Context, chainID uint64, route swaproute.SwapRoute, amountIn, amountOut *big.Int) (*big.Int, error) {
	if route.Exchange != swaproute.ConcentratedLiquidity {
		return nil, fmt.Errorf("%w: %s cannot price %s routes", swapquote.ErrUnsupportedPair, Name, route.Exchange)
	}
	if (amountIn == nil) == (amountOut == nil) {
		return nil, fmt.Errorf("%w: exactly one of amountIn and amountOut must be set", swapquote.ErrInvalidRequest)
	}
	quoter, ok := q.quoters[chainID]
	if !ok {
		return nil, swapquote.ErrUnsupportedPair
	}
	caller, err := q.callers.ForChain(chainID)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}

	method, amount, packed := "quoteExactInput", amountIn, route
	if amountOut != nil {
		// exact output paths are encoded from the output token backwards
		method, amount, packed = "quoteExactOutput", amountOut, route.Reverse()
	}
	path, err := codec.PackedPath(packed)
	if err != nil {
		return nil, err
	}

	values, err := onchain.Call(ctx, caller, quoter, parsedQuoterABI, method, path, amount)
	if err != nil {
		if onchain.IsRevert(err) {
			return nil, fmt.Errorf("%w: %s reverted: %v", swapquote.ErrInsufficientLiquidity, method, err)
		}
		return nil, swapquote.CallFailed(Name, err)
	}
	result, ok := values[0].(*big.Int)
	if !ok {
		return nil, swapquote.CallFailed(Name, fmt.Errorf("%s returned %T", method, values[0]))
	}
	return result, nil
}

// GetSwapQuote quotes the direct pool of every configured fee tier and
// returns the best one.
func (q *Quoter) GetSwapQuote(ctx context.Context, req swapquote.Request) (*swapquote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, ok := q.quoters[req.ChainID]; !ok {
		return nil, swapquote.ErrUnsupportedPair
	}
	in := chains.Canonicalize(req.ChainID, req.InputToken)
	out := chains.Canonicalize(req.ChainID, req.OutputToken)
	if in == out {
		return nil, swapquote.ErrUnsupportedPair
	}

	var (
		best       *swapquote.Quote
		lastErr    error
		callFailed *swapquote.CallFailedError
	)
	for _, fee := range q.feeTiers {
		route := swaproute.NewConcentratedLiquidity([]common.Address{in, out}, []uint32{fee}, nil)
		priced, err := q.PriceRoute(ctx, req.ChainID, route, req.InputAmount, req.OutputAmount)
		if err != nil {
			if ctx.Err() != nil {
				return nil, swapquote.CallFailed(Name, ctx.Err())
			}
			q.logger.Debug("Fee tier quote failed", "fee", fee, "error", err)
			if callFailed == nil {
				errors.As(err, &callFailed)
			}
			lastErr = err
			continue
		}

		candidate := &swapquote.Quote{Source: Name, Route: route}
		if req.ExactOutput() {
			candidate.InputAmount, candidate.OutputAmount = priced, new(big.Int).Set(req.OutputAmount)
		} else {
			candidate.InputAmount, candidate.OutputAmount = new(big.Int).Set(req.InputAmount), priced
		}
		if best == nil || better(candidate, best, req.ExactOutput()) {
			best = candidate
		}
	}

	if best == nil {
		// a transport failure on any tier means the pair may still be quotable
		if callFailed != nil {
			return nil, callFailed
		}
		return nil, fmt.Errorf("%w: no fee tier quoted %s -> %s: %v", swapquote.ErrInsufficientLiquidity, in.Hex(), out.Hex(), lastErr)
	}
	return best, nil
}

func better(a, b *swapquote.Quote, exactOutput bool) bool {
	if exactOutput {
		return a.InputAmount.Cmp(b.InputAmount) < 0
	}
	return a.OutputAmount.Cmp(b.OutputAmount) > 0
}
