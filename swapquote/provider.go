// Package swapquote defines the contract shared by every upstream swap quote
// source: aggregator APIs, single pools, path routers and static tables.
package swapquote

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedPair means the provider does not serve the request. It is
	// not a failure of the quote as a whole.
	ErrUnsupportedPair = errors.New("pair not supported by provider")
	// ErrInsufficientLiquidity means the upstream found no route for the amount.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidRequest means the request breaks the exactly-one-amount rule.
	ErrInvalidRequest = errors.New("invalid swap quote request")
)

// CallFailedError wraps a transport or RPC failure of an upstream source.
// Callers may retry.
type CallFailedError struct {
	Source string
	Err    error
}

func (e *CallFailedError) Error() string {
	return fmt.Sprintf("quote call to %s failed: %v", e.Source, e.Err)
}

func (e *CallFailedError) Unwrap() error {
	return e.Err
}

// CallFailed wraps err as a *CallFailedError unless it already is one or is a
// classified quote error.
func CallFailed(source string, err error) error {
	var cf *CallFailedError
	if errors.As(err, &cf) || errors.Is(err, ErrInsufficientLiquidity) || errors.Is(err, ErrUnsupportedPair) {
		return err
	}
	return &CallFailedError{Source: source, Err: err}
}

// Request asks for a quote swapping InputToken for OutputToken. Exactly one
// of InputAmount and OutputAmount is set.
type Request struct {
	ChainID     uint64
	InputToken  common.Address
	OutputToken common.Address

	InputAmount  *big.Int
	OutputAmount *big.Int

	Slippage decimal.Decimal
	// MaxInputAmount bounds the sell side of exact-output requests served
	// by sell-only sources.
	MaxInputAmount *big.Int
	// Taker is the address that executes the swap, usually the flash-mint contract.
	Taker common.Address

	IndexSymbol string
	IsMinting   bool
}

// ExactOutput reports whether the request fixes the output amount.
func (r Request) ExactOutput() bool {
	return r.OutputAmount != nil
}

// Amount returns the fixed side of the request.
func (r Request) Amount() *big.Int {
	if r.OutputAmount != nil {
		return r.OutputAmount
	}
	return r.InputAmount
}

// Validate enforces the exactly-one-amount rule and positive amounts.
func (r Request) Validate() error {
	if (r.InputAmount == nil) == (r.OutputAmount == nil) {
		return fmt.Errorf("%w: exactly one of input and output amount must be set", ErrInvalidRequest)
	}
	if r.Amount().Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if r.InputToken == r.OutputToken {
		return fmt.Errorf("%w: input and output token are the same", ErrInvalidRequest)
	}
	return nil
}

// Quote is a priced route.
type Quote struct {
	Source       string
	Route        swaproute.SwapRoute
	InputAmount  *big.Int
	OutputAmount *big.Int
}

// Provider is implemented by every quote source.
type Provider interface {
	Name() string
	GetSwapQuote(ctx context.Context, req Request) (*Quote, error)
}

// RoutePricer prices a fixed route. Exactly one of amountIn and amountOut is
// non-nil; the other side is returned.
type RoutePricer interface {
	PriceRoute(ctx context.Context, chainID uint64, route swaproute.SwapRoute, amountIn, amountOut *big.Int) (*big.Int, error)
}
