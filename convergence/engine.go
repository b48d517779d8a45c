// Package convergence turns sell-amount-only quote sources into exact buy
// amount quotes by repeatedly re-quoting with a proportionally rescaled sell
// amount.
package convergence

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// DefaultMaxRequests is the total number of quotes, including the first probe
// at the maximum sell amount, that one convergence may issue.
const DefaultMaxRequests = 10

var (
	ErrMaxSellAmountTooLow = errors.New("max sell amount too low")
	ErrExceededMaxRequests = errors.New("exceeded max requests")
	ErrInvalidTarget       = errors.New("invalid convergence target")
)

// Kind distinguishes the two convergence failures.
type Kind int

const (
	MaxSellAmountTooLow Kind = iota + 1
	ExceededMaxRequests
)

// Error reports a failed convergence together with the last quoted amounts.
type Error struct {
	Kind           Kind
	Attempts       int
	LastSellAmount *big.Int
	LastBuyAmount  *big.Int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v after %d requests (last sell %s, last buy %s)", e.Unwrap(), e.Attempts, e.LastSellAmount, e.LastBuyAmount)
}

func (e *Error) Unwrap() error {
	if e.Kind == MaxSellAmountTooLow {
		return ErrMaxSellAmountTooLow
	}
	return ErrExceededMaxRequests
}

// QuoteFunc quotes selling sellAmount and returns the buy amount together
// with an opaque payload (typically the upstream route).
type QuoteFunc[T any] func(ctx context.Context, sellAmount *big.Int) (buyAmount *big.Int, payload T, err error)

// Target is the buy amount to reach and the inclusive window that counts as
// reached.
type Target struct {
	Amount *big.Int
	Min    *big.Int
	Max    *big.Int
}

// NewTarget builds a target accepting buy amounts in
// [amount, amount * (10000 + toleranceBps) / 10000].
func NewTarget(amount *big.Int, toleranceBps uint64) Target {
	maxAmount := new(big.Int).Mul(amount, new(big.Int).SetUint64(10_000+toleranceBps))
	maxAmount.Quo(maxAmount, big.NewInt(10_000))
	return Target{
		Amount: new(big.Int).Set(amount),
		Min:    new(big.Int).Set(amount),
		Max:    maxAmount,
	}
}

func (t Target) validate() error {
	if t.Amount == nil || t.Min == nil || t.Max == nil {
		return fmt.Errorf("%w: nil bound", ErrInvalidTarget)
	}
	if t.Amount.Sign() <= 0 || t.Min.Cmp(t.Max) > 0 {
		return fmt.Errorf("%w: amount %s in [%s, %s]", ErrInvalidTarget, t.Amount, t.Min, t.Max)
	}
	return nil
}

func (t Target) contains(v *big.Int) bool {
	return v.Cmp(t.Min) >= 0 && v.Cmp(t.Max) <= 0
}

// Result is a successful convergence.
type Result[T any] struct {
	SellAmount *big.Int
	BuyAmount  *big.Int
	Payload    T
	Attempts   int
}

// Engine bounds the number of quotes a convergence may issue.
type Engine struct {
	MaxRequests int
}

// New returns an engine with the given request budget, or the default budget
// when maxRequests is not positive.
func New(maxRequests int) *Engine {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	return &Engine{MaxRequests: maxRequests}
}

// Converge finds a sell amount whose quoted buy amount falls within target.
//
// The first quote sells maxSell. If even that buys less than target.Min the
// search fails immediately. Otherwise each further sell amount is the last one
// rescaled by target.Amount / lastBuy. Errors from quote are returned as is.
func Converge[T any](ctx context.Context, e *Engine, quote QuoteFunc[T], target Target, maxSell *big.Int) (Result[T], error) {
	var zero Result[T]
	if err := target.validate(); err != nil {
		return zero, err
	}
	if maxSell == nil || maxSell.Sign() <= 0 {
		return zero, fmt.Errorf("%w: max sell amount must be positive", ErrInvalidTarget)
	}

	budget := e.MaxRequests
	if budget <= 0 {
		budget = DefaultMaxRequests
	}

	call := func(sellAmount *big.Int) (*big.Int, T, error) {
		buyAmount, payload, err := quote(ctx, sellAmount)
		if err == nil && buyAmount == nil {
			err = errors.New("convergence: quote returned no buy amount")
		}
		return buyAmount, payload, err
	}

	sell := new(big.Int).Set(maxSell)
	buy, payload, err := call(sell)
	if err != nil {
		return zero, err
	}
	attempts := 1

	if buy.Cmp(target.Min) < 0 {
		return zero, &Error{Kind: MaxSellAmountTooLow, Attempts: attempts, LastSellAmount: sell, LastBuyAmount: buy}
	}

	for !target.contains(buy) {
		if attempts >= budget {
			return zero, &Error{Kind: ExceededMaxRequests, Attempts: attempts, LastSellAmount: sell, LastBuyAmount: buy}
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		next := rescale(sell, target.Amount, buy)
		if next.Cmp(maxSell) > 0 {
			next.Set(maxSell)
		}
		sell = next

		buy, payload, err = call(sell)
		if err != nil {
			return zero, err
		}
		attempts++
	}

	return Result[T]{SellAmount: sell, BuyAmount: buy, Payload: payload, Attempts: attempts}, nil
}

// rescale returns sell * target / buy rounded up, never less than one unit.
// Rounding up keeps the next buy from settling one unit under the target.
func rescale(sell, target, buy *big.Int) *big.Int {
	if buy.Sign() <= 0 {
		return new(big.Int).Set(sell)
	}
	next, rem := new(big.Int).QuoRem(new(big.Int).Mul(sell, target), buy, new(big.Int))
	if rem.Sign() > 0 {
		next.Add(next, big.NewInt(1))
	}
	if next.Sign() <= 0 {
		next.SetInt64(1)
	}
	return next
}
