package uniswapv2

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	uniswapv2 "github.com/defistate/flashmint-quote-go/protocols/uniswapv2"
	"github.com/ethereum/go-ethereum/common"
)

var (
	bps = big.NewInt(10_000)
	one = big.NewInt(1)

	ErrNilAmount     = errors.New("nil amount")
	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrTokenMismatch = errors.New("token not in pair")
	ErrInvalidState  = errors.New("pair state cannot be priced")
	ErrInvalidPath   = errors.New("path does not match pairs")
	// ErrInsufficientLiquidity means the requested output drains the pair.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
)

// scratch holds the intermediates of one pricing call. Values are handed out
// by scratchPool and must not be shared between goroutines.
type scratch struct {
	keep        *big.Int
	inAfterFee  *big.Int
	numerator   *big.Int
	denominator *big.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{
			keep:        new(big.Int),
			inAfterFee:  new(big.Int),
			numerator:   new(big.Int),
			denominator: new(big.Int),
		}
	},
}

func withScratch[T any](fn func(s *scratch) (T, error)) (T, error) {
	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)
	return fn(s)
}

// GetAmountOut prices selling amountIn of tokenIn into pool.
func GetAmountOut(amountIn *big.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	return withScratch(func(s *scratch) (*big.Int, error) {
		return s.amountOut(amountIn, tokenIn, tokenOut, pool)
	})
}

// GetAmountIn prices buying amountOut of tokenOut from pool.
func GetAmountIn(amountOut *big.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	return withScratch(func(s *scratch) (*big.Int, error) {
		return s.amountIn(amountOut, tokenIn, tokenOut, pool)
	})
}

// GetAmountsOut walks path forwards, pools[i] trading path[i] for path[i+1].
// The result holds the amount held after every hop, amountIn first.
func GetAmountsOut(amountIn *big.Int, path []common.Address, pools []uniswapv2.Pool) ([]*big.Int, error) {
	if err := checkPath(path, pools); err != nil {
		return nil, err
	}
	return withScratch(func(s *scratch) ([]*big.Int, error) {
		amounts := make([]*big.Int, len(path))
		amounts[0] = amountIn
		for i, pool := range pools {
			out, err := s.amountOut(amounts[i], path[i], path[i+1], pool)
			if err != nil {
				return nil, fmt.Errorf("hop %d: %w", i, err)
			}
			amounts[i+1] = out
		}
		return amounts, nil
	})
}

// GetAmountsIn walks path backwards from the final output. The result is in
// path order, the required input first.
func GetAmountsIn(amountOut *big.Int, path []common.Address, pools []uniswapv2.Pool) ([]*big.Int, error) {
	if err := checkPath(path, pools); err != nil {
		return nil, err
	}
	return withScratch(func(s *scratch) ([]*big.Int, error) {
		amounts := make([]*big.Int, len(path))
		amounts[len(path)-1] = amountOut
		for i := len(pools) - 1; i >= 0; i-- {
			in, err := s.amountIn(amounts[i+1], path[i], path[i+1], pools[i])
			if err != nil {
				return nil, fmt.Errorf("hop %d: %w", i, err)
			}
			amounts[i] = in
		}
		return amounts, nil
	})
}

func checkPath(path []common.Address, pools []uniswapv2.Pool) error {
	if len(path) < 2 || len(pools) != len(path)-1 {
		return fmt.Errorf("%w: %d tokens, %d pairs", ErrInvalidPath, len(path), len(pools))
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// amountOut is reserveOut * in' / (reserveIn * 10000 + in'), in' = amountIn * (10000 - fee).
// An empty pair prices to zero.
func (s *scratch) amountOut(amountIn *big.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	if err := checkAmount(amountIn); err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int), nil
	}

	s.keep.Sub(bps, big.NewInt(int64(pool.FeeBps)))
	s.inAfterFee.Mul(amountIn, s.keep)
	s.numerator.Mul(reserveOut, s.inAfterFee)
	s.denominator.Mul(reserveIn, bps)
	s.denominator.Add(s.denominator, s.inAfterFee)
	if s.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero denominator in pair %s", ErrInvalidState, pool.Address.Hex())
	}
	return new(big.Int).Quo(s.numerator, s.denominator), nil
}

// amountIn is reserveIn * amountOut * 10000 / ((reserveOut - amountOut) * (10000 - fee)) + 1.
func (s *scratch) amountIn(amountOut *big.Int, tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	if err := checkAmount(amountOut); err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: want %s of %s in reserve", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	s.numerator.Mul(reserveIn, amountOut)
	s.numerator.Mul(s.numerator, bps)
	s.keep.Sub(bps, big.NewInt(int64(pool.FeeBps)))
	s.denominator.Sub(reserveOut, amountOut)
	s.denominator.Mul(s.denominator, s.keep)
	if s.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero denominator in pair %s", ErrInvalidState, pool.Address.Hex())
	}
	in := new(big.Int).Quo(s.numerator, s.denominator)
	return in.Add(in, one), nil
}

// GetReserves orders the pair's reserves as (in, out).
func GetReserves(tokenIn, tokenOut common.Address, pool uniswapv2.Pool) (reserveIn, reserveOut *big.Int, err error) {
	switch {
	case tokenIn == pool.Token0 && tokenOut == pool.Token1:
		return pool.Reserve0, pool.Reserve1, nil
	case tokenIn == pool.Token1 && tokenOut == pool.Token0:
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: %s does not trade %s for %s", ErrTokenMismatch, pool.Address.Hex(), tokenIn.Hex(), tokenOut.Hex())
}
