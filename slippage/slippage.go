// Package slippage widens or narrows quoted amounts by a percentage tolerance.
package slippage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// precision is the number of decimals the percentage is scaled to before the
// integer mul-div.
const precision = 18

var (
	ErrInvalidSlippage = errors.New("slippage must be in [0, 100)")
	ErrInvalidAmount   = errors.New("amount must be a non-negative 256-bit integer")
	ErrOverflow        = errors.New("slippage adjustment overflows 256 bits")
)

var (
	hundred = decimal.NewFromInt(100)
	scale   = uint256.MustFromDecimal("100000000000000000000") // 100 * 10^18
)

// Parse reads a percentage such as "0.5" (meaning 0.5%).
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrInvalidSlippage, err)
	}
	if err := validate(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

func validate(s decimal.Decimal) error {
	if s.IsNegative() || s.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: got %s", ErrInvalidSlippage, s)
	}
	return nil
}

// Adjust applies slippage s (a percentage) to amount.
//
// Minting fixes the output, so the input is a maximum and grows:
// amount * 100 / (100 - s), rounded up.
// Redeeming fixes the input, so the output is a minimum and shrinks:
// amount * 100 / (100 + s), rounded down.
// Zero slippage returns a copy of amount.
func Adjust(amount *big.Int, s decimal.Decimal, minting bool) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	if s.IsZero() {
		return new(big.Int).Set(amount), nil
	}

	a, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrInvalidAmount
	}

	scaled, overflow := uint256.FromBig(s.Shift(precision).Truncate(0).BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidSlippage, s)
	}

	divisor := new(uint256.Int)
	if minting {
		divisor.Sub(scale, scaled)
	} else {
		divisor.Add(scale, scaled)
	}

	result, overflow := new(uint256.Int).MulDivOverflow(a, scale, divisor)
	if overflow {
		return nil, ErrOverflow
	}
	if minting {
		if rem := new(uint256.Int).MulMod(a, scale, divisor); !rem.IsZero() {
			if _, overflow := result.AddOverflow(result, uint256.NewInt(1)); overflow {
				return nil, ErrOverflow
			}
		}
	}

	return result.ToBig(), nil
}
