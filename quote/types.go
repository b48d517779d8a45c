// Package quote assembles flash-mint quotes: it resolves the contract for an
// index token, quotes every swap leg, applies slippage and builds the
// transaction.
package quote

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/defistate/flashmint-quote-go/txbuilder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRequest = errors.New("invalid quote request")
	// ErrNoRoute is returned when no provider could quote a leg.
	ErrNoRoute = errors.New("no route found")
	// ErrCounterAmountExceeded means the slippage-adjusted amount breaks the
	// caller's maximum input or minimum output.
	ErrCounterAmountExceeded = errors.New("counter amount exceeded")
	// ErrUnbalancedPosition means the debt leg alone consumes or covers the
	// whole collateral position.
	ErrUnbalancedPosition = errors.New("leveraged position cannot be balanced")
)

// Leg names, matching the swap-data arguments of the contracts.
const (
	LegDebtCollateral = "debtCollateral"
	LegInputOutput    = "inputOutput"
)

// Request asks for a quote minting (IsMinting) or redeeming IndexTokenAmount
// of an index token. The index token is the output when minting and the
// input when redeeming.
type Request struct {
	ChainID          uint64
	IsMinting        bool
	InputToken       common.Address
	OutputToken      common.Address
	IndexTokenAmount *big.Int
	// Slippage is a percentage in [0, 100).
	Slippage decimal.Decimal
	// CounterAmount is the caller's maximum input when minting and minimum
	// output when redeeming. Optional.
	CounterAmount *big.Int
	// Taker is the wallet that will send the transaction. It is informational:
	// swaps are always quoted for the flash-mint contract, which executes them.
	Taker common.Address
}

// IndexToken returns the address of the token being minted or redeemed.
func (r Request) IndexToken() common.Address {
	if r.IsMinting {
		return r.OutputToken
	}
	return r.InputToken
}

// PaymentToken returns the token the caller pays with or receives.
func (r Request) PaymentToken() common.Address {
	if r.IsMinting {
		return r.InputToken
	}
	return r.OutputToken
}

func (r Request) validate() error {
	if r.IndexTokenAmount == nil || r.IndexTokenAmount.Sign() <= 0 {
		return fmt.Errorf("%w: index token amount must be positive", ErrInvalidRequest)
	}
	if r.InputToken == r.OutputToken {
		return fmt.Errorf("%w: input and output token are the same", ErrInvalidRequest)
	}
	if r.CounterAmount != nil && r.CounterAmount.Sign() < 0 {
		return fmt.Errorf("%w: counter amount must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Leg is one quoted swap of a flash mint or redemption.
type Leg struct {
	Name      string              `json:"name"`
	Source    string              `json:"source"`
	Route     swaproute.SwapRoute `json:"route"`
	AmountIn  *big.Int            `json:"amountIn"`
	AmountOut *big.Int            `json:"amountOut"`
}

// Result is an assembled quote.
type Result struct {
	Request         Request
	ContractAddress common.Address
	ContractType    contracts.ContractType
	// InputAmount is the slippage-widened maximum when minting and
	// IndexTokenAmount when redeeming.
	InputAmount *big.Int
	// OutputAmount is IndexTokenAmount when minting and the
	// slippage-narrowed minimum when redeeming.
	OutputAmount *big.Int
	Legs         []Leg
	Transaction  txbuilder.Transaction
}
