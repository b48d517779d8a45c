// Package txbuilder encodes flash-mint issue and redeem calls.
package txbuilder

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/codec"
	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrInvalidParams = errors.New("invalid transaction parameters")

// Transaction is an unsigned call ready to be signed by the caller's wallet.
type Transaction struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value *hexutil.Big   `json:"value"`
}

// Params are the quoted values a transaction is built from.
type Params struct {
	SetToken    common.Address
	SetAmount   *big.Int
	IsMinting   bool
	InputToken  common.Address
	OutputToken common.Address
	// MaxInputAmount bounds what a mint may spend.
	MaxInputAmount *big.Int
	// MinOutputAmount is the least a redemption must pay out.
	MinOutputAmount *big.Int

	DebtCollateral swaproute.SwapRoute
	InputOutput    swaproute.SwapRoute
}

type argKind uint8

const (
	argSetToken argKind = iota
	argSetAmount
	argInputToken
	argOutputToken
	argMaxInput
	argMinOutput
	argSwapDebtCollateral
	argSwapInputOutput
)

type callKey struct {
	minting bool
	native  bool
}

type callDef struct {
	method string
	args   []argKind
	// payable calls send MaxInputAmount as value.
	payable bool
}

// calls lists the argument order of every issue/redeem variant. The order is
// shared by all contract types; only the swap-data tuple shape differs.
var calls = map[callKey]callDef{
	{minting: true, native: true}: {
		method:  contracts.MethodIssueFromETH,
		args:    []argKind{argSetToken, argSetAmount, argSwapDebtCollateral, argSwapInputOutput},
		payable: true,
	},
	{minting: true, native: false}: {
		method: contracts.MethodIssueFromERC20,
		args:   []argKind{argSetToken, argSetAmount, argInputToken, argMaxInput, argSwapDebtCollateral, argSwapInputOutput},
	},
	{minting: false, native: true}: {
		method: contracts.MethodRedeemForETH,
		args:   []argKind{argSetToken, argSetAmount, argMinOutput, argSwapDebtCollateral, argSwapInputOutput},
	},
	{minting: false, native: false}: {
		method: contracts.MethodRedeemForERC20,
		args:   []argKind{argSetToken, argSetAmount, argOutputToken, argMinOutput, argSwapDebtCollateral, argSwapInputOutput},
	},
}

// Builder encodes transactions against the ABI of the resolved contract.
type Builder struct{}

// New returns a Builder.
func New() *Builder {
	return &Builder{}
}

// Build encodes the issue or redeem call for entry.
func (b *Builder) Build(entry contracts.Entry, p Params) (Transaction, error) {
	if !entry.Type.Known() {
		return Transaction{}, fmt.Errorf("%w: %s", contracts.ErrUnknownType, entry.Type)
	}
	if p.SetAmount == nil || p.SetAmount.Sign() <= 0 {
		return Transaction{}, fmt.Errorf("%w: set amount must be positive", ErrInvalidParams)
	}

	native := chains.IsNative(p.OutputToken)
	if p.IsMinting {
		native = chains.IsNative(p.InputToken)
	}
	def := calls[callKey{minting: p.IsMinting, native: native}]

	debtData, err := codec.EncodeSwapData(entry.Type, p.DebtCollateral)
	if err != nil {
		return Transaction{}, fmt.Errorf("debt/collateral swap data: %w", err)
	}
	paymentData, err := codec.EncodeSwapData(entry.Type, p.InputOutput)
	if err != nil {
		return Transaction{}, fmt.Errorf("input/output swap data: %w", err)
	}

	args := make([]any, 0, len(def.args))
	for _, kind := range def.args {
		switch kind {
		case argSetToken:
			args = append(args, p.SetToken)
		case argSetAmount:
			args = append(args, p.SetAmount)
		case argInputToken:
			args = append(args, p.InputToken)
		case argOutputToken:
			args = append(args, p.OutputToken)
		case argMaxInput:
			if p.MaxInputAmount == nil {
				return Transaction{}, fmt.Errorf("%w: max input amount is required", ErrInvalidParams)
			}
			args = append(args, p.MaxInputAmount)
		case argMinOutput:
			if p.MinOutputAmount == nil {
				return Transaction{}, fmt.Errorf("%w: min output amount is required", ErrInvalidParams)
			}
			args = append(args, p.MinOutputAmount)
		case argSwapDebtCollateral:
			args = append(args, debtData)
		case argSwapInputOutput:
			args = append(args, paymentData)
		}
	}

	parsed := entry.Type.ABI()
	if _, ok := parsed.Methods[def.method]; !ok {
		return Transaction{}, fmt.Errorf("%w: %s on %s", contracts.ErrMissingMethod, def.method, entry.Type)
	}
	data, err := parsed.Pack(def.method, args...)
	if err != nil {
		return Transaction{}, fmt.Errorf("pack %s: %w", def.method, err)
	}

	value := new(big.Int)
	if def.payable {
		if p.MaxInputAmount == nil {
			return Transaction{}, fmt.Errorf("%w: max input amount is required", ErrInvalidParams)
		}
		value.Set(p.MaxInputAmount)
	}

	return Transaction{
		To:    entry.Address,
		Data:  data,
		Value: (*hexutil.Big)(value),
	}, nil
}
