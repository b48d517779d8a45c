package onchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

var ErrNoCaller = errors.New("no rpc client for chain")

// Caller executes read-only contract calls. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Callers holds one Caller per chain id.
type Callers map[uint64]Caller

// ForChain returns the caller for chainID.
func (c Callers) ForChain(chainID uint64) (Caller, error) {
	caller, ok := c[chainID]
	if !ok || caller == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoCaller, chainID)
	}
	return caller, nil
}

// Call packs method with args, executes it against to at the latest block and
// unpacks the outputs.
func Call(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// CallUint256 calls a method returning a single uint256.
func CallUint256(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...any) (*big.Int, error) {
	values, err := Call(ctx, caller, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, expected *big.Int", method, values[0])
	}
	return v, nil
}

// IsRevert reports whether err is a contract revert, as opposed to a
// transport or node failure.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
