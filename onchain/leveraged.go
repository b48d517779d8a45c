package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LeveragedReader reads collateral and debt positions of leveraged index tokens.
type LeveragedReader struct {
	callers Callers
}

// NewLeveragedReader creates a reader using one RPC client per chain.
func NewLeveragedReader(callers Callers) *LeveragedReader {
	return &LeveragedReader{callers: callers}
}

// GetLeveragedTokenData returns the collateral and debt behind amount of
// setToken, as seen by the flash-mint contract entry for issuance or
// redemption.
func (r *LeveragedReader) GetLeveragedTokenData(ctx context.Context, entry contracts.Entry, setToken common.Address, amount *big.Int, isIssuance bool) (contracts.LeveragedTokenData, error) {
	caller, err := r.callers.ForChain(entry.ChainID)
	if err != nil {
		return contracts.LeveragedTokenData{}, err
	}

	values, err := Call(ctx, caller, entry.Address, entry.Type.ABI(), contracts.MethodGetLeveragedTokenData, setToken, amount, isIssuance)
	if err != nil {
		return contracts.LeveragedTokenData{}, err
	}
	if len(values) != 1 {
		return contracts.LeveragedTokenData{}, fmt.Errorf("getLeveragedTokenData returned %d values", len(values))
	}

	data := *abi.ConvertType(values[0], new(contracts.LeveragedTokenData)).(*contracts.LeveragedTokenData)
	if data.CollateralAmount == nil || data.DebtAmount == nil {
		return contracts.LeveragedTokenData{}, fmt.Errorf("getLeveragedTokenData returned incomplete data")
	}
	return data, nil
}
