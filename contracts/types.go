package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractType identifies a family of flash-mint issuance contracts sharing one ABI.
type ContractType string

const (
	ExchangeIssuanceLeveraged    ContractType = "ExchangeIssuanceLeveraged"
	FlashMintLeveraged           ContractType = "FlashMintLeveraged"
	FlashMintLeveragedAerodrome  ContractType = "FlashMintLeveragedAerodrome"
	FlashMintLeveragedAggregator ContractType = "FlashMintLeveragedAggregator"
)

// Shape is the layout of the swap-data tuple a contract type accepts.
type Shape uint8

const (
	// ShapeBasic is (path, fees, pool, exchange).
	ShapeBasic Shape = iota + 1
	// ShapeBalancer is (path, fees, pool, poolIds, exchange).
	ShapeBalancer
	// ShapeTickSpacing is (path, fees, tickSpacing, pool, poolIds, exchange).
	ShapeTickSpacing
	// ShapeAggregator is (path, fees, pool, exchange, swapTarget, callData).
	ShapeAggregator
)

func (s Shape) String() string {
	switch s {
	case ShapeBasic:
		return "basic"
	case ShapeBalancer:
		return "balancer"
	case ShapeTickSpacing:
		return "tick-spacing"
	case ShapeAggregator:
		return "aggregator"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Method names shared by every flash-mint leveraged contract.
const (
	MethodIssueFromETH          = "issueExactSetFromETH"
	MethodIssueFromERC20        = "issueExactSetFromERC20"
	MethodRedeemForETH          = "redeemExactSetForETH"
	MethodRedeemForERC20        = "redeemExactSetForERC20"
	MethodGetLeveragedTokenData = "getLeveragedTokenData"
)

type typeInfo struct {
	generation int
	shape      Shape
	abi        abi.ABI
}

var typeInfos = map[ContractType]typeInfo{
	ExchangeIssuanceLeveraged:    {generation: 1, shape: ShapeBasic, abi: mustParseABI(ShapeBasic)},
	FlashMintLeveraged:           {generation: 2, shape: ShapeBalancer, abi: mustParseABI(ShapeBalancer)},
	FlashMintLeveragedAerodrome:  {generation: 3, shape: ShapeTickSpacing, abi: mustParseABI(ShapeTickSpacing)},
	FlashMintLeveragedAggregator: {generation: 4, shape: ShapeAggregator, abi: mustParseABI(ShapeAggregator)},
}

// Known reports whether t is a registered contract type.
func (t ContractType) Known() bool {
	_, ok := typeInfos[t]
	return ok
}

// Generation orders contract types; newer deployments have higher generations.
func (t ContractType) Generation() int {
	return typeInfos[t].generation
}

// Shape returns the swap-data tuple layout of the contract type.
func (t ContractType) Shape() Shape {
	return typeInfos[t].shape
}

// ABI returns the parsed ABI of the contract type.
func (t ContractType) ABI() abi.ABI {
	return typeInfos[t].abi
}

// Entry is one deployed flash-mint contract.
type Entry struct {
	ChainID uint64
	Address common.Address
	Type    ContractType
	// IndexTokens lists the symbols a dedicated (legacy) deployment serves.
	// Empty means the contract is the generic one for its chain.
	IndexTokens []string
}

// Dedicated reports whether the entry only serves specific index tokens.
func (e Entry) Dedicated() bool {
	return len(e.IndexTokens) > 0
}

// LeveragedTokenData is the output of getLeveragedTokenData.
type LeveragedTokenData struct {
	CollateralAToken common.Address
	CollateralToken  common.Address
	CollateralAmount *big.Int
	DebtToken        common.Address
	DebtAmount       *big.Int
}
