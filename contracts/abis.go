package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	componentPath        = `{"internalType":"address[]","name":"path","type":"address[]"}`
	componentFees        = `{"internalType":"uint24[]","name":"fees","type":"uint24[]"}`
	componentTickSpacing = `{"internalType":"int24[]","name":"tickSpacing","type":"int24[]"}`
	componentPool        = `{"internalType":"address","name":"pool","type":"address"}`
	componentPoolIDs     = `{"internalType":"bytes32[]","name":"poolIds","type":"bytes32[]"}`
	componentExchange    = `{"internalType":"enum DEXAdapter.Exchange","name":"exchange","type":"uint8"}`
	componentSwapTarget  = `{"internalType":"address","name":"swapTarget","type":"address"}`
	componentCallData    = `{"internalType":"bytes","name":"callData","type":"bytes"}`
)

// SwapDataComponents returns the JSON tuple components of the swap-data
// struct for a shape.
func SwapDataComponents(s Shape) (string, error) {
	var parts []string
	switch s {
	case ShapeBasic:
		parts = []string{componentPath, componentFees, componentPool, componentExchange}
	case ShapeBalancer:
		parts = []string{componentPath, componentFees, componentPool, componentPoolIDs, componentExchange}
	case ShapeTickSpacing:
		parts = []string{componentPath, componentFees, componentTickSpacing, componentPool, componentPoolIDs, componentExchange}
	case ShapeAggregator:
		parts = []string{componentPath, componentFees, componentPool, componentExchange, componentSwapTarget, componentCallData}
	default:
		return "", fmt.Errorf("unknown swap data shape %s", s)
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

// leveragedABITemplate holds the functions shared by every leveraged flash-mint
// contract. %[1]s is replaced by the swap-data tuple components.
const leveragedABITemplate = `[
{"type":"function","name":"issueExactSetFromETH","stateMutability":"payable","inputs":[
	{"internalType":"contract ISetToken","name":"_setToken","type":"address"},
	{"internalType":"uint256","name":"_setAmount","type":"uint256"},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataDebtForCollateral","type":"tuple","components":%[1]s},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataInputToken","type":"tuple","components":%[1]s}
],"outputs":[]},
{"type":"function","name":"issueExactSetFromERC20","stateMutability":"nonpayable","inputs":[
	{"internalType":"contract ISetToken","name":"_setToken","type":"address"},
	{"internalType":"uint256","name":"_setAmount","type":"uint256"},
	{"internalType":"address","name":"_inputToken","type":"address"},
	{"internalType":"uint256","name":"_maxAmountInputToken","type":"uint256"},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataDebtForCollateral","type":"tuple","components":%[1]s},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataInputToken","type":"tuple","components":%[1]s}
],"outputs":[]},
{"type":"function","name":"redeemExactSetForETH","stateMutability":"nonpayable","inputs":[
	{"internalType":"contract ISetToken","name":"_setToken","type":"address"},
	{"internalType":"uint256","name":"_setAmount","type":"uint256"},
	{"internalType":"uint256","name":"_minAmountOutputToken","type":"uint256"},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataCollateralForDebt","type":"tuple","components":%[1]s},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataOutputToken","type":"tuple","components":%[1]s}
],"outputs":[]},
{"type":"function","name":"redeemExactSetForERC20","stateMutability":"nonpayable","inputs":[
	{"internalType":"contract ISetToken","name":"_setToken","type":"address"},
	{"internalType":"uint256","name":"_setAmount","type":"uint256"},
	{"internalType":"address","name":"_outputToken","type":"address"},
	{"internalType":"uint256","name":"_minAmountOutputToken","type":"uint256"},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataCollateralForDebt","type":"tuple","components":%[1]s},
	{"internalType":"struct DEXAdapter.SwapData","name":"_swapDataOutputToken","type":"tuple","components":%[1]s}
],"outputs":[]},
{"type":"function","name":"getLeveragedTokenData","stateMutability":"view","inputs":[
	{"internalType":"contract ISetToken","name":"_setToken","type":"address"},
	{"internalType":"uint256","name":"_setAmount","type":"uint256"},
	{"internalType":"bool","name":"_isIssuance","type":"bool"}
],"outputs":[
	{"internalType":"struct FlashMintLeveraged.LeveragedTokenData","name":"","type":"tuple","components":[
		{"internalType":"address","name":"collateralAToken","type":"address"},
		{"internalType":"address","name":"collateralToken","type":"address"},
		{"internalType":"uint256","name":"collateralAmount","type":"uint256"},
		{"internalType":"address","name":"debtToken","type":"address"},
		{"internalType":"uint256","name":"debtAmount","type":"uint256"}
	]}
]}
]`

// LeveragedABI renders and parses the flash-mint ABI for a swap-data shape.
func LeveragedABI(s Shape) (abi.ABI, error) {
	components, err := SwapDataComponents(s)
	if err != nil {
		return abi.ABI{}, err
	}
	return abi.JSON(strings.NewReader(fmt.Sprintf(leveragedABITemplate, components)))
}

func mustParseABI(s Shape) abi.ABI {
	parsed, err := LeveragedABI(s)
	if err != nil {
		panic(fmt.Sprintf("contracts: parse %s abi: %v", s, err))
	}
	return parsed
}
