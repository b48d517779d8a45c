package codec

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Universal router command bytes.
const (
	CommandV3SwapExactIn  byte = 0x00
	CommandV3SwapExactOut byte = 0x01
	CommandSweep          byte = 0x04
	CommandPayPortion     byte = 0x06
	CommandV2SwapExactIn  byte = 0x08
	CommandV2SwapExactOut byte = 0x09
	CommandWrapETH        byte = 0x0b
	CommandUnwrapWETH     byte = 0x0c

	commandTypeMask byte = 0x3f
)

const universalRouterABI = `[
{"type":"function","name":"execute","stateMutability":"payable","inputs":[
	{"internalType":"bytes","name":"commands","type":"bytes"},
	{"internalType":"bytes[]","name":"inputs","type":"bytes[]"},
	{"internalType":"uint256","name":"deadline","type":"uint256"}
],"outputs":[]},
{"type":"function","name":"execute","stateMutability":"payable","inputs":[
	{"internalType":"bytes","name":"commands","type":"bytes"},
	{"internalType":"bytes[]","name":"inputs","type":"bytes[]"}
],"outputs":[]}
]`

var (
	routerABI = mustParseJSON(universalRouterABI)

	addressTy      = mustNewType("address")
	addressSliceTy = mustNewType("address[]")
	uint256Ty      = mustNewType("uint256")
	bytesTy        = mustNewType("bytes")
	boolTy         = mustNewType("bool")

	// (recipient, amount, amountLimit, path bytes, payerIsUser)
	v3SwapArgs = abi.Arguments{{Type: addressTy}, {Type: uint256Ty}, {Type: uint256Ty}, {Type: bytesTy}, {Type: boolTy}}
	// (recipient, amount, amountLimit, path address[], payerIsUser)
	v2SwapArgs = abi.Arguments{{Type: addressTy}, {Type: uint256Ty}, {Type: uint256Ty}, {Type: addressSliceTy}, {Type: boolTy}}

	// addressThis tells the router to keep intermediate output.
	addressThis = common.HexToAddress("0x0000000000000000000000000000000000000002")
	// contractBalance tells the router to spend its whole balance of the hop's input.
	contractBalance = new(big.Int).Lsh(big.NewInt(1), 255)
)

func mustParseJSON(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("codec: parse abi: %v", err))
	}
	return parsed
}

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("codec: abi type %s: %v", t, err))
	}
	return ty
}

// EncodeUniversalRouter encodes an exact-input swap of route as universal
// router execute calldata. Concentrated-liquidity routes are emitted as one
// sub-action per hop; constant-product routes as a single sub-action.
// It is the inverse of DecodeUniversalRouter and builds fixtures for it.
func EncodeUniversalRouter(route swaproute.SwapRoute, amountIn, amountOutMin *big.Int, recipient common.Address, deadline *big.Int) ([]byte, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}

	var (
		commands []byte
		inputs   [][]byte
	)

	switch route.Exchange {
	case swaproute.ConcentratedLiquidity:
		hops := route.Hops()
		for i := 0; i < hops; i++ {
			hop := swaproute.NewConcentratedLiquidity(route.Path[i:i+2], route.Fees[i:i+1], nil)
			if len(route.TickSpacings) > 0 {
				hop.TickSpacings = route.TickSpacings[i : i+1]
			}
			blob, err := PackedPath(hop)
			if err != nil {
				return nil, err
			}

			to, amount, limit, payerIsUser := addressThis, contractBalance, big.NewInt(0), false
			if i == 0 {
				amount, payerIsUser = amountIn, true
			}
			if i == hops-1 {
				to, limit = recipient, amountOutMin
			}
			input, err := v3SwapArgs.Pack(to, amount, limit, blob, payerIsUser)
			if err != nil {
				return nil, fmt.Errorf("codec: pack v3 sub-action: %w", err)
			}
			commands = append(commands, CommandV3SwapExactIn)
			inputs = append(inputs, input)
		}
	case swaproute.ConstantProduct:
		input, err := v2SwapArgs.Pack(recipient, amountIn, amountOutMin, route.Path, true)
		if err != nil {
			return nil, fmt.Errorf("codec: pack v2 sub-action: %w", err)
		}
		commands = append(commands, CommandV2SwapExactIn)
		inputs = append(inputs, input)
	default:
		return nil, fmt.Errorf("%w: universal router cannot encode %s routes", swaproute.ErrInvalidSwapRoute, route.Exchange)
	}

	if deadline == nil {
		return routerABI.Pack("execute0", commands, inputs)
	}
	return routerABI.Pack("execute", commands, inputs, deadline)
}

type subPath struct {
	exchange swaproute.Exchange
	path     []common.Address
	fees     []uint32
}

// DecodeUniversalRouter extracts the swap path embedded in universal router
// calldata. Sub-paths of consecutive swap sub-actions are joined end to end.
// Non-swap commands are skipped. Split routes, mixed V2/V3 routes and
// calldata without any swap are rejected.
func DecodeUniversalRouter(callData []byte) (swaproute.SwapRoute, error) {
	if len(callData) < 4 {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: calldata too short", swaproute.ErrInvalidSwapRoute)
	}
	method, err := routerABI.MethodById(callData[:4])
	if err != nil {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: %v", swaproute.ErrInvalidSwapRoute, err)
	}
	args, err := method.Inputs.Unpack(callData[4:])
	if err != nil {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: unpack execute: %v", swaproute.ErrInvalidSwapRoute, err)
	}
	commands, ok := args[0].([]byte)
	if !ok {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: unexpected commands type %T", swaproute.ErrInvalidSwapRoute, args[0])
	}
	inputs, ok := args[1].([][]byte)
	if !ok {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: unexpected inputs type %T", swaproute.ErrInvalidSwapRoute, args[1])
	}
	if len(commands) != len(inputs) {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: %d commands for %d inputs", swaproute.ErrInvalidSwapRoute, len(commands), len(inputs))
	}

	var parts []subPath
	for i, c := range commands {
		part, isSwap, err := decodeSubAction(c&commandTypeMask, inputs[i])
		if err != nil {
			return swaproute.SwapRoute{}, err
		}
		if isSwap {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return swaproute.SwapRoute{}, fmt.Errorf("%w: calldata contains no swap", swaproute.ErrInvalidSwapRoute)
	}

	joined := parts[0]
	for _, p := range parts[1:] {
		if p.exchange != joined.exchange {
			return swaproute.SwapRoute{}, fmt.Errorf("%w: mixed %s and %s sub-actions", swaproute.ErrInvalidSwapRoute, joined.exchange, p.exchange)
		}
		if p.path[0] != joined.path[len(joined.path)-1] {
			return swaproute.SwapRoute{}, fmt.Errorf("%w: sub-path starting at %s does not continue from %s", swaproute.ErrInvalidSwapRoute, p.path[0].Hex(), joined.path[len(joined.path)-1].Hex())
		}
		joined.path = append(joined.path, p.path[1:]...)
		joined.fees = append(joined.fees, p.fees...)
	}

	var route swaproute.SwapRoute
	if joined.exchange == swaproute.ConcentratedLiquidity {
		route = swaproute.NewConcentratedLiquidity(joined.path, joined.fees, nil)
	} else {
		route = swaproute.NewConstantProduct(joined.path)
	}
	if err := route.Validate(); err != nil {
		return swaproute.SwapRoute{}, err
	}
	return route, nil
}

func decodeSubAction(command byte, input []byte) (subPath, bool, error) {
	switch command {
	case CommandV3SwapExactIn, CommandV3SwapExactOut:
		values, err := v3SwapArgs.Unpack(input)
		if err != nil {
			return subPath{}, false, fmt.Errorf("%w: unpack v3 sub-action: %v", swaproute.ErrInvalidSwapRoute, err)
		}
		blob, ok := values[3].([]byte)
		if !ok {
			return subPath{}, false, fmt.Errorf("%w: unexpected v3 path type %T", swaproute.ErrInvalidSwapRoute, values[3])
		}
		path, fees, err := DecodePackedPath(blob)
		if err != nil {
			return subPath{}, false, fmt.Errorf("%w: %v", swaproute.ErrInvalidSwapRoute, err)
		}
		// exact-output paths are encoded from the output token backwards
		if command == CommandV3SwapExactOut {
			slices.Reverse(path)
			slices.Reverse(fees)
		}
		return subPath{exchange: swaproute.ConcentratedLiquidity, path: path, fees: fees}, true, nil

	case CommandV2SwapExactIn, CommandV2SwapExactOut:
		values, err := v2SwapArgs.Unpack(input)
		if err != nil {
			return subPath{}, false, fmt.Errorf("%w: unpack v2 sub-action: %v", swaproute.ErrInvalidSwapRoute, err)
		}
		path, ok := values[3].([]common.Address)
		if !ok || len(path) < 2 {
			return subPath{}, false, fmt.Errorf("%w: invalid v2 path", swaproute.ErrInvalidSwapRoute)
		}
		return subPath{exchange: swaproute.ConstantProduct, path: path}, true, nil

	default:
		return subPath{}, false, nil
	}
}

// ValidateDecodedPath checks that a route decoded from aggregator calldata
// starts at tokenIn and ends at tokenOut. Native tokens are compared by their
// wrapped form since routers only swap ERC-20s.
func ValidateDecodedPath(chainID uint64, route swaproute.SwapRoute, tokenIn, tokenOut common.Address) error {
	if err := route.Validate(); err != nil {
		return err
	}
	first, _ := route.TokenIn()
	last, _ := route.TokenOut()

	if first != chains.Canonicalize(chainID, tokenIn) {
		return fmt.Errorf("%w: path starts at %s, expected %s", swaproute.ErrInvalidSwapRoute, first.Hex(), tokenIn.Hex())
	}
	if last != chains.Canonicalize(chainID, tokenOut) {
		return fmt.Errorf("%w: path ends at %s, expected %s", swaproute.ErrInvalidSwapRoute, last.Hex(), tokenOut.Hex())
	}
	return nil
}
