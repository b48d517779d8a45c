// Package codec converts normalized swap routes to and from the wire shapes
// used by flash-mint contracts and upstream aggregators.
package codec

import (
	"fmt"
	"math/big"

	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DEX is the on-chain exchange enum understood by the DEX adapter library
// linked into the flash-mint contracts.
type DEX uint8

const (
	DEXNone DEX = iota
	DEXQuickswap
	DEXSushiswap
	DEXUniV3
	DEXCurve
	DEXBalancerV2
	DEXAerodrome
	DEXAerodromeSlipstream
	DEXAggregator
)

// dialect maps exchange kinds to the DEX enum of one contract type.
// DEXNone marks an exchange kind the contract cannot execute.
type dialect struct {
	constantProduct DEX
	feeTier         DEX
	tickSpacing     DEX
	curve           DEX
	balancer        DEX
	aggregator      DEX
}

var dialects = map[contracts.ContractType]dialect{
	contracts.ExchangeIssuanceLeveraged: {
		constantProduct: DEXSushiswap,
		feeTier:         DEXUniV3,
		curve:           DEXCurve,
	},
	contracts.FlashMintLeveraged: {
		constantProduct: DEXSushiswap,
		feeTier:         DEXUniV3,
		curve:           DEXCurve,
		balancer:        DEXBalancerV2,
	},
	contracts.FlashMintLeveragedAerodrome: {
		constantProduct: DEXAerodrome,
		feeTier:         DEXUniV3,
		tickSpacing:     DEXAerodromeSlipstream,
		curve:           DEXCurve,
		balancer:        DEXBalancerV2,
	},
	contracts.FlashMintLeveragedAggregator: {
		constantProduct: DEXSushiswap,
		feeTier:         DEXUniV3,
		curve:           DEXCurve,
		aggregator:      DEXAggregator,
	},
}

// SwapDataBasic is the (path, fees, pool, exchange) tuple.
type SwapDataBasic struct {
	Path     []common.Address
	Fees     []*big.Int
	Pool     common.Address
	Exchange uint8
}

// SwapDataBalancer is the (path, fees, pool, poolIds, exchange) tuple.
type SwapDataBalancer struct {
	Path     []common.Address
	Fees     []*big.Int
	Pool     common.Address
	PoolIds  [][32]byte
	Exchange uint8
}

// SwapDataTickSpacing is the (path, fees, tickSpacing, pool, poolIds, exchange) tuple.
type SwapDataTickSpacing struct {
	Path        []common.Address
	Fees        []*big.Int
	TickSpacing []*big.Int
	Pool        common.Address
	PoolIds     [][32]byte
	Exchange    uint8
}

// SwapDataAggregator is the (path, fees, pool, exchange, swapTarget, callData) tuple.
type SwapDataAggregator struct {
	Path       []common.Address
	Fees       []*big.Int
	Pool       common.Address
	Exchange   uint8
	SwapTarget common.Address
	CallData   []byte
}

// DEXFor returns the on-chain exchange enum a contract type uses for route.
func DEXFor(contractType contracts.ContractType, route swaproute.SwapRoute) (DEX, error) {
	d, ok := dialects[contractType]
	if !ok {
		return DEXNone, fmt.Errorf("codec: unknown contract type %q", contractType)
	}

	var dex DEX
	switch route.Exchange {
	case swaproute.None:
		return DEXNone, nil
	case swaproute.ConstantProduct:
		dex = d.constantProduct
	case swaproute.ConcentratedLiquidity:
		if len(route.TickSpacings) > 0 {
			dex = d.tickSpacing
		} else {
			dex = d.feeTier
		}
	case swaproute.Stable:
		if len(route.PoolIDs) > 0 {
			dex = d.balancer
		} else {
			dex = d.curve
		}
	case swaproute.Aggregator:
		dex = d.aggregator
	}

	if dex == DEXNone {
		return DEXNone, fmt.Errorf("%w: %s routes are not supported by %s", swaproute.ErrInvalidSwapRoute, route.Exchange, contractType)
	}
	return dex, nil
}

// Supports reports whether contractType can execute route.
func Supports(contractType contracts.ContractType, route swaproute.SwapRoute) bool {
	if route.Validate() != nil {
		return false
	}
	_, err := DEXFor(contractType, route)
	return err == nil
}

// EncodeSwapData converts a route into the swap-data tuple value expected by
// contractType's ABI. The route is validated first.
func EncodeSwapData(contractType contracts.ContractType, route swaproute.SwapRoute) (any, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}
	dex, err := DEXFor(contractType, route)
	if err != nil {
		return nil, err
	}

	path := route.Path
	if path == nil {
		path = []common.Address{}
	}
	fees := toBigInts(route.Fees)

	switch contractType.Shape() {
	case contracts.ShapeBasic:
		return SwapDataBasic{Path: path, Fees: fees, Pool: route.Pool, Exchange: uint8(dex)}, nil
	case contracts.ShapeBalancer:
		return SwapDataBalancer{Path: path, Fees: fees, Pool: route.Pool, PoolIds: toBytes32(route.PoolIDs), Exchange: uint8(dex)}, nil
	case contracts.ShapeTickSpacing:
		return SwapDataTickSpacing{
			Path:        path,
			Fees:        fees,
			TickSpacing: tickSpacingsToBigInts(route.TickSpacings),
			Pool:        route.Pool,
			PoolIds:     toBytes32(route.PoolIDs),
			Exchange:    uint8(dex),
		}, nil
	case contracts.ShapeAggregator:
		callData := route.CallData
		if callData == nil {
			callData = []byte{}
		}
		return SwapDataAggregator{
			Path:       path,
			Fees:       fees,
			Pool:       route.Pool,
			Exchange:   uint8(dex),
			SwapTarget: route.SwapTarget,
			CallData:   callData,
		}, nil
	default:
		return nil, fmt.Errorf("codec: %s has no swap data shape", contractType)
	}
}

// DecodeSwapData converts an ABI-decoded swap-data tuple of contractType back
// into a normalized route. It is the inverse of EncodeSwapData, used to
// check what a built transaction will execute.
func DecodeSwapData(contractType contracts.ContractType, value any) (swaproute.SwapRoute, error) {
	var (
		path         []common.Address
		fees         []*big.Int
		tickSpacings []*big.Int
		pool         common.Address
		poolIDs      [][32]byte
		exchange     uint8
		target       common.Address
		callData     []byte
	)

	switch contractType.Shape() {
	case contracts.ShapeBasic:
		v := *abi.ConvertType(value, new(SwapDataBasic)).(*SwapDataBasic)
		path, fees, pool, exchange = v.Path, v.Fees, v.Pool, v.Exchange
	case contracts.ShapeBalancer:
		v := *abi.ConvertType(value, new(SwapDataBalancer)).(*SwapDataBalancer)
		path, fees, pool, poolIDs, exchange = v.Path, v.Fees, v.Pool, v.PoolIds, v.Exchange
	case contracts.ShapeTickSpacing:
		v := *abi.ConvertType(value, new(SwapDataTickSpacing)).(*SwapDataTickSpacing)
		path, fees, tickSpacings, pool, poolIDs, exchange = v.Path, v.Fees, v.TickSpacing, v.Pool, v.PoolIds, v.Exchange
	case contracts.ShapeAggregator:
		v := *abi.ConvertType(value, new(SwapDataAggregator)).(*SwapDataAggregator)
		path, fees, pool, exchange, target, callData = v.Path, v.Fees, v.Pool, v.Exchange, v.SwapTarget, v.CallData
	default:
		return swaproute.SwapRoute{}, fmt.Errorf("codec: %s has no swap data shape", contractType)
	}

	var route swaproute.SwapRoute
	switch DEX(exchange) {
	case DEXNone:
		route = swaproute.Empty()
	case DEXQuickswap, DEXSushiswap, DEXAerodrome:
		route = swaproute.NewConstantProduct(path)
		route.Fees = fromBigInts(fees)
	case DEXUniV3, DEXAerodromeSlipstream:
		route = swaproute.NewConcentratedLiquidity(path, fromBigInts(fees), tickSpacingsFromBigInts(tickSpacings))
	case DEXCurve:
		route = swaproute.SwapRoute{Exchange: swaproute.Stable, Path: path, Pool: pool}
	case DEXBalancerV2:
		route = swaproute.NewBalancer(path, fromBytes32(poolIDs))
	case DEXAggregator:
		if len(path) < 2 {
			return swaproute.SwapRoute{}, fmt.Errorf("%w: aggregator swap data without endpoints", swaproute.ErrInvalidSwapRoute)
		}
		route = swaproute.NewAggregator(target, callData, path[0], path[len(path)-1])
	default:
		return swaproute.SwapRoute{}, fmt.Errorf("%w: unknown dex %d", swaproute.ErrInvalidSwapRoute, exchange)
	}

	if err := route.Validate(); err != nil {
		return swaproute.SwapRoute{}, err
	}
	return route, nil
}

func toBigInts(values []uint32) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = new(big.Int).SetUint64(uint64(v))
	}
	return out
}

func fromBigInts(values []*big.Int) []uint32 {
	if len(values) == 0 {
		return nil
	}
	out := make([]uint32, len(values))
	for i, v := range values {
		out[i] = uint32(v.Uint64())
	}
	return out
}

func tickSpacingsToBigInts(values []int32) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(int64(v))
	}
	return out
}

func tickSpacingsFromBigInts(values []*big.Int) []int32 {
	if len(values) == 0 {
		return nil
	}
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v.Int64())
	}
	return out
}

func toBytes32(ids []common.Hash) [][32]byte {
	out := make([][32]byte, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func fromBytes32(ids [][32]byte) []common.Hash {
	if len(ids) == 0 {
		return nil
	}
	out := make([]common.Hash, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
