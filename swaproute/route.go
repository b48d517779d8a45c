// Package swaproute defines the normalized, venue-independent description of a
// swap that a flash-mint contract executes for one leg of a mint or redeem.
package swaproute

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidSwapRoute = errors.New("invalid swap route")

// Exchange is the kind of venue a route executes on.
type Exchange uint8

const (
	// None means no swap is needed for the leg.
	None Exchange = iota
	// ConstantProduct is a Uniswap V2 style x*y=k router path.
	ConstantProduct
	// ConcentratedLiquidity is a Uniswap V3 style fee-tier or tick-spacing path.
	ConcentratedLiquidity
	// Stable is a single Curve pool or a Balancer pool-id path.
	Stable
	// Aggregator is opaque calldata executed against an aggregator target.
	Aggregator
)

func (e Exchange) String() string {
	switch e {
	case None:
		return "none"
	case ConstantProduct:
		return "v2"
	case ConcentratedLiquidity:
		return "v3"
	case Stable:
		return "stable"
	case Aggregator:
		return "aggregator"
	default:
		return fmt.Sprintf("exchange(%d)", uint8(e))
	}
}

// SwapRoute is the normalized form of a swap. Auxiliary fields are only
// populated for the exchange kinds that need them.
type SwapRoute struct {
	Exchange Exchange         `json:"exchange"`
	Path     []common.Address `json:"path"`
	Fees     []uint32         `json:"fees,omitempty"`

	Pool    common.Address `json:"pool,omitempty"`
	PoolIDs []common.Hash  `json:"poolIds,omitempty"`

	TickSpacings []int32 `json:"tickSpacings,omitempty"`

	SwapTarget common.Address `json:"swapTarget,omitempty"`
	CallData   []byte         `json:"callData,omitempty"`
}

// Empty returns the route for a leg that needs no swap.
func Empty() SwapRoute {
	return SwapRoute{Exchange: None}
}

// NewConstantProduct builds a V2 style route over path.
func NewConstantProduct(path []common.Address) SwapRoute {
	return SwapRoute{Exchange: ConstantProduct, Path: slices.Clone(path)}
}

// NewConcentratedLiquidity builds a V3 style route. tickSpacings may be nil
// for fee-tier pools.
func NewConcentratedLiquidity(path []common.Address, fees []uint32, tickSpacings []int32) SwapRoute {
	return SwapRoute{
		Exchange:     ConcentratedLiquidity,
		Path:         slices.Clone(path),
		Fees:         slices.Clone(fees),
		TickSpacings: slices.Clone(tickSpacings),
	}
}

// NewStable builds a single-pool Curve style route.
func NewStable(pool, tokenIn, tokenOut common.Address) SwapRoute {
	return SwapRoute{
		Exchange: Stable,
		Path:     []common.Address{tokenIn, tokenOut},
		Pool:     pool,
	}
}

// NewBalancer builds a stable route over Balancer pool ids, one per hop.
func NewBalancer(path []common.Address, poolIDs []common.Hash) SwapRoute {
	return SwapRoute{
		Exchange: Stable,
		Path:     slices.Clone(path),
		PoolIDs:  slices.Clone(poolIDs),
	}
}

// NewAggregator wraps opaque aggregator calldata. Only the first and last
// tokens of the swap are known.
func NewAggregator(target common.Address, callData []byte, tokenIn, tokenOut common.Address) SwapRoute {
	return SwapRoute{
		Exchange:   Aggregator,
		Path:       []common.Address{tokenIn, tokenOut},
		SwapTarget: target,
		CallData:   slices.Clone(callData),
	}
}

// IsEmpty reports whether the route performs no swap.
func (r SwapRoute) IsEmpty() bool {
	return r.Exchange == None
}

// TokenIn returns the first token of the path.
func (r SwapRoute) TokenIn() (common.Address, bool) {
	if len(r.Path) == 0 {
		return common.Address{}, false
	}
	return r.Path[0], true
}

// TokenOut returns the last token of the path.
func (r SwapRoute) TokenOut() (common.Address, bool) {
	if len(r.Path) == 0 {
		return common.Address{}, false
	}
	return r.Path[len(r.Path)-1], true
}

// Hops returns the number of swaps along the path.
func (r SwapRoute) Hops() int {
	if len(r.Path) < 2 {
		return 0
	}
	return len(r.Path) - 1
}

// Validate checks the structural invariants of the route.
func (r SwapRoute) Validate() error {
	if r.Exchange == None {
		if len(r.Path) != 0 || len(r.Fees) != 0 || r.hasStableAux() || len(r.TickSpacings) != 0 || r.hasAggregatorAux() {
			return fmt.Errorf("%w: empty route carries swap data", ErrInvalidSwapRoute)
		}
		return nil
	}

	if len(r.Path) < 2 {
		return fmt.Errorf("%w: %s route needs at least 2 tokens, got %d", ErrInvalidSwapRoute, r.Exchange, len(r.Path))
	}
	hops := len(r.Path) - 1

	switch r.Exchange {
	case ConstantProduct:
		if len(r.Fees) != 0 && len(r.Fees) != hops {
			return fmt.Errorf("%w: %d fees for %d hops", ErrInvalidSwapRoute, len(r.Fees), hops)
		}
		if r.hasStableAux() || len(r.TickSpacings) != 0 || r.hasAggregatorAux() {
			return fmt.Errorf("%w: v2 route carries auxiliary data", ErrInvalidSwapRoute)
		}
	case ConcentratedLiquidity:
		if len(r.Fees) != hops {
			return fmt.Errorf("%w: %d fees for %d hops", ErrInvalidSwapRoute, len(r.Fees), hops)
		}
		if len(r.TickSpacings) != 0 && len(r.TickSpacings) != hops {
			return fmt.Errorf("%w: %d tick spacings for %d hops", ErrInvalidSwapRoute, len(r.TickSpacings), hops)
		}
		if r.hasStableAux() || r.hasAggregatorAux() {
			return fmt.Errorf("%w: v3 route carries auxiliary data", ErrInvalidSwapRoute)
		}
	case Stable:
		hasPool := r.Pool != (common.Address{})
		hasIDs := len(r.PoolIDs) != 0
		if hasPool == hasIDs {
			return fmt.Errorf("%w: stable route needs exactly one of pool or pool ids", ErrInvalidSwapRoute)
		}
		if hasPool && hops != 1 {
			return fmt.Errorf("%w: single-pool route with %d hops", ErrInvalidSwapRoute, hops)
		}
		if hasIDs && len(r.PoolIDs) != hops {
			return fmt.Errorf("%w: %d pool ids for %d hops", ErrInvalidSwapRoute, len(r.PoolIDs), hops)
		}
		if len(r.TickSpacings) != 0 || r.hasAggregatorAux() {
			return fmt.Errorf("%w: stable route carries auxiliary data", ErrInvalidSwapRoute)
		}
	case Aggregator:
		if r.SwapTarget == (common.Address{}) || len(r.CallData) == 0 {
			return fmt.Errorf("%w: aggregator route needs a target and calldata", ErrInvalidSwapRoute)
		}
		if r.hasStableAux() || len(r.TickSpacings) != 0 {
			return fmt.Errorf("%w: aggregator route carries auxiliary data", ErrInvalidSwapRoute)
		}
	default:
		return fmt.Errorf("%w: unknown exchange %s", ErrInvalidSwapRoute, r.Exchange)
	}

	return nil
}

// Reverse returns a copy of the route running in the opposite direction.
// Aggregator calldata cannot be reversed and is returned unchanged apart
// from its endpoints.
func (r SwapRoute) Reverse() SwapRoute {
	out := r.Clone()
	slices.Reverse(out.Path)
	slices.Reverse(out.Fees)
	slices.Reverse(out.TickSpacings)
	slices.Reverse(out.PoolIDs)
	return out
}

// Clone returns a deep copy of the route.
func (r SwapRoute) Clone() SwapRoute {
	return SwapRoute{
		Exchange:     r.Exchange,
		Path:         slices.Clone(r.Path),
		Fees:         slices.Clone(r.Fees),
		Pool:         r.Pool,
		PoolIDs:      slices.Clone(r.PoolIDs),
		TickSpacings: slices.Clone(r.TickSpacings),
		SwapTarget:   r.SwapTarget,
		CallData:     slices.Clone(r.CallData),
	}
}

func (r SwapRoute) hasStableAux() bool {
	return r.Pool != (common.Address{}) || len(r.PoolIDs) != 0
}

func (r SwapRoute) hasAggregatorAux() bool {
	return r.SwapTarget != (common.Address{}) || len(r.CallData) != 0
}
