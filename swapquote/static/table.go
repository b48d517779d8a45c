// Package static serves hand-picked routes for index tokens whose best
// liquidity is known ahead of time. Routes are priced live by a RoutePricer.
package static

import (
	"errors"
	"fmt"
	"strings"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrDuplicateEntry = errors.New("duplicate static route")
	ErrInvalidEntry   = errors.New("invalid static route")
)

// Entry is a route authored in the minting direction: from CounterToken
// towards the index token's collateral. Redemptions use the reversed route.
type Entry struct {
	ChainID      uint64
	IndexSymbol  string
	CounterToken common.Address
	Route        swaproute.SwapRoute
}

type key struct {
	chainID uint64
	symbol  string
	counter common.Address
}

// Table is an immutable set of static routes.
type Table struct {
	entries map[key]Entry
}

// NewTable validates entries and indexes them by (chain, symbol, counter token).
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[key]Entry, len(entries))}
	for _, e := range entries {
		if e.ChainID == 0 || e.IndexSymbol == "" {
			return nil, fmt.Errorf("%w: chain and index symbol are required", ErrInvalidEntry)
		}
		if e.Route.IsEmpty() {
			return nil, fmt.Errorf("%w: %s on %d has an empty route", ErrInvalidEntry, e.IndexSymbol, e.ChainID)
		}
		if err := e.Route.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s on %d: %v", ErrInvalidEntry, e.IndexSymbol, e.ChainID, err)
		}
		first, _ := e.Route.TokenIn()
		if !chains.SameAsset(e.ChainID, first, e.CounterToken) {
			return nil, fmt.Errorf("%w: %s on %d starts at %s, not the counter token %s", ErrInvalidEntry, e.IndexSymbol, e.ChainID, first.Hex(), e.CounterToken.Hex())
		}

		k := key{chainID: e.ChainID, symbol: strings.ToUpper(e.IndexSymbol), counter: e.CounterToken}
		if _, exists := t.entries[k]; exists {
			return nil, fmt.Errorf("%w: %s on %d for %s", ErrDuplicateEntry, e.IndexSymbol, e.ChainID, e.CounterToken.Hex())
		}
		e.Route = e.Route.Clone()
		t.entries[k] = e
	}
	return t, nil
}

// Lookup returns the route for the leg of indexSymbol that swaps against
// counter, oriented for the minting or redeeming direction. A native counter
// token falls back to the wrapped native entry and vice versa.
func (t *Table) Lookup(chainID uint64, indexSymbol string, counter common.Address, minting bool) (swaproute.SwapRoute, bool) {
	symbol := strings.ToUpper(indexSymbol)
	e, ok := t.entries[key{chainID: chainID, symbol: symbol, counter: counter}]
	if !ok {
		e, ok = t.lookupAlias(chainID, symbol, counter)
	}
	if !ok {
		return swaproute.SwapRoute{}, false
	}
	if minting {
		return e.Route.Clone(), true
	}
	return e.Route.Reverse(), true
}

func (t *Table) lookupAlias(chainID uint64, symbol string, counter common.Address) (Entry, bool) {
	weth, ok := chains.WrappedNative(chainID)
	if !ok {
		return Entry{}, false
	}
	var alias common.Address
	switch {
	case chains.IsNative(counter):
		alias = weth
	case counter == weth:
		alias = chains.NativeToken
	default:
		return Entry{}, false
	}
	e, ok := t.entries[key{chainID: chainID, symbol: symbol, counter: alias}]
	return e, ok
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.entries)
}
