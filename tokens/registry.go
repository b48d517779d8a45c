package tokens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrEmptySymbol      = errors.New("token symbol is empty")
	ErrDuplicateSymbol  = errors.New("duplicate token symbol")
	ErrDuplicateAddress = errors.New("duplicate token address")
)

type chainAddress struct {
	chainID uint64
	address common.Address
}

// Registry provides fast, indexed, read-only access to token metadata.
// It is built once and safe for concurrent use.
type Registry struct {
	bySymbol  map[string]Token
	byAddress map[chainAddress]Token
	all       []Token
}

// NewRegistry indexes tokens by upper-cased symbol and by (chain, address).
func NewRegistry(tokens []Token) (*Registry, error) {
	r := &Registry{
		bySymbol:  make(map[string]Token, len(tokens)),
		byAddress: make(map[chainAddress]Token, len(tokens)),
		all:       make([]Token, 0, len(tokens)),
	}

	for _, t := range tokens {
		if t.Symbol == "" {
			return nil, ErrEmptySymbol
		}
		key := strings.ToUpper(t.Symbol)
		if _, exists := r.bySymbol[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, t.Symbol)
		}
		t = t.clone()
		for chainID, addr := range t.Addresses {
			ca := chainAddress{chainID: chainID, address: addr}
			if other, exists := r.byAddress[ca]; exists {
				return nil, fmt.Errorf("%w: %s and %s share %s on chain %d", ErrDuplicateAddress, other.Symbol, t.Symbol, addr.Hex(), chainID)
			}
			r.byAddress[ca] = t
		}
		r.bySymbol[key] = t
		r.all = append(r.all, t)
	}

	return r, nil
}

// BySymbol looks a token up by symbol, case-insensitively.
func (r *Registry) BySymbol(symbol string) (Token, bool) {
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return Token{}, false
	}
	return t.clone(), true
}

// ByAddress looks a token up by its address on a chain.
func (r *Registry) ByAddress(chainID uint64, address common.Address) (Token, bool) {
	t, ok := r.byAddress[chainAddress{chainID: chainID, address: address}]
	if !ok {
		return Token{}, false
	}
	return t.clone(), true
}

// Lookup accepts either a symbol or a hex address.
func (r *Registry) Lookup(chainID uint64, symbolOrAddress string) (Token, bool) {
	if common.IsHexAddress(symbolOrAddress) {
		return r.ByAddress(chainID, common.HexToAddress(symbolOrAddress))
	}
	return r.BySymbol(symbolOrAddress)
}

// All returns a copy of every token in the registry.
func (r *Registry) All() []Token {
	allCopy := make([]Token, len(r.all))
	for i, t := range r.all {
		allCopy[i] = t.clone()
	}
	return allCopy
}
