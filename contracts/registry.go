package contracts

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/defistate/flashmint-quote-go/tokens"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnsupportedToken  = errors.New("unsupported index token")
	ErrUnknownType       = errors.New("unknown contract type")
	ErrMissingMethod     = errors.New("contract abi is missing a method")
	ErrUnknownIndexToken = errors.New("dedicated contract lists an unknown index token")
	ErrAmbiguousEntry    = errors.New("ambiguous contract registry entry")
)

var requiredMethods = []string{
	MethodIssueFromETH,
	MethodIssueFromERC20,
	MethodRedeemForETH,
	MethodRedeemForERC20,
	MethodGetLeveragedTokenData,
}

// UnsupportedTokenError is returned when no contract serves the index token on
// the requested chain.
type UnsupportedTokenError struct {
	ChainID uint64
	Token   string
}

func (e UnsupportedTokenError) Error() string {
	return fmt.Sprintf("%s: %s on chain %d", ErrUnsupportedToken, e.Token, e.ChainID)
}

func (e UnsupportedTokenError) Is(target error) bool {
	return target == ErrUnsupportedToken
}

type chainSymbol struct {
	chainID uint64
	symbol  string
}

// Registry is the immutable (chain, index token) -> contract lookup.
type Registry struct {
	tokens    *tokens.Registry
	dedicated map[chainSymbol]Entry
	generic   map[uint64]Entry
	entries   []Entry
}

// NewRegistry validates entries against the token table and indexes them.
// Every issue is reported at construction so that lookups never fail on
// malformed data.
func NewRegistry(entries []Entry, tokenRegistry *tokens.Registry) (*Registry, error) {
	if tokenRegistry == nil {
		return nil, errors.New("contracts: token registry is required")
	}

	r := &Registry{
		tokens:    tokenRegistry,
		dedicated: make(map[chainSymbol]Entry),
		generic:   make(map[uint64]Entry),
		entries:   make([]Entry, 0, len(entries)),
	}

	for _, e := range entries {
		if !e.Type.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
		}
		if e.Address == (common.Address{}) {
			return nil, fmt.Errorf("contracts: %s on chain %d has no address", e.Type, e.ChainID)
		}
		parsed := e.Type.ABI()
		for _, m := range requiredMethods {
			if _, ok := parsed.Methods[m]; !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrMissingMethod, e.Type, m)
			}
		}
		e.IndexTokens = slices.Clone(e.IndexTokens)

		if !e.Dedicated() {
			if existing, ok := r.generic[e.ChainID]; ok {
				switch {
				case existing.Type.Generation() == e.Type.Generation():
					return nil, fmt.Errorf("%w: two generation %d contracts on chain %d", ErrAmbiguousEntry, e.Type.Generation(), e.ChainID)
				case existing.Type.Generation() > e.Type.Generation():
					r.entries = append(r.entries, e)
					continue
				}
			}
			r.generic[e.ChainID] = e
			r.entries = append(r.entries, e)
			continue
		}

		for _, symbol := range e.IndexTokens {
			token, ok := tokenRegistry.BySymbol(symbol)
			if !ok || !token.Leveraged {
				return nil, fmt.Errorf("%w: %s", ErrUnknownIndexToken, symbol)
			}
			if _, ok := token.AddressOn(e.ChainID); !ok {
				return nil, fmt.Errorf("%w: %s is not deployed on chain %d", ErrUnknownIndexToken, symbol, e.ChainID)
			}
			key := chainSymbol{chainID: e.ChainID, symbol: strings.ToUpper(token.Symbol)}
			if _, exists := r.dedicated[key]; exists {
				return nil, fmt.Errorf("%w: %s on chain %d", ErrAmbiguousEntry, symbol, e.ChainID)
			}
			r.dedicated[key] = e
		}
		r.entries = append(r.entries, e)
	}

	return r, nil
}

// Resolve returns the contract that mints and redeems indexToken on chainID.
// indexToken may be a symbol or a hex address. A dedicated deployment for the
// token wins over the chain's generic contract; the generic contract is the
// highest generation registered for the chain.
func (r *Registry) Resolve(chainID uint64, indexToken string) (Entry, error) {
	token, ok := r.tokens.Lookup(chainID, indexToken)
	if !ok || !token.Leveraged {
		return Entry{}, UnsupportedTokenError{ChainID: chainID, Token: indexToken}
	}
	if _, ok := token.AddressOn(chainID); !ok {
		return Entry{}, UnsupportedTokenError{ChainID: chainID, Token: indexToken}
	}

	if e, ok := r.dedicated[chainSymbol{chainID: chainID, symbol: strings.ToUpper(token.Symbol)}]; ok {
		return e.clone(), nil
	}
	if e, ok := r.generic[chainID]; ok {
		return e.clone(), nil
	}
	return Entry{}, UnsupportedTokenError{ChainID: chainID, Token: indexToken}
}

// Entries returns a copy of every registered entry.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

func (e Entry) clone() Entry {
	e.IndexTokens = slices.Clone(e.IndexTokens)
	return e
}
