package tokens

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token is a chain-agnostic token reference. A token is deployed on a chain
// only when Addresses has an entry for that chain id.
type Token struct {
	Symbol    string                    `json:"symbol"`
	Name      string                    `json:"name"`
	Decimals  uint8                     `json:"decimals"`
	Addresses map[uint64]common.Address `json:"addresses"`
	// Leveraged marks index tokens that flash-mint contracts can issue.
	Leveraged bool                      `json:"leveraged"`
}

// AddressOn returns the token address on the given chain.
func (t Token) AddressOn(chainID uint64) (common.Address, bool) {
	addr, ok := t.Addresses[chainID]
	return addr, ok
}

// clone returns a copy that does not share the address map.
func (t Token) clone() Token {
	c := t
	c.Addresses = make(map[uint64]common.Address, len(t.Addresses))
	for id, addr := range t.Addresses {
		c.Addresses[id] = addr
	}
	return c
}
