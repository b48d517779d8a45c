package uniswapv2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is a snapshot of a constant-product pair read from chain.
type Pool struct {
	Address  common.Address `json:"address"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
	FeeBps   uint16         `json:"feeBps"` // i.e 30 for 0.3%
}

// Has reports whether token is one side of the pool.
func (p Pool) Has(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}
