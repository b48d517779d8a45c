package config

import (
	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/swapquote/curve"
	"github.com/ethereum/go-ethereum/common"
)

type deployment struct {
	v2Factory  string
	quoter     string
	curvePools []curve.Pool
}

var deployments = map[uint64]deployment{
	chains.Mainnet: {
		v2Factory:  "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f",
		quoter:     "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
		curvePools: []curve.Pool{curve.StETHETHPool},
	},
	chains.Arbitrum: {
		v2Factory: "0xf1D7CC64Fb4452F05c498126312eBE29f30Fbcf9",
		quoter:    "0x61fFE014bA17989E743c5F6cB21bF9697530B21e",
	},
	chains.Base: {
		v2Factory: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6",
		quoter:    "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a",
	},
}

func (c *ChainConfig) applyDefaults() {
	d, ok := deployments[c.ID]
	if !ok {
		return
	}
	if c.V2Factory == "" {
		c.V2Factory = d.v2Factory
	}
	if c.Quoter == "" {
		c.Quoter = d.quoter
	}
	if len(c.CurvePools) == 0 {
		for _, p := range d.curvePools {
			pc := CurvePoolConfig{Address: p.Address.Hex()}
			for _, coin := range p.Coins {
				pc.Coins = append(pc.Coins, coin.Hex())
			}
			c.CurvePools = append(c.CurvePools, pc)
		}
	}
}

// Pools converts the configured Curve pools.
func (c ChainConfig) Pools() []curve.Pool {
	pools := make([]curve.Pool, 0, len(c.CurvePools))
	for _, p := range c.CurvePools {
		pool := curve.Pool{ChainID: c.ID, Address: common.HexToAddress(p.Address)}
		for _, coin := range p.Coins {
			pool.Coins = append(pool.Coins, common.HexToAddress(coin))
		}
		pools = append(pools, pool)
	}
	return pools
}
