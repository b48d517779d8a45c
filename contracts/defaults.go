package contracts

import (
	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultEntries returns the deployed flash-mint contracts.
func DefaultEntries() []Entry {
	return []Entry{
		{
			ChainID:     chains.Mainnet,
			Address:     common.HexToAddress("0x0FeB3b5B5fCEaE1aC7bA2E59e8C3Bf2C5fF1EA89"),
			Type:        ExchangeIssuanceLeveraged,
			IndexTokens: []string{"icETH", "ETH2x-FLI"},
		},
		{
			ChainID: chains.Mainnet,
			Address: common.HexToAddress("0x45c00508C14601fd1C1e296eB3C0e3eEEdCa45D0"),
			Type:    FlashMintLeveraged,
		},
		{
			ChainID: chains.Arbitrum,
			Address: common.HexToAddress("0x4B1238EB1C3BB0Cf6E7bA5D3b40c5aAB0B4D8F11"),
			Type:    FlashMintLeveraged,
		},
		{
			ChainID: chains.Arbitrum,
			Address: common.HexToAddress("0xE6c18c4C9FC6909EDa546649EBE33A8159256CBE"),
			Type:    FlashMintLeveragedAggregator,
		},
		{
			ChainID: chains.Base,
			Address: common.HexToAddress("0xE6c18c4C9FC6909EDa546649EBE33A8159256CBE"),
			Type:    FlashMintLeveragedAerodrome,
		},
	}
}
