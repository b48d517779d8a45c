package tokens

import (
	"testing"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	wethAddress := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddress := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	nonExistentAddress := common.HexToAddress("0x1111111111111111111111111111111111111111")

	testTokens := []Token{
		{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Addresses: map[uint64]common.Address{chains.Mainnet: wethAddress}},
		{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Addresses: map[uint64]common.Address{chains.Mainnet: usdcAddress}},
	}

	registry, err := NewRegistry(testTokens)
	require.NoError(t, err)

	t.Run("Successful Lookups", func(t *testing.T) {
		weth, found := registry.BySymbol("weth")
		assert.True(t, found, "symbol lookups ignore case")
		assert.Equal(t, "WETH", weth.Symbol)

		usdc, found := registry.ByAddress(chains.Mainnet, usdcAddress)
		assert.True(t, found)
		assert.Equal(t, uint8(6), usdc.Decimals)

		byHex, found := registry.Lookup(chains.Mainnet, usdcAddress.Hex())
		assert.True(t, found)
		assert.Equal(t, "USDC", byHex.Symbol)
	})

	t.Run("Not Found Lookups", func(t *testing.T) {
		_, found := registry.BySymbol("DAI")
		assert.False(t, found)

		_, found = registry.ByAddress(chains.Mainnet, nonExistentAddress)
		assert.False(t, found)

		_, found = registry.ByAddress(chains.Arbitrum, wethAddress)
		assert.False(t, found, "addresses are scoped to their chain")
	})

	t.Run("AddressOn reports tokens missing on a chain", func(t *testing.T) {
		weth, _ := registry.BySymbol("WETH")
		_, ok := weth.AddressOn(chains.Base)
		assert.False(t, ok)
	})

	t.Run("All returns a copy", func(t *testing.T) {
		all := registry.All()
		require.Len(t, all, 2)
		all[0].Symbol = "MODIFIED"
		all[0].Addresses[chains.Mainnet] = nonExistentAddress

		original, _ := registry.BySymbol("WETH")
		assert.Equal(t, "WETH", original.Symbol)
		assert.Equal(t, wethAddress, original.Addresses[chains.Mainnet])
	})

	t.Run("Duplicate symbols are rejected", func(t *testing.T) {
		_, err := NewRegistry([]Token{{Symbol: "WETH"}, {Symbol: "weth"}})
		assert.ErrorIs(t, err, ErrDuplicateSymbol)
	})

	t.Run("Duplicate addresses on one chain are rejected", func(t *testing.T) {
		_, err := NewRegistry([]Token{
			{Symbol: "A", Addresses: map[uint64]common.Address{chains.Mainnet: wethAddress}},
			{Symbol: "B", Addresses: map[uint64]common.Address{chains.Mainnet: wethAddress}},
		})
		assert.ErrorIs(t, err, ErrDuplicateAddress)
	})

	t.Run("Nil slice builds an empty registry", func(t *testing.T) {
		empty, err := NewRegistry(nil)
		require.NoError(t, err)
		assert.NotNil(t, empty.All())
		assert.Len(t, empty.All(), 0)
	})
}

func TestDefault(t *testing.T) {
	registry := Default()

	eth, ok := registry.BySymbol("ETH")
	require.True(t, ok)
	addr, ok := eth.AddressOn(chains.Arbitrum)
	require.True(t, ok)
	assert.True(t, chains.IsNative(addr))

	for _, chainID := range []uint64{chains.Mainnet, chains.Arbitrum, chains.Base} {
		weth, ok := registry.BySymbol("WETH")
		require.True(t, ok)
		wrapped, _ := chains.WrappedNative(chainID)
		assert.Equal(t, wrapped, weth.Addresses[chainID], chains.Name(chainID))
	}
}
