package chains

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth, _ := WrappedNative(Mainnet)

	testCases := []struct {
		name    string
		chainID uint64
		addr    common.Address
		want    common.Address
	}{
		{name: "Native placeholder becomes WETH", chainID: Mainnet, addr: NativeToken, want: weth},
		{name: "Zero address counts as native", chainID: Mainnet, addr: common.Address{}, want: weth},
		{name: "ERC-20 is left alone", chainID: Mainnet, addr: usdc, want: usdc},
		{name: "Base wraps to its own WETH", chainID: Base, addr: NativeToken, want: common.HexToAddress("0x4200000000000000000000000000000000000006")},
		{name: "Unknown chain keeps the placeholder", chainID: 999, addr: NativeToken, want: NativeToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Canonicalize(tc.chainID, tc.addr))
		})
	}
}

func TestChainHelpers(t *testing.T) {
	weth, ok := WrappedNative(Arbitrum)
	assert.True(t, ok)
	assert.True(t, SameAsset(Arbitrum, NativeToken, weth))
	assert.False(t, SameAsset(Mainnet, NativeToken, weth))

	assert.True(t, Supported(Base))
	assert.False(t, Supported(10))
	assert.Equal(t, "arbitrum", Name(Arbitrum))
	assert.Equal(t, "unknown", Name(10))
	assert.True(t, IsNative(NativeToken))
	assert.False(t, IsNative(weth))
}
