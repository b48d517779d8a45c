package chains

import (
	"github.com/ethereum/go-ethereum/common"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Chain IDs with flash-mint deployments.
const (
	Mainnet  uint64 = 1
	Arbitrum uint64 = 42161
	Base     uint64 = 8453
)

// NativeToken is the placeholder address used for a chain's native asset.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

var wrappedNative = map[uint64]common.Address{
	Mainnet:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	Arbitrum: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
	Base:     common.HexToAddress("0x4200000000000000000000000000000000000006"),
}

var names = map[uint64]string{
	Mainnet:  "mainnet",
	Arbitrum: "arbitrum",
	Base:     "base",
}

// Name returns a short human readable name for the chain, or "unknown".
func Name(chainID uint64) string {
	if n, ok := names[chainID]; ok {
		return n
	}
	return "unknown"
}

// Supported reports whether the chain has a wrapped native token registered.
func Supported(chainID uint64) bool {
	_, ok := wrappedNative[chainID]
	return ok
}

// WrappedNative returns the canonical wrapped native token (WETH) of a chain.
func WrappedNative(chainID uint64) (common.Address, bool) {
	addr, ok := wrappedNative[chainID]
	return addr, ok
}

// IsNative reports whether addr is the native asset placeholder.
// The zero address is treated as native as well.
func IsNative(addr common.Address) bool {
	return addr == NativeToken || addr == (common.Address{})
}

// Canonicalize substitutes the wrapped native token for the native placeholder.
// Path-based venues can only route ERC-20 tokens.
func Canonicalize(chainID uint64, addr common.Address) common.Address {
	if !IsNative(addr) {
		return addr
	}
	if weth, ok := wrappedNative[chainID]; ok {
		return weth
	}
	return addr
}

// SameAsset reports whether a and b refer to the same asset once native is
// replaced by its wrapped form.
func SameAsset(chainID uint64, a, b common.Address) bool {
	return Canonicalize(chainID, a) == Canonicalize(chainID, b)
}
