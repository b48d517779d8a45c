// Package onchaintest provides an in-memory onchain.Caller for tests.
package onchaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// HandlerFunc receives the unpacked call arguments and returns the outputs to pack.
type HandlerFunc func(args []any) ([]any, error)

type route struct {
	to       common.Address
	selector [4]byte
}

type handler struct {
	method abi.Method
	fn     HandlerFunc
}

// FakeCaller dispatches eth_calls by (to, selector) to registered handlers.
type FakeCaller struct {
	mu       sync.Mutex
	handlers map[route]handler
	calls    map[string]int
}

// NewFakeCaller returns an empty FakeCaller.
func NewFakeCaller() *FakeCaller {
	return &FakeCaller{
		handlers: make(map[route]handler),
		calls:    make(map[string]int),
	}
}

// Handle registers fn for calls of method on contract to.
func (f *FakeCaller) Handle(to common.Address, parsed abi.ABI, method string, fn HandlerFunc) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("onchaintest: abi has no method %s", method))
	}
	var selector [4]byte
	copy(selector[:], m.ID)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[route{to: to, selector: selector}] = handler{method: m, fn: fn}
}

// Calls returns how many times method was called on any contract.
func (f *FakeCaller) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// CallContract implements onchain.Caller.
func (f *FakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("onchaintest: malformed call")
	}
	var selector [4]byte
	copy(selector[:], msg.Data[:4])

	f.mu.Lock()
	h, ok := f.handlers[route{to: *msg.To, selector: selector}]
	if ok {
		f.calls[h.method.Name]++
	}
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("execution reverted: no handler for %x on %s", selector, msg.To.Hex())
	}

	args, err := h.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h.fn(args)
	if err != nil {
		return nil, err
	}
	return h.method.Outputs.Pack(out...)
}
