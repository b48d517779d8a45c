package http

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/defistate/flashmint-quote-go/quote"
	"github.com/defistate/flashmint-quote-go/slippage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	unitsBase  = "base"
	unitsHuman = "human"
)

// DecimalsReader reads a token's decimals on chain. Used for tokens missing
// from the token table when amounts are given in human units.
type DecimalsReader interface {
	Decimals(ctx context.Context, chainID uint64, token common.Address) (uint8, error)
}

// parseQuoteRequest reads the /quote query parameters:
//
//	chainId, isMinting, inputToken, outputToken, indexTokenAmount,
//	slippage, counterAmount, taker, amountUnits
//
// Tokens are symbols or hex addresses. amountUnits is "base" (default) or
// "human"; human amounts are scaled by the token's decimals.
func (h *QuoteHandler) parseQuoteRequest(c echo.Context) (quote.Request, error) {
	ctx := c.Request().Context()
	var req quote.Request

	chainID, err := strconv.ParseUint(c.QueryParam("chainId"), 10, 64)
	if err != nil {
		return req, fmt.Errorf("%w: chainId: %v", ErrBadParameter, err)
	}
	req.ChainID = chainID

	if s := c.QueryParam("isMinting"); s != "" {
		req.IsMinting, err = strconv.ParseBool(s)
		if err != nil {
			return req, fmt.Errorf("%w: isMinting: %v", ErrBadParameter, err)
		}
	}

	if req.InputToken, err = h.tokenAddress(chainID, "inputToken", c.QueryParam("inputToken")); err != nil {
		return req, err
	}
	if req.OutputToken, err = h.tokenAddress(chainID, "outputToken", c.QueryParam("outputToken")); err != nil {
		return req, err
	}

	units := c.QueryParam("amountUnits")
	switch units {
	case "":
		units = unitsBase
	case unitsBase, unitsHuman:
	default:
		return req, fmt.Errorf("%w: amountUnits must be %q or %q", ErrBadParameter, unitsBase, unitsHuman)
	}

	req.IndexTokenAmount, err = h.amount(ctx, chainID, req.IndexToken(), "indexTokenAmount", c.QueryParam("indexTokenAmount"), units)
	if err != nil {
		return req, err
	}
	if req.IndexTokenAmount == nil {
		return req, fmt.Errorf("%w: indexTokenAmount is required", ErrBadParameter)
	}
	req.CounterAmount, err = h.amount(ctx, chainID, req.PaymentToken(), "counterAmount", c.QueryParam("counterAmount"), units)
	if err != nil {
		return req, err
	}

	if s := c.QueryParam("slippage"); s != "" {
		req.Slippage, err = slippage.Parse(s)
		if err != nil {
			return req, err
		}
	}

	if s := c.QueryParam("taker"); s != "" {
		if !common.IsHexAddress(s) {
			return req, fmt.Errorf("%w: taker %q is not an address", ErrBadParameter, s)
		}
		req.Taker = common.HexToAddress(s)
	}
	return req, nil
}

func (h *QuoteHandler) tokenAddress(chainID uint64, param, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%w: %s is required", ErrBadParameter, param)
	}
	if t, ok := h.tokens.Lookup(chainID, value); ok {
		if addr, ok := t.AddressOn(chainID); ok {
			return addr, nil
		}
		return common.Address{}, fmt.Errorf("%w: %s %s is not deployed on chain %d", ErrBadParameter, param, t.Symbol, chainID)
	}
	if common.IsHexAddress(value) {
		return common.HexToAddress(value), nil
	}
	return common.Address{}, fmt.Errorf("%w: unknown %s %q", ErrBadParameter, param, value)
}

// amount parses an optional amount. An empty value returns nil.
func (h *QuoteHandler) amount(ctx context.Context, chainID uint64, token common.Address, param, value, units string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	if units == unitsBase {
		n, ok := new(big.Int).SetString(value, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s %q is not a non-negative integer", ErrBadParameter, param, value)
		}
		return n, nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("%w: %s %q is not a non-negative number", ErrBadParameter, param, value)
	}
	decimals, err := h.decimals(ctx, chainID, token)
	if err != nil {
		return nil, err
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s %s has more than %d decimals", ErrBadParameter, param, value, decimals)
	}
	return scaled.BigInt(), nil
}

func (h *QuoteHandler) decimals(ctx context.Context, chainID uint64, token common.Address) (uint8, error) {
	if t, ok := h.tokens.ByAddress(chainID, token); ok {
		return t.Decimals, nil
	}
	if h.decimalsReader == nil {
		return 0, fmt.Errorf("%w: decimals of %s are unknown", ErrBadParameter, token.Hex())
	}
	d, err := h.decimalsReader.Decimals(ctx, chainID, token)
	if err != nil {
		return 0, fmt.Errorf("failed to read decimals of %s: %w", token.Hex(), err)
	}
	return d, nil
}
