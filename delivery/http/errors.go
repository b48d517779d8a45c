package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/convergence"
	"github.com/defistate/flashmint-quote-go/quote"
	"github.com/defistate/flashmint-quote-go/slippage"
	"github.com/defistate/flashmint-quote-go/swapquote"
)

// ErrBadParameter is returned for malformed query parameters.
var ErrBadParameter = errors.New("bad parameter")

// ResponseError is the body of every non-2xx response.
type ResponseError struct {
	Message string `json:"message"`
}

// StatusCode maps an error returned while quoting to an HTTP status.
func StatusCode(err error) int {
	var cf *swapquote.CallFailedError
	var ce *convergence.Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadParameter),
		errors.Is(err, quote.ErrInvalidRequest),
		errors.Is(err, slippage.ErrInvalidSlippage),
		errors.Is(err, slippage.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrUnsupportedToken):
		return http.StatusNotFound
	case errors.Is(err, quote.ErrNoRoute),
		errors.Is(err, quote.ErrCounterAmountExceeded),
		errors.Is(err, quote.ErrUnbalancedPosition),
		errors.Is(err, swapquote.ErrInsufficientLiquidity),
		errors.Is(err, swapquote.ErrUnsupportedPair),
		errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &cf):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
