// Package http serves flash-mint quotes over HTTP with echo.
package http

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/logging"
	"github.com/defistate/flashmint-quote-go/quote"
	"github.com/defistate/flashmint-quote-go/tokens"
	"github.com/defistate/flashmint-quote-go/txbuilder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Quoter assembles flash-mint quotes.
type Quoter interface {
	Quote(ctx context.Context, req quote.Request) (*quote.Result, error)
}

// BalanceReader reads token balances. Used to report what the taker holds.
type BalanceReader interface {
	BalanceOf(ctx context.Context, chainID uint64, token, account common.Address) (*big.Int, error)
}

// QuoteHandler serves GET /quote.
type QuoteHandler struct {
	quoter         Quoter
	tokens         *tokens.Registry
	decimalsReader DecimalsReader
	balances       BalanceReader
	timeout        time.Duration
	logger         chains.Logger
}

// HandlerConfig holds the dependencies of the quote handler. DecimalsReader,
// Balances and Logger are optional.
type HandlerConfig struct {
	Quoter         Quoter
	Tokens         *tokens.Registry
	DecimalsReader DecimalsReader
	Balances       BalanceReader
	// Timeout bounds a single quote. Zero means no bound beyond the request's.
	Timeout time.Duration
	Logger  chains.Logger
}

// NewQuoteHandler registers the quote endpoint on e.
func NewQuoteHandler(e *echo.Echo, cfg HandlerConfig) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	handler := &QuoteHandler{
		quoter:         cfg.Quoter,
		tokens:         cfg.Tokens,
		decimalsReader: cfg.DecimalsReader,
		balances:       cfg.Balances,
		timeout:        cfg.Timeout,
		logger:         cfg.Logger,
	}
	e.GET("/quote", handler.GetQuote)
}

type legResponse struct {
	Name      string           `json:"name"`
	Source    string           `json:"source,omitempty"`
	Exchange  string           `json:"exchange"`
	Path      []common.Address `json:"path"`
	AmountIn  string           `json:"amountIn"`
	AmountOut string           `json:"amountOut"`
}

type quoteResponse struct {
	ChainID          uint64                `json:"chainId"`
	IsMinting        bool                  `json:"isMinting"`
	ContractAddress  common.Address        `json:"contractAddress"`
	ContractType     string                `json:"contractType"`
	InputToken       common.Address        `json:"inputToken"`
	OutputToken      common.Address        `json:"outputToken"`
	IndexTokenAmount string                `json:"indexTokenAmount"`
	InputAmount      string                `json:"inputAmount"`
	OutputAmount     string                `json:"outputAmount"`
	Slippage         string                `json:"slippage"`
	Legs             []legResponse         `json:"legs"`
	Transaction      txbuilder.Transaction `json:"transaction"`
	// TakerBalance is the taker's balance of the input token, when a taker is given.
	TakerBalance string `json:"takerBalance,omitempty"`
}

// GetQuote returns a flash-mint quote and its transaction.
func (h *QuoteHandler) GetQuote(c echo.Context) error {
	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
		c.SetRequest(c.Request().WithContext(ctx))
	}

	req, err := h.parseQuoteRequest(c)
	if err != nil {
		return c.JSON(StatusCode(err), ResponseError{Message: err.Error()})
	}

	res, err := h.quoter.Quote(ctx, req)
	if err != nil {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Quote failed", "chain_id", req.ChainID, "input", req.InputToken.Hex(), "output", req.OutputToken.Hex(), "error", err)
		}
		return c.JSON(status, ResponseError{Message: err.Error()})
	}

	resp := newQuoteResponse(res)
	if req.Taker != (common.Address{}) && h.balances != nil {
		balance, err := h.balances.BalanceOf(ctx, req.ChainID, req.InputToken, req.Taker)
		if err != nil {
			h.logger.Warn("Failed to read taker balance", "chain_id", req.ChainID, "taker", req.Taker.Hex(), "error", err)
		} else {
			resp.TakerBalance = balance.String()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func newQuoteResponse(res *quote.Result) quoteResponse {
	resp := quoteResponse{
		ChainID:          res.Request.ChainID,
		IsMinting:        res.Request.IsMinting,
		ContractAddress:  res.ContractAddress,
		ContractType:     string(res.ContractType),
		InputToken:       res.Request.InputToken,
		OutputToken:      res.Request.OutputToken,
		IndexTokenAmount: res.Request.IndexTokenAmount.String(),
		InputAmount:      res.InputAmount.String(),
		OutputAmount:     res.OutputAmount.String(),
		Slippage:         res.Request.Slippage.String(),
		Transaction:      res.Transaction,
	}
	for _, leg := range res.Legs {
		path := leg.Route.Path
		if path == nil {
			path = []common.Address{}
		}
		resp.Legs = append(resp.Legs, legResponse{
			Name:      leg.Name,
			Source:    leg.Source,
			Exchange:  leg.Route.Exchange.String(),
			Path:      path,
			AmountIn:  leg.AmountIn.String(),
			AmountOut: leg.AmountOut.String(),
		})
	}
	return resp
}

// NewSystemHandler registers /healthz and /metrics on e.
func NewSystemHandler(e *echo.Echo, gatherer prometheus.Gatherer, chainIDs []uint64) {
	names := make([]string, len(chainIDs))
	for i, id := range chainIDs {
		names[i] = chains.Name(id)
	}
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "chains": names})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
