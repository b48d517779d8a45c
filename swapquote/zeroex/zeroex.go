// Package zeroex quotes swaps through the 0x Swap API v2 (allowance holder flow).
package zeroex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/convergence"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	Name = "0x"

	quotePath = "/swap/allowance-holder/quote"
	pricePath = "/swap/allowance-holder/price"

	DefaultBaseURL      = "https://api.0x.org"
	defaultTimeout      = 10 * time.Second
	defaultToleranceBps = 50
	defaultHeadroomBps  = 300
)

// Config holds the configuration for the 0x adapter.
type Config struct {
	BaseURL string
	APIKey  string
	// Chains lists the chain ids 0x is queried on.
	Chains []uint64
	// RequestsPerSecond and Burst bound upstream calls across all requests.
	RequestsPerSecond float64
	Burst             int
	// ToleranceBps is how far above the exact output a converged quote may land.
	ToleranceBps uint64
	// HeadroomBps widens the reverse price probe when deriving the sell bound.
	HeadroomBps uint64
	MaxRequests int

	HTTPClient *http.Client
	Logger     chains.Logger
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.APIKey == "" {
		return errors.New("config: APIKey is required")
	}
	if len(c.Chains) == 0 {
		return errors.New("config: Chains is required")
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("config: RequestsPerSecond must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Provider is a swapquote.Provider backed by the 0x API.
type Provider struct {
	baseURL      string
	apiKey       string
	chains       []uint64
	toleranceBps uint64
	headroomBps  uint64

	client  *http.Client
	limiter *rate.Limiter
	engine  *convergence.Engine
	logger  chains.Logger
}

// New creates a 0x provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("config: invalid BaseURL: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	tolerance := cfg.ToleranceBps
	if tolerance == 0 {
		tolerance = defaultToleranceBps
	}
	headroom := cfg.HeadroomBps
	if headroom == 0 {
		headroom = defaultHeadroomBps
	}

	return &Provider{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		chains:       slices.Clone(cfg.Chains),
		toleranceBps: tolerance,
		headroomBps:  headroom,
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		engine:       convergence.New(cfg.MaxRequests),
		logger:       cfg.Logger,
	}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GetSwapQuote quotes req. Exact-output requests are converged from sell
// quotes since the API only accepts sell amounts.
func (p *Provider) GetSwapQuote(ctx context.Context, req swapquote.Request) (*swapquote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !slices.Contains(p.chains, req.ChainID) {
		return nil, swapquote.ErrUnsupportedPair
	}

	if !req.ExactOutput() {
		resp, err := p.fetch(ctx, quotePath, req.ChainID, req.InputToken, req.OutputToken, req.InputAmount, req.Taker, req.Slippage)
		if err != nil {
			return nil, err
		}
		return p.toQuote(req, resp)
	}

	maxSell := req.MaxInputAmount
	if maxSell == nil {
		probe, err := p.fetch(ctx, pricePath, req.ChainID, req.OutputToken, req.InputToken, req.OutputAmount, req.Taker, req.Slippage)
		if err != nil {
			return nil, err
		}
		maxSell = widen(probe.BuyAmount.Int, p.headroomBps)
	}

	quoteFn := func(ctx context.Context, sell *big.Int) (*big.Int, *quoteResponse, error) {
		resp, err := p.fetch(ctx, quotePath, req.ChainID, req.InputToken, req.OutputToken, sell, req.Taker, req.Slippage)
		if err != nil {
			return nil, nil, err
		}
		return resp.BuyAmount.Int, resp, nil
	}

	res, err := convergence.Converge(ctx, p.engine, quoteFn, convergence.NewTarget(req.OutputAmount, p.toleranceBps), maxSell)
	if err != nil {
		p.logger.Debug("0x convergence failed", "chain", req.ChainID, "error", err)
		return nil, err
	}
	p.logger.Debug("0x convergence finished", "chain", req.ChainID, "attempts", res.Attempts)
	return p.toQuote(req, res.Payload)
}

func (p *Provider) toQuote(req swapquote.Request, resp *quoteResponse) (*swapquote.Quote, error) {
	if resp.Transaction == nil || resp.Transaction.To == (common.Address{}) || len(resp.Transaction.Data) == 0 {
		return nil, swapquote.CallFailed(Name, errors.New("quote response carries no transaction"))
	}
	route := swaproute.NewAggregator(resp.Transaction.To, resp.Transaction.Data, req.InputToken, req.OutputToken)
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return &swapquote.Quote{
		Source:       Name,
		Route:        route,
		InputAmount:  new(big.Int).Set(resp.SellAmount.Int),
		OutputAmount: new(big.Int).Set(resp.BuyAmount.Int),
	}, nil
}

// fetch calls a 0x endpoint selling amount of sellToken for buyToken.
func (p *Provider) fetch(ctx context.Context, path string, chainID uint64, sellToken, buyToken common.Address, amount *big.Int, taker common.Address, slippage decimal.Decimal) (*quoteResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}

	q := url.Values{}
	q.Set("chainId", strconv.FormatUint(chainID, 10))
	q.Set("sellToken", apiToken(sellToken).Hex())
	q.Set("buyToken", apiToken(buyToken).Hex())
	q.Set("sellAmount", amount.String())
	if taker != (common.Address{}) {
		q.Set("taker", taker.Hex())
	}
	if slippage.IsPositive() {
		q.Set("slippageBps", slippage.Mul(decimal.NewFromInt(100)).Floor().String())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}
	httpReq.Header.Set("0x-api-key", p.apiKey)
	httpReq.Header.Set("0x-version", "v2")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, swapquote.CallFailed(Name, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body)))
	}

	var out quoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, swapquote.CallFailed(Name, fmt.Errorf("failed to decode response: %w", err))
	}
	if !out.LiquidityAvailable {
		return nil, fmt.Errorf("%w: 0x has no liquidity for %s -> %s", swapquote.ErrInsufficientLiquidity, sellToken.Hex(), buyToken.Hex())
	}
	if out.BuyAmount.Int == nil || out.SellAmount.Int == nil {
		return nil, swapquote.CallFailed(Name, errors.New("response is missing amounts"))
	}
	return &out, nil
}

type quoteResponse struct {
	LiquidityAvailable bool         `json:"liquidityAvailable"`
	BuyAmount          amount       `json:"buyAmount"`
	SellAmount         amount       `json:"sellAmount"`
	MinBuyAmount       amount       `json:"minBuyAmount"`
	Transaction        *transaction `json:"transaction,omitempty"`
}

type transaction struct {
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value amount         `json:"value"`
}

// amount decodes the API's decimal string amounts.
type amount struct {
	*big.Int
}

func (a *amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid amount %q", s)
	}
	a.Int = v
	return nil
}

// apiToken maps the zero address to the native placeholder 0x expects.
func apiToken(addr common.Address) common.Address {
	if chains.IsNative(addr) {
		return chains.NativeToken
	}
	return addr
}

func widen(v *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(v, new(big.Int).SetUint64(10_000+bps))
	return out.Quo(out, big.NewInt(10_000))
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
