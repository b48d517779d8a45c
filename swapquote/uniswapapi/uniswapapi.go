// Package uniswapapi quotes swaps through the Uniswap trading API and turns
// the returned universal router calldata into a plain V2 or V3 route.
package uniswapapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"slices"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/codec"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"
)

const (
	Name = "uniswap"

	DefaultBaseURL = "https://trade-api.gateway.uniswap.org/v1"
	defaultTimeout = 10 * time.Second

	exactInput  = "EXACT_INPUT"
	exactOutput = "EXACT_OUTPUT"
	noRouteCode = "NO_ROUTE"
)

// Config holds the configuration for the Uniswap API adapter.
type Config struct {
	BaseURL           string
	APIKey            string
	Chains            []uint64
	RequestsPerSecond float64
	Burst             int

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

// Provider is a swapquote.Provider backed by the Uniswap trading API.
type Provider struct {
	baseURL string
	apiKey  string
	chains  []uint64
	client  *http.Client
	limiter *rate.Limiter
	logger  chains.Logger
}

// New creates a Uniswap API provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	burst := max(cfg.Burst, 1)

	return &Provider{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		chains:  slices.Clone(cfg.Chains),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  cfg.Logger,
	}, nil
}

func (p *Provider) Name() string {
	return Name
}

type quoteRequest struct {
	Type              string   `json:"type"`
	Amount            string   `json:"amount"`
	TokenInChainID    uint64   `json:"tokenInChainId"`
	TokenOutChainID   uint64   `json:"tokenOutChainId"`
	TokenIn           string   `json:"tokenIn"`
	TokenOut          string   `json:"tokenOut"`
	Swapper           string   `json:"swapper"`
	SlippageTolerance *float64 `json:"slippageTolerance,omitempty"`
	Protocols         []string `json:"protocols"`
}

type quoteResponse struct {
	Routing string `json:"routing"`
	Quote   struct {
		Input            tokenAmount `json:"input"`
		Output           tokenAmount `json:"output"`
		MethodParameters struct {
			To       common.Address `json:"to"`
			Calldata hexutil.Bytes  `json:"calldata"`
			Value    string         `json:"value"`
		} `json:"methodParameters"`
	} `json:"quote"`
}

type tokenAmount struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Detail    string `json:"detail"`
}

// GetSwapQuote quotes req. Both exact-input and exact-output are served
// natively by the API.
func (p *Provider) GetSwapQuote(ctx context.Context, req swapquote.Request) (*swapquote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !slices.Contains(p.chains, req.ChainID) {
		return nil, swapquote.ErrUnsupportedPair
	}

	body := quoteRequest{
		Type:            exactInput,
		Amount:          req.Amount().String(),
		TokenInChainID:  req.ChainID,
		TokenOutChainID: req.ChainID,
		TokenIn:         apiToken(req.InputToken).Hex(),
		TokenOut:        apiToken(req.OutputToken).Hex(),
		Swapper:         req.Taker.Hex(),
		Protocols:       []string{"V2", "V3"},
	}
	if req.ExactOutput() {
		body.Type = exactOutput
	}
	if req.Slippage.IsPositive() {
		s := req.Slippage.InexactFloat64()
		body.SlippageTolerance = &s
	}

	resp, err := p.post(ctx, body)
	if err != nil {
		return nil, err
	}

	route, err := codec.DecodeUniversalRouter(resp.Quote.MethodParameters.Calldata)
	if err != nil {
		return nil, err
	}
	if err := codec.ValidateDecodedPath(req.ChainID, route, req.InputToken, req.OutputToken); err != nil {
		return nil, err
	}

	in, ok := new(big.Int).SetString(resp.Quote.Input.Amount, 10)
	if !ok {
		return nil, swapquote.CallFailed(Name, fmt.Errorf("invalid input amount %q", resp.Quote.Input.Amount))
	}
	out, ok := new(big.Int).SetString(resp.Quote.Output.Amount, 10)
	if !ok {
		return nil, swapquote.CallFailed(Name, fmt.Errorf("invalid output amount %q", resp.Quote.Output.Amount))
	}

	p.logger.Debug("Uniswap API quote decoded", "chain", req.ChainID, "exchange", route.Exchange, "hops", route.Hops())
	return &swapquote.Quote{
		Source:       Name,
		Route:        route,
		InputAmount:  in,
		OutputAmount: out,
	}, nil
}

func (p *Provider) post(ctx context.Context, body quoteRequest) (*quoteResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/quote", bytes.NewReader(payload))
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, swapquote.CallFailed(Name, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.Unmarshal(raw, &apiErr)
		if resp.StatusCode == http.StatusNotFound || apiErr.ErrorCode == noRouteCode {
			return nil, fmt.Errorf("%w: uniswap found no route (%s)", swapquote.ErrInsufficientLiquidity, apiErr.Detail)
		}
		return nil, swapquote.CallFailed(Name, fmt.Errorf("status %d: %s %s", resp.StatusCode, apiErr.ErrorCode, apiErr.Detail))
	}

	var out quoteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, swapquote.CallFailed(Name, fmt.Errorf("failed to decode response: %w", err))
	}
	return &out, nil
}

// apiToken maps the native placeholder to the zero address the API uses for ETH.
func apiToken(addr common.Address) common.Address {
	if chains.IsNative(addr) {
		return common.Address{}
	}
	return addr
}
