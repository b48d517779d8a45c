package static

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
)

const Name = "static"

// Config holds the configuration for the static provider.
type Config struct {
	Table *Table
	// Pricers prices routes by exchange kind.
	Pricers map[swaproute.Exchange]swapquote.RoutePricer
	Logger  chains.Logger
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Table == nil {
		return errors.New("config: Table is required")
	}
	if len(c.Pricers) == 0 {
		return errors.New("config: Pricers is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Provider quotes legs from the static table.
type Provider struct {
	table   *Table
	pricers map[swaproute.Exchange]swapquote.RoutePricer
	logger  chains.Logger
}

// New creates a static provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	pricers := make(map[swaproute.Exchange]swapquote.RoutePricer, len(cfg.Pricers))
	for kind, p := range cfg.Pricers {
		pricers[kind] = p
	}
	return &Provider{table: cfg.Table, pricers: pricers, logger: cfg.Logger}, nil
}

func (p *Provider) Name() string {
	return Name
}

// GetSwapQuote looks up the route for the request's index token. The counter
// token is the input when minting and the output when redeeming.
func (p *Provider) GetSwapQuote(ctx context.Context, req swapquote.Request) (*swapquote.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.IndexSymbol == "" {
		return nil, swapquote.ErrUnsupportedPair
	}

	counter := req.OutputToken
	if req.IsMinting {
		counter = req.InputToken
	}
	route, ok := p.table.Lookup(req.ChainID, req.IndexSymbol, counter, req.IsMinting)
	if !ok {
		return nil, swapquote.ErrUnsupportedPair
	}

	first, _ := route.TokenIn()
	last, _ := route.TokenOut()
	if !chains.SameAsset(req.ChainID, first, req.InputToken) || !chains.SameAsset(req.ChainID, last, req.OutputToken) {
		return nil, swapquote.ErrUnsupportedPair
	}

	pricer, ok := p.pricers[route.Exchange]
	if !ok {
		return nil, fmt.Errorf("%w: no pricer for %s routes", swapquote.ErrUnsupportedPair, route.Exchange)
	}
	priced, err := pricer.PriceRoute(ctx, req.ChainID, route, req.InputAmount, req.OutputAmount)
	if err != nil {
		return nil, err
	}

	q := &swapquote.Quote{Source: Name, Route: route}
	if req.ExactOutput() {
		q.InputAmount, q.OutputAmount = priced, new(big.Int).Set(req.OutputAmount)
	} else {
		q.InputAmount, q.OutputAmount = new(big.Int).Set(req.InputAmount), priced
	}
	p.logger.Debug("Static route priced", "index", req.IndexSymbol, "exchange", route.Exchange, "minting", req.IsMinting)
	return q, nil
}
