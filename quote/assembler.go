package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/defistate/flashmint-quote-go/chains"
	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/slippage"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/defistate/flashmint-quote-go/swaproute"
	"github.com/defistate/flashmint-quote-go/tokens"
	"github.com/defistate/flashmint-quote-go/txbuilder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "flashmint-quote"
	// positionSource names the position read in call failures.
	positionSource = "getLeveragedTokenData"
)

var tracer = otel.Tracer(tracerName)

// Resolver picks the flash-mint contract for an index token.
type Resolver interface {
	Resolve(chainID uint64, indexToken string) (contracts.Entry, error)
}

// PositionReader reads the collateral and debt behind an index token amount.
type PositionReader interface {
	GetLeveragedTokenData(ctx context.Context, entry contracts.Entry, setToken common.Address, amount *big.Int, isIssuance bool) (contracts.LeveragedTokenData, error)
}

// Config holds the configuration for the Assembler.
type Config struct {
	Resolver  Resolver
	Positions PositionReader
	Tokens    *tokens.Registry
	// Providers lists the swap quote sources per chain, in preference order.
	Providers map[uint64][]swapquote.Provider
	Builder   *txbuilder.Builder
	Logger    chains.Logger
	Registry  prometheus.Registerer
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Resolver == nil {
		return errors.New("config: Resolver is required")
	}
	if c.Positions == nil {
		return errors.New("config: Positions is required")
	}
	if c.Tokens == nil {
		return errors.New("config: Tokens is required")
	}
	if len(c.Providers) == 0 {
		return errors.New("config: Providers is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// Assembler turns quote requests into priced, encoded flash-mint transactions.
type Assembler struct {
	resolver  Resolver
	positions PositionReader
	tokens    *tokens.Registry
	providers map[uint64][]swapquote.Provider
	builder   *txbuilder.Builder
	logger    chains.Logger
	metrics   *metrics
}

// NewAssembler creates an Assembler.
func NewAssembler(cfg Config) (*Assembler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	builder := cfg.Builder
	if builder == nil {
		builder = txbuilder.New()
	}
	providers := make(map[uint64][]swapquote.Provider, len(cfg.Providers))
	for chainID, ps := range cfg.Providers {
		providers[chainID] = append([]swapquote.Provider(nil), ps...)
	}
	return &Assembler{
		resolver:  cfg.Resolver,
		positions: cfg.Positions,
		tokens:    cfg.Tokens,
		providers: providers,
		builder:   builder,
		logger:    cfg.Logger,
		metrics:   m,
	}, nil
}

// Quote resolves, prices and encodes req.
func (a *Assembler) Quote(ctx context.Context, req Request) (_ *Result, err error) {
	direction := "redeem"
	if req.IsMinting {
		direction = "mint"
	}
	ctx, span := tracer.Start(ctx, "quote.Assembler.Quote", trace.WithAttributes(
		attribute.Int64("chain_id", int64(req.ChainID)),
		attribute.String("direction", direction),
		attribute.String("index_token", req.IndexToken().Hex()),
	))
	start := time.Now()
	defer func() {
		a.metrics.observe(req.ChainID, direction, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := slippage.Adjust(big.NewInt(0), req.Slippage, req.IsMinting); err != nil {
		return nil, err
	}

	index := req.IndexToken()
	entry, err := a.resolver.Resolve(req.ChainID, index.Hex())
	if err != nil {
		return nil, err
	}
	symbol := ""
	if t, ok := a.tokens.ByAddress(req.ChainID, index); ok {
		symbol = t.Symbol
	}
	span.SetAttributes(
		attribute.String("contract_type", string(entry.Type)),
		attribute.String("contract_address", entry.Address.Hex()),
	)

	position, err := a.positions.GetLeveragedTokenData(ctx, entry, index, req.IndexTokenAmount, req.IsMinting)
	if err != nil {
		return nil, swapquote.CallFailed(positionSource, fmt.Errorf("read leveraged token data of %s: %w", entry.Address.Hex(), err))
	}

	lc := legContext{entry: entry, symbol: symbol, req: req, position: position}
	var legs []Leg
	if req.IsMinting {
		legs, err = a.mintLegs(ctx, lc)
	} else {
		legs, err = a.redeemLegs(ctx, lc)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{
		Request:         req,
		ContractAddress: entry.Address,
		ContractType:    entry.Type,
		Legs:            legs,
	}
	params := txbuilder.Params{
		SetToken:       index,
		SetAmount:      req.IndexTokenAmount,
		IsMinting:      req.IsMinting,
		InputToken:     req.InputToken,
		OutputToken:    req.OutputToken,
		DebtCollateral: legs[0].Route,
		InputOutput:    legs[1].Route,
	}

	if req.IsMinting {
		maxIn, err := slippage.Adjust(legs[1].AmountIn, req.Slippage, true)
		if err != nil {
			return nil, err
		}
		if req.CounterAmount != nil && maxIn.Cmp(req.CounterAmount) > 0 {
			return nil, fmt.Errorf("%w: need up to %s, allowed %s", ErrCounterAmountExceeded, maxIn, req.CounterAmount)
		}
		result.InputAmount = maxIn
		result.OutputAmount = new(big.Int).Set(req.IndexTokenAmount)
		params.MaxInputAmount = maxIn
	} else {
		minOut, err := slippage.Adjust(legs[1].AmountOut, req.Slippage, false)
		if err != nil {
			return nil, err
		}
		if req.CounterAmount != nil && minOut.Cmp(req.CounterAmount) < 0 {
			return nil, fmt.Errorf("%w: receive at least %s, required %s", ErrCounterAmountExceeded, minOut, req.CounterAmount)
		}
		result.InputAmount = new(big.Int).Set(req.IndexTokenAmount)
		result.OutputAmount = minOut
		params.MinOutputAmount = minOut
	}

	tx, err := a.builder.Build(entry, params)
	if err != nil {
		return nil, err
	}
	result.Transaction = tx

	a.logger.Debug("Quote assembled",
		"chain", chains.Name(req.ChainID),
		"direction", direction,
		"index", symbol,
		"contract", entry.Type,
		"input", result.InputAmount,
		"output", result.OutputAmount,
		"debt_source", legs[0].Source,
		"payment_source", legs[1].Source,
	)
	return result, nil
}

type legContext struct {
	entry    contracts.Entry
	symbol   string
	req      Request
	position contracts.LeveragedTokenData
}

func (lc legContext) swapRequest(in, out common.Address) swapquote.Request {
	return swapquote.Request{
		ChainID:     lc.req.ChainID,
		InputToken:  in,
		OutputToken: out,
		Slippage:    lc.req.Slippage,
		Taker:       lc.entry.Address,
		IndexSymbol: lc.symbol,
		IsMinting:   lc.req.IsMinting,
	}
}

// mintLegs sells the flash-borrowed debt for collateral, then buys the
// remaining collateral with the input token.
func (a *Assembler) mintLegs(ctx context.Context, lc legContext) ([]Leg, error) {
	p := lc.position
	chainID := lc.req.ChainID

	debt := emptyLeg(LegDebtCollateral)
	if p.DebtAmount.Sign() > 0 && !chains.SameAsset(chainID, p.DebtToken, p.CollateralToken) {
		sr := lc.swapRequest(p.DebtToken, p.CollateralToken)
		sr.InputAmount = new(big.Int).Set(p.DebtAmount)
		q, err := a.quoteLeg(ctx, lc.entry, LegDebtCollateral, sr)
		if err != nil {
			return nil, err
		}
		debt = legFromQuote(LegDebtCollateral, q)
	} else if p.DebtAmount.Sign() > 0 {
		debt.AmountIn, debt.AmountOut = new(big.Int).Set(p.DebtAmount), new(big.Int).Set(p.DebtAmount)
	}

	shortfall := new(big.Int).Sub(p.CollateralAmount, debt.AmountOut)
	if shortfall.Sign() <= 0 {
		return nil, fmt.Errorf("%w: debt swap yields %s of %s collateral", ErrUnbalancedPosition, debt.AmountOut, p.CollateralAmount)
	}

	payment := emptyLeg(LegInputOutput)
	if chains.SameAsset(chainID, lc.req.InputToken, p.CollateralToken) {
		payment.AmountIn, payment.AmountOut = new(big.Int).Set(shortfall), shortfall
	} else {
		sr := lc.swapRequest(lc.req.InputToken, p.CollateralToken)
		sr.OutputAmount = shortfall
		if lc.req.CounterAmount != nil && lc.req.CounterAmount.Sign() > 0 {
			sr.MaxInputAmount = new(big.Int).Set(lc.req.CounterAmount)
		}
		q, err := a.quoteLeg(ctx, lc.entry, LegInputOutput, sr)
		if err != nil {
			return nil, err
		}
		payment = legFromQuote(LegInputOutput, q)
	}
	return []Leg{debt, payment}, nil
}

// redeemLegs buys back the debt with collateral, then sells what is left of
// the collateral for the output token.
func (a *Assembler) redeemLegs(ctx context.Context, lc legContext) ([]Leg, error) {
	p := lc.position
	chainID := lc.req.ChainID

	debt := emptyLeg(LegDebtCollateral)
	if p.DebtAmount.Sign() > 0 && !chains.SameAsset(chainID, p.DebtToken, p.CollateralToken) {
		sr := lc.swapRequest(p.CollateralToken, p.DebtToken)
		sr.OutputAmount = new(big.Int).Set(p.DebtAmount)
		sr.MaxInputAmount = new(big.Int).Set(p.CollateralAmount)
		q, err := a.quoteLeg(ctx, lc.entry, LegDebtCollateral, sr)
		if err != nil {
			return nil, err
		}
		debt = legFromQuote(LegDebtCollateral, q)
	} else if p.DebtAmount.Sign() > 0 {
		debt.AmountIn, debt.AmountOut = new(big.Int).Set(p.DebtAmount), new(big.Int).Set(p.DebtAmount)
	}

	surplus := new(big.Int).Sub(p.CollateralAmount, debt.AmountIn)
	if surplus.Sign() <= 0 {
		return nil, fmt.Errorf("%w: repaying debt costs %s of %s collateral", ErrUnbalancedPosition, debt.AmountIn, p.CollateralAmount)
	}

	payment := emptyLeg(LegInputOutput)
	if chains.SameAsset(chainID, lc.req.OutputToken, p.CollateralToken) {
		payment.AmountIn, payment.AmountOut = new(big.Int).Set(surplus), surplus
	} else {
		sr := lc.swapRequest(p.CollateralToken, lc.req.OutputToken)
		sr.InputAmount = surplus
		q, err := a.quoteLeg(ctx, lc.entry, LegInputOutput, sr)
		if err != nil {
			return nil, err
		}
		payment = legFromQuote(LegInputOutput, q)
	}
	return []Leg{debt, payment}, nil
}

func emptyLeg(name string) Leg {
	return Leg{Name: name, Route: swaproute.Empty(), AmountIn: new(big.Int), AmountOut: new(big.Int)}
}

func legFromQuote(name string, q *swapquote.Quote) Leg {
	return Leg{Name: name, Source: q.Source, Route: q.Route, AmountIn: q.InputAmount, AmountOut: q.OutputAmount}
}

// symbolOrAddress is used in log lines when the token table does not know a token.
func symbolOrAddress(reg *tokens.Registry, chainID uint64, addr common.Address) string {
	if t, ok := reg.ByAddress(chainID, addr); ok {
		return t.Symbol
	}
	return strings.ToLower(addr.Hex())
}
