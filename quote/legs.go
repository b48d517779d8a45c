package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/defistate/flashmint-quote-go/codec"
	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type providerResult struct {
	quote *swapquote.Quote
	err   error
}

// quoteLeg asks every provider of the chain concurrently and waits for all
// of them. Quotes the contract cannot execute are dropped. The best quote
// wins: most output for exact input, least input for exact output. Ties go
// to the provider listed first.
func (a *Assembler) quoteLeg(ctx context.Context, entry contracts.Entry, leg string, req swapquote.Request) (*swapquote.Quote, error) {
	ctx, span := tracer.Start(ctx, "quote.Assembler.quoteLeg", trace.WithAttributes(
		attribute.String("leg", leg),
		attribute.String("token_in", req.InputToken.Hex()),
		attribute.String("token_out", req.OutputToken.Hex()),
		attribute.Bool("exact_output", req.ExactOutput()),
	))
	defer span.End()

	providers := a.providers[req.ChainID]
	if len(providers) == 0 {
		err := fmt.Errorf("%w: no providers for chain %d", ErrNoRoute, req.ChainID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results := make([]providerResult, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p swapquote.Provider) {
			defer wg.Done()
			q, err := p.GetSwapQuote(ctx, req)
			if err == nil && q == nil {
				err = fmt.Errorf("%s returned no quote", p.Name())
			}
			results[i] = providerResult{quote: q, err: err}
		}(i, p)
	}
	wg.Wait()

	var (
		best     *swapquote.Quote
		firstErr error
	)
	for i, r := range results {
		name := providers[i].Name()
		if r.err != nil {
			a.logger.Debug("Provider failed to quote leg", "leg", leg, "source", name, "outcome", swapquote.Outcome(r.err), "error", r.err)
			if firstErr == nil && conclusive(r.err) {
				firstErr = r.err
			}
			continue
		}
		if !codec.Supports(entry.Type, r.quote.Route) {
			a.logger.Debug("Dropping route the contract cannot execute", "leg", leg, "source", name, "exchange", r.quote.Route.Exchange, "contract", entry.Type)
			continue
		}
		if best == nil || better(r.quote, best, req.ExactOutput()) {
			best = r.quote
		}
	}

	if best != nil {
		span.SetAttributes(attribute.String("source", best.Source))
		a.logger.Debug("Leg quoted", "leg", leg, "source", best.Source,
			"token_in", symbolOrAddress(a.tokens, req.ChainID, req.InputToken),
			"token_out", symbolOrAddress(a.tokens, req.ChainID, req.OutputToken),
			"amount_in", best.InputAmount, "amount_out", best.OutputAmount)
		return best, nil
	}

	err := firstErr
	if err == nil {
		err = fmt.Errorf("%w: %s leg %s -> %s", ErrNoRoute, leg, req.InputToken.Hex(), req.OutputToken.Hex())
	} else {
		err = fmt.Errorf("%s leg: %w", leg, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

// conclusive reports whether a provider error says something about the
// pair rather than about the provider's coverage.
func conclusive(err error) bool {
	return !errors.Is(err, swapquote.ErrUnsupportedPair)
}

func better(a, b *swapquote.Quote, exactOutput bool) bool {
	if exactOutput {
		return a.InputAmount.Cmp(b.InputAmount) < 0
	}
	return a.OutputAmount.Cmp(b.OutputAmount) > 0
}
