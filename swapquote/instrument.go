package swapquote

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(registry prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flashmint_swap_quote_requests_total",
			Help: "Swap quote requests by provider and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flashmint_swap_quote_duration_seconds",
			Help:    "Swap quote latency by provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
			switch existing := already.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				m.requests = existing
			case *prometheus.HistogramVec:
				m.duration = existing
			}
		}
	}
	return m, nil
}

type instrumented struct {
	next    Provider
	metrics *metrics
}

// Instrument wraps a provider with request and latency metrics.
func Instrument(next Provider, registry prometheus.Registerer) (Provider, error) {
	m, err := newMetrics(registry)
	if err != nil {
		return nil, err
	}
	return &instrumented{next: next, metrics: m}, nil
}

func (p *instrumented) Name() string {
	return p.next.Name()
}

func (p *instrumented) GetSwapQuote(ctx context.Context, req Request) (*Quote, error) {
	start := time.Now()
	q, err := p.next.GetSwapQuote(ctx, req)
	p.metrics.duration.WithLabelValues(p.next.Name()).Observe(time.Since(start).Seconds())
	p.metrics.requests.WithLabelValues(p.next.Name(), Outcome(err)).Inc()
	return q, err
}

// Outcome classifies an error for metric labels and logs.
func Outcome(err error) string {
	var cf *CallFailedError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedPair):
		return "unsupported"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "no_liquidity"
	case errors.As(err, &cf):
		return "call_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
