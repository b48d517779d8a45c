package quote

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/defistate/flashmint-quote-go/contracts"
	"github.com/defistate/flashmint-quote-go/swapquote"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	quotes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(registry prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flashmint_quotes_total",
			Help: "Assembled flash-mint quotes by chain, direction and outcome.",
		}, []string{"chain_id", "direction", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flashmint_quote_duration_seconds",
			Help:    "Time to assemble a flash-mint quote.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"direction"}),
	}
	if err := registry.Register(m.quotes); err != nil {
		return nil, err
	}
	if err := registry.Register(m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) observe(chainID uint64, direction string, err error, elapsed time.Duration) {
	m.duration.WithLabelValues(direction).Observe(elapsed.Seconds())
	m.quotes.WithLabelValues(strconv.FormatUint(chainID, 10), direction, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, contracts.ErrUnsupportedToken):
		return "unsupported_token"
	case errors.Is(err, ErrNoRoute):
		return "no_route"
	case errors.Is(err, ErrCounterAmountExceeded):
		return "counter_amount"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return swapquote.Outcome(err)
	}
}
