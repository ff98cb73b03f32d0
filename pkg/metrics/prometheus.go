package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal   *prometheus.CounterVec
	decisionsTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	openPositions  prometheus.Gauge
	portfolioValue prometheus.Gauge
	realizedPnL    prometheus.Counter
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrader_signals_total",
				Help: "Total number of signals generated by direction",
			},
			[]string{"direction", "symbol"},
		),
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrader_decisions_total",
				Help: "Total number of validation decisions by outcome",
			},
			[]string{"outcome", "reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrader_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		openPositions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fintrader_open_positions",
				Help: "Current number of open positions",
			},
		),
		portfolioValue: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fintrader_portfolio_value",
				Help: "Current portfolio value including realized P&L",
			},
		),
		realizedPnL: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fintrader_realized_pnl_total",
				Help: "Cumulative absolute realized P&L from closed positions",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fintrader_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrader_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records a generated signal by direction.
func (r *Recorder) RecordSignal(direction, symbol string) {
	r.signalsTotal.WithLabelValues(direction, symbol).Inc()
}

// RecordDecision records a validation outcome. Reason is empty for approvals.
func (r *Recorder) RecordDecision(outcome, reason string) {
	r.decisionsTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetOpenPositions records the current open position count.
func (r *Recorder) SetOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}

// SetPortfolioValue records the current portfolio value.
func (r *Recorder) SetPortfolioValue(v float64) {
	r.portfolioValue.Set(v)
}

// AddRealizedPnL records realized P&L magnitude from a closed position.
func (r *Recorder) AddRealizedPnL(pnl float64) {
	if pnl < 0 {
		pnl = -pnl
	}
	r.realizedPnL.Add(pnl)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
