package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal  *prometheus.CounterVec
	signalsTotal *prometheus.CounterVec
	tradesTotal  *prometheus.CounterVec
	realizedPNL  *prometheus.GaugeVec
	cacheLookups *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trademood_cycles_total",
				Help: "Evaluation cycles by outcome (ok, skipped, closed, error)",
			},
			[]string{"symbol", "outcome"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trademood_signals_total",
				Help: "Emitted trading signals by action",
			},
			[]string{"symbol", "action"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trademood_trades_total",
				Help: "Closed trades by side",
			},
			[]string{"symbol", "side"},
		),
		realizedPNL: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trademood_realized_pnl",
				Help: "Cumulative realized profit and loss from closed trades",
			},
			[]string{"symbol", "side"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trademood_trend_cache_lookups_total",
				Help: "Trend cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trademood_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trademood_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trademood_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records one evaluation cycle attempt and its outcome.
func (r *Recorder) RecordCycle(symbol, outcome string) {
	r.cyclesTotal.WithLabelValues(symbol, outcome).Inc()
}

// RecordSignal records an emitted trading signal.
func (r *Recorder) RecordSignal(symbol, action string) {
	r.signalsTotal.WithLabelValues(symbol, action).Inc()
}

// RecordTrade records a closed trade and its realized P&L.
func (r *Recorder) RecordTrade(symbol, side string, realizedPNL float64) {
	r.tradesTotal.WithLabelValues(symbol, side).Inc()
	r.realizedPNL.WithLabelValues(symbol, side).Add(realizedPNL)
}

// RecordCacheLookup records a trend cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
