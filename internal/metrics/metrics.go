// Package metrics registers and serves Prometheus metrics for the
// indicator backend.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indicator backend.
type Metrics struct {
	// Compute engine
	ComputeDur         prometheus.Histogram
	IndicatorsComputed prometheus.Counter
	IndicatorsSkipped  *prometheus.CounterVec // labels: reason
	CandlesNormalized  prometheus.Counter
	CandlesDropped     prometheus.Counter

	// HTTP surface
	HTTPRequests *prometheus.CounterVec // labels: route, status
	HTTPDur      prometheus.Histogram

	// WebSocket stream
	WSClients  prometheus.Gauge
	WSMessages prometheus.Counter

	// Broker history proxy
	BrokerFetchDur  prometheus.Histogram
	BrokerFetchErrs prometheus.Counter

	registry *prometheus.Registry
}

// New registers and returns all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indicatord_compute_duration_seconds",
			Help:    "End-to-end latency of one indicator compute batch",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		IndicatorsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_indicators_computed_total",
			Help: "Indicators successfully computed",
		}),
		IndicatorsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indicatord_indicators_skipped_total",
			Help: "Indicators skipped during a batch (by reason)",
		}, []string{"reason"}),
		CandlesNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_candles_normalized_total",
			Help: "Candle rows accepted by the normalizer",
		}),
		CandlesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_candles_dropped_total",
			Help: "Candle rows dropped by the normalizer",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indicatord_http_requests_total",
			Help: "HTTP requests served (by route and status)",
		}, []string{"route", "status"}),
		HTTPDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indicatord_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indicatord_ws_clients",
			Help: "Connected chart WebSocket clients",
		}),
		WSMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_ws_messages_total",
			Help: "Messages sent to chart WebSocket clients",
		}),
		BrokerFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indicatord_broker_fetch_duration_seconds",
			Help:    "Angel One historical candle fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		BrokerFetchErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicatord_broker_fetch_errors_total",
			Help: "Failed Angel One historical candle fetches",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ComputeDur, m.IndicatorsComputed, m.IndicatorsSkipped,
		m.CandlesNormalized, m.CandlesDropped,
		m.HTTPRequests, m.HTTPDur,
		m.WSClients, m.WSMessages,
		m.BrokerFetchDur, m.BrokerFetchErrs,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a metrics-only HTTP server on addr. Blocks; run in a goroutine.
func (m *Metrics) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	log.Printf("[metrics] serving on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[metrics] server error: %v", err)
	}
}
