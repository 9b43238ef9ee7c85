// Package metrics holds the prometheus collectors of the ingestion pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geodata_ingester"

// Metrics of the pipeline. A nil *Metrics is valid and records nothing
type Metrics struct {
	Products      *prometheus.CounterVec   // labels: source, state={recorded,skipped,failed}
	FetchDuration *prometheus.HistogramVec // labels: source
	Fetches       *prometheus.CounterVec   // labels: source, outcome={success,partial,no_products,error}
	Tokens        *prometheus.CounterVec   // labels: outcome={cached,exchanged,retried,failed}
	Geocode       *prometheus.CounterVec   // labels: outcome={success,cache_hit,not_found,error}
	DownloadBytes *prometheus.CounterVec   // labels: source
}

func newMetrics() *Metrics {
	return &Metrics{
		Products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_total",
			Help:      "Products handled by source and terminal state.",
		}, []string{"source", "state"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the fetch of a source.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		}, []string{"source"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Token requests by outcome.",
		}, []string{"outcome"}),
		Geocode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by outcome.",
		}, []string{"outcome"}),
		DownloadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes downloaded by source.",
		}, []string{"source"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.Products, m.FetchDuration, m.Fetches, m.Tokens, m.Geocode, m.DownloadBytes)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Product counts a product in its terminal state
func (m *Metrics) Product(source, state string) {
	if m != nil {
		m.Products.WithLabelValues(source, state).Inc()
	}
}

// Fetch records the outcome and the duration of a fetch
func (m *Metrics) Fetch(source, outcome string, seconds float64) {
	if m != nil {
		m.Fetches.WithLabelValues(source, outcome).Inc()
		m.FetchDuration.WithLabelValues(source).Observe(seconds)
	}
}

// Token counts a token request
func (m *Metrics) Token(outcome string) {
	if m != nil {
		m.Tokens.WithLabelValues(outcome).Inc()
	}
}

// GeocodeRequest counts a geocoding request
func (m *Metrics) GeocodeRequest(outcome string) {
	if m != nil {
		m.Geocode.WithLabelValues(outcome).Inc()
	}
}

// Downloaded counts downloaded bytes
func (m *Metrics) Downloaded(source string, bytes int64) {
	if m != nil && bytes > 0 {
		m.DownloadBytes.WithLabelValues(source).Add(float64(bytes))
	}
}
