package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSingle  = "single"
	OutcomeAverage = "average"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ConversionRequestsTotal prometheus.Counter
	HistoryRequestsTotal    prometheus.Counter

	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	AggregationResultsTotal *prometheus.CounterVec
	RateCacheHitsTotal      prometheus.Counter
	RateCacheMissesTotal    prometheus.Counter
}

// NewMetrics registers every collector on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		ConversionRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "conversion_requests_total",
				Help: "Total number of currency conversion requests",
			},
		),

		HistoryRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "history_requests_total",
				Help: "Total number of rate history requests",
			},
		),

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Rate provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Rate provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),

		AggregationResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregation_results_total",
				Help: "Aggregation decisions by outcome (single, average, failure)",
			},
			[]string{"outcome"},
		),

		RateCacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_cache_hits_total",
				Help: "Aggregated rate cache hits",
			},
		),

		RateCacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_cache_misses_total",
				Help: "Aggregated rate cache misses",
			},
		),
	}
}

// The Record helpers are nil-safe so components can run without metrics.

func (m *Metrics) RecordProviderCall(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider).Observe(seconds)
}

func (m *Metrics) RecordAggregation(outcome string) {
	if m == nil {
		return
	}
	m.AggregationResultsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.RateCacheHitsTotal.Inc()
		return
	}
	m.RateCacheMissesTotal.Inc()
}

func (m *Metrics) RecordConversion() {
	if m == nil {
		return
	}
	m.ConversionRequestsTotal.Inc()
}

func (m *Metrics) RecordHistoryRequest() {
	if m == nil {
		return
	}
	m.HistoryRequestsTotal.Inc()
}
