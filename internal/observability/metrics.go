package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront_estimator"

// Collaborator label values.
const (
	CollaboratorWeather     = "weather"
	CollaboratorGeocoder    = "geocoder"
	CollaboratorVision      = "vision"
	CollaboratorCompetitors = "competitors"
	CollaboratorJunctions   = "junctions"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// estimation service.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	EstimateErrors   *prometheus.CounterVec // labels: kind={validation,computation,internal}
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Estimate outcome metrics.
	EstimatesComputed *prometheus.CounterVec // labels: confidence={Low,Medium,High}
	LocationScore     prometheus.Histogram
	Degradations      *prometheus.CounterVec // labels: kind

	// External collaborator metrics.
	CollaboratorRequests *prometheus.CounterVec   // labels: collaborator, outcome={success,error,empty}
	CollaboratorDuration *prometheus.HistogramVec // labels: collaborator
	CollaboratorEnabled  *prometheus.GaugeVec     // labels: collaborator
	CacheLookups         *prometheus.CounterVec   // labels: cache, result={hit,miss}

	// HTTP API metrics.
	HTTPRequests *prometheus.CounterVec // labels: route, status
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total estimate requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total location estimates written to the sink topic.",
		}),
		EstimateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimate_errors_total",
			Help:      "Rejected estimate requests by error kind.",
		}, []string{"kind"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		EstimatesComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimates_computed_total",
			Help:      "Successful estimates by confidence level.",
		}, []string{"confidence"}),
		LocationScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "location_score",
			Help:      "Distribution of final location scores.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 9.5},
		}),
		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degradations_total",
			Help:      "Collaborator failures recovered with a fallback value.",
		}, []string{"kind"}),
		CollaboratorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_requests_total",
			Help:      "External collaborator requests by collaborator and outcome.",
		}, []string{"collaborator", "outcome"}),
		CollaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_duration_seconds",
			Help:      "External collaborator request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"collaborator"}),
		CollaboratorEnabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collaborator_enabled",
			Help:      "1 when the collaborator is configured, 0 otherwise.",
		}, []string{"collaborator"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Collaborator cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route and status code.",
		}, []string{"route", "status"}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.EstimateErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EstimatesComputed,
		m.LocationScore,
		m.Degradations,
		m.CollaboratorRequests,
		m.CollaboratorDuration,
		m.CollaboratorEnabled,
		m.CacheLookups,
		m.HTTPRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}

// NewUnregisteredMetrics creates Metrics that are never exported. Used by
// one-shot tools such as the CLI.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_produced_total"}),
		EstimateErrors:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "estimate_errors_total"}, []string{"kind"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		EstimatesComputed:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "estimates_computed_total"}, []string{"confidence"}),
		LocationScore:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "location_score"}),
		Degradations:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "degradations_total"}, []string{"kind"}),
		CollaboratorRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "collaborator_requests_total"}, []string{"collaborator", "outcome"}),
		CollaboratorDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "collaborator_duration_seconds"}, []string{"collaborator"}),
		CollaboratorEnabled:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "collaborator_enabled"}, []string{"collaborator"}),
		CacheLookups:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "cache_lookups_total"}, []string{"cache", "result"}),
		HTTPRequests:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total"}, []string{"route", "status"}),
	}
}
