// Package prometheus exposes the platform's operational metrics on a
// dedicated registry. All counters and histograms are registered at
// construction; components receive the Metrics struct by injection and
// record through its typed methods rather than touching the registry.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfsentinel"

// Metrics holds every metric the platform records.
type Metrics struct {
	registry *prometheus.Registry

	invoicesScored   *prometheus.CounterVec
	scoringFallbacks prometheus.Counter
	scoringDuration  prometheus.Histogram

	trainingRuns     *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	modelAUC         prometheus.Gauge

	recommendations  *prometheus.CounterVec
	scheduledTouches *prometheus.CounterVec
	openARAmount     *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds the full metric set on a private registry. Go-runtime and
// process collectors are included so the /metrics endpoint is useful
// without the default global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		invoicesScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "invoices_scored_total",
			Help:      "Invoices scored, partitioned by risk category.",
		}, []string{"risk_category"}),
		scoringFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "fallback_total",
			Help:      "Scoring passes served by the rule-based fallback instead of a trained model.",
		}),
		scoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a full scoring batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		trainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "training_runs_total",
			Help:      "Model training attempts, partitioned by outcome.",
		}, []string{"outcome"}),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "training_duration_seconds",
			Help:      "Wall time of a model training run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		modelAUC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "test_auc",
			Help:      "Rank-AUC of the active model on its held-out test split.",
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recommendation",
			Name:      "actions_total",
			Help:      "Recommendations produced, partitioned by action type and urgency.",
		}, []string{"action_type", "urgency"}),
		scheduledTouches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "touches_total",
			Help:      "Collection touches planned, partitioned by action type.",
		}, []string{"action_type"}),
		openARAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "open_ar_amount",
			Help:      "Open accounts-receivable amount by aging bucket.",
		}, []string{"bucket"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, partitioned by method, path, and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.invoicesScored, m.scoringFallbacks, m.scoringDuration,
		m.trainingRuns, m.trainingDuration, m.modelAUC,
		m.recommendations, m.scheduledTouches, m.openARAmount,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler returns the exposition endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveScored records one scored invoice in its risk category.
func (m *Metrics) ObserveScored(category string) {
	m.invoicesScored.WithLabelValues(category).Inc()
}

// ObserveFallback records a scoring pass served by the rule fallback.
func (m *Metrics) ObserveFallback() { m.scoringFallbacks.Inc() }

// ObserveScoringBatch records the duration of a scoring batch.
func (m *Metrics) ObserveScoringBatch(d time.Duration) {
	m.scoringDuration.Observe(d.Seconds())
}

// ObserveTraining records a training run and, on success, its test AUC.
func (m *Metrics) ObserveTraining(outcome string, d time.Duration, auc float64) {
	m.trainingRuns.WithLabelValues(outcome).Inc()
	m.trainingDuration.Observe(d.Seconds())
	if outcome == "success" {
		m.modelAUC.Set(auc)
	}
}

// ObserveRecommendation records one produced recommendation.
func (m *Metrics) ObserveRecommendation(actionType, urgency string) {
	m.recommendations.WithLabelValues(actionType, urgency).Inc()
}

// ObserveScheduledTouch records one planned collection touch.
func (m *Metrics) ObserveScheduledTouch(actionType string) {
	m.scheduledTouches.WithLabelValues(actionType).Inc()
}

// SetOpenAR publishes the open AR amount for an aging bucket.
func (m *Metrics) SetOpenAR(bucket string, amount float64) {
	m.openARAmount.WithLabelValues(bucket).Set(amount)
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
