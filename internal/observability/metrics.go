package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	AssessmentsTotal *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	UploadBytes      prometheus.Histogram

	RateLimitedTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics registers every collector on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boneager_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boneager_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "boneager_http_requests_in_flight",
				Help: "HTTP requests currently being served",
			},
		),
		AssessmentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boneager_assessments_total",
				Help: "Assessments by upload format and outcome",
			},
			[]string{"format", "outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boneager_stage_duration_seconds",
				Help:    "Pipeline stage latency",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"stage"},
		),
		UploadBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "boneager_upload_bytes",
				Help:    "Size of accepted uploads",
				Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
			},
		),
		RateLimitedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "boneager_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		gatherer: gatherer,
	}
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CountAssessment records the outcome of one pipeline run.
func (m *Metrics) CountAssessment(format, outcome string) {
	m.AssessmentsTotal.WithLabelValues(format, outcome).Inc()
}

func (m *Metrics) ObserveUpload(n int) {
	m.UploadBytes.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
