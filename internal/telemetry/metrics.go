package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the pipeline collectors. A nil *Metrics is valid and
// records nothing, so components can run without a registry in tests.
type Metrics struct {
	Issued    prometheus.Counter
	Responses *prometheus.CounterVec // result=accepted|stale|ignored
	Failures  *prometheus.CounterVec // kind=transform|unavailable|superseded
	InFlight  prometheus.Gauge
	Duration  prometheus.Histogram
	Documents prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prettify",
			Name:      "requests_issued_total",
			Help:      "Transform requests stamped by the correlator.",
		}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prettify",
			Name:      "responses_total",
			Help:      "Worker responses by correlator verdict.",
		}, []string{"result"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prettify",
			Name:      "worker_failures_total",
			Help:      "Failed worker responses by cause.",
		}, []string{"kind"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prettify",
			Name:      "worker_in_flight",
			Help:      "Transforms currently executing.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prettify",
			Name:      "transform_duration_seconds",
			Help:      "Engine transform latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		Documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prettify",
			Name:      "documents_open",
			Help:      "Open document pipelines.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Issued, m.Responses, m.Failures, m.InFlight, m.Duration, m.Documents)
	}
	return m
}

func (m *Metrics) RequestIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

func (m *Metrics) Response(result string) {
	if m != nil {
		m.Responses.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Failure(kind string) {
	if m != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

// TransformStarted bumps the in-flight gauge and returns the matching
// completion func, which also observes the latency.
func (m *Metrics) TransformStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.InFlight.Inc()
	return func() {
		m.InFlight.Dec()
		m.Duration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) DocumentOpened() {
	if m != nil {
		m.Documents.Inc()
	}
}

func (m *Metrics) DocumentClosed() {
	if m != nil {
		m.Documents.Dec()
	}
}

// Expose serves the default gatherer on :port/metrics in the background.
func Expose(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
