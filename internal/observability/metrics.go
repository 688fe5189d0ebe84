package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	CallEvents        *prometheus.CounterVec
	Turns             *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	CompletionLatency prometheus.Histogram
	TranscriptBytes   prometheus.Histogram

	latency *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers the instruments on reg instead of the default registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call-start webhook events by type.",
		}, []string{"event"}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Completion provider errors by provider and code.",
		}, []string{"provider", "code"}),
		CompletionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Chat completion round trip in milliseconds.",
			Buckets:   []float64{250, 500, 750, 1000, 1500, 2000, 3000, 5000, 8000, 12000},
		}),
		TranscriptBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcript_bytes",
			Help:      "Size of the issued session token in bytes.",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 8),
		}),
		latency: newLatencyWindow(256),
	}
}

func (m *Metrics) ObserveCompletionLatency(d time.Duration) {
	m.CompletionLatency.Observe(float64(d.Milliseconds()))
	m.latency.observe(StageCompletion, d)
}

func (m *Metrics) ObserveTurnTotal(d time.Duration) {
	m.latency.observe(StageTurnTotal, d)
}

func (m *Metrics) ObserveTranscriptBytes(n int) {
	m.TranscriptBytes.Observe(float64(n))
}

// ObserveIndicator counts a named turn event in the rolling window.
func (m *Metrics) ObserveIndicator(name string) {
	m.latency.count(name)
}

func (m *Metrics) SnapshotLatency() LatencySnapshot {
	return m.latency.snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
