package summarizer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SummaryMetricsRecorder defines the interface for recording port-level
// summarization metrics. This interface abstracts the metrics recording
// implementation, enabling:
//   - Mocking in unit tests (inject mock recorder instead of Prometheus)
//   - Swapping metrics systems (DataDog, New Relic, OpenTelemetry, etc.)
//   - Reusability across providers (Ollama, Claude)
type SummaryMetricsRecorder interface {
	// RecordLength records the length of a model response in runes.
	RecordLength(length int)

	// RecordDuration records the time taken for one model call.
	RecordDuration(duration time.Duration)

	// RecordFailure increments the counter for failed model calls.
	RecordFailure()

	// RecordStreamFragment increments the counter for streamed fragments.
	RecordStreamFragment()
}

// PrometheusSummaryMetrics implements SummaryMetricsRecorder using Prometheus metrics.
// This is the production implementation that records metrics to Prometheus.
type PrometheusSummaryMetrics struct {
	lengthHistogram   prometheus.Histogram
	durationHistogram prometheus.Histogram
	failureCounter    prometheus.Counter
	fragmentCounter   prometheus.Counter
}

var (
	prometheusMetricsInstance *PrometheusSummaryMetrics
	prometheusMetricsOnce     sync.Once
)

// getOrCreateHistogram gets an existing histogram or creates a new one if it doesn't exist
func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		// If it's not an AlreadyRegisteredError, use promauto which handles this gracefully
		return promauto.NewHistogram(opts)
	}
	return h
}

// getOrCreateCounter gets an existing counter or creates a new one if it doesn't exist
func getOrCreateCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
		return promauto.NewCounter(opts)
	}
	return c
}

// NewPrometheusSummaryMetrics creates a new Prometheus-based metrics recorder.
// It initializes and registers all required Prometheus metrics.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusSummaryMetrics() *PrometheusSummaryMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusSummaryMetrics{
			lengthHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "docdigest_port_response_length_runes",
				Help:    "Distribution of model response lengths in runes",
				Buckets: []float64{100, 300, 500, 1000, 2000, 4000, 8000},
			}),
			durationHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "docdigest_port_call_duration_seconds",
				Help:    "Time taken for one summarize or merge model call",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}),
			failureCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "docdigest_port_call_failures_total",
				Help: "Total number of model calls that failed after retries",
			}),
			fragmentCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "docdigest_port_stream_fragments_total",
				Help: "Total number of fragments forwarded from streaming calls",
			}),
		}
	})
	return prometheusMetricsInstance
}

// RecordLength implements SummaryMetricsRecorder.RecordLength
func (p *PrometheusSummaryMetrics) RecordLength(length int) {
	p.lengthHistogram.Observe(float64(length))
}

// RecordDuration implements SummaryMetricsRecorder.RecordDuration
func (p *PrometheusSummaryMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.Observe(duration.Seconds())
}

// RecordFailure implements SummaryMetricsRecorder.RecordFailure
func (p *PrometheusSummaryMetrics) RecordFailure() {
	p.failureCounter.Inc()
}

// RecordStreamFragment implements SummaryMetricsRecorder.RecordStreamFragment
func (p *PrometheusSummaryMetrics) RecordStreamFragment() {
	p.fragmentCounter.Inc()
}
