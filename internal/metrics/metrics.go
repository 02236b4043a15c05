package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "wavehost"
	subsystem = "host"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// Forward pass duration, per model
	ForwardDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "forward_duration_seconds",
			Help:      "Model forward pass duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"model"},
	)

	ForwardErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "forward_errors_total",
			Help:      "Forward passes rejected by validation or failed in the model",
		},
		[]string{"model"},
	)

	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "samples_processed_total",
			Help:      "Sample frames produced by forward passes",
		},
		[]string{"model"},
	)

	// Lifecycle calls (set_buffer_size, flush, reset) and whether the model
	// honoured them
	LifecycleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lifecycle_calls_total",
			Help:      "Lifecycle hook invocations",
		},
		[]string{"model", "operation", "applied"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Number of live model sessions",
		},
	)
)

func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordForward records one forward pass. frames is ignored when err is set.
func RecordForward(model string, frames int, durationSec float64, err error) {
	if err != nil {
		ForwardErrorsTotal.WithLabelValues(model).Inc()
		return
	}
	ForwardDuration.WithLabelValues(model).Observe(durationSec)
	SamplesTotal.WithLabelValues(model).Add(float64(frames))
}

func RecordLifecycle(model, operation string, applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	LifecycleCallsTotal.WithLabelValues(model, operation, label).Inc()
}
