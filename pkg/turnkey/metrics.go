package turnkey

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics the client records. A nil *Metrics
// is valid and records nothing, so instrumentation stays optional.
type Metrics struct {
	// Activity lifecycle metrics
	ActivitiesSubmitted *prometheus.CounterVec
	ActivitiesCompleted *prometheus.CounterVec
	ActivitiesFailed    *prometheus.CounterVec
	ActivitiesTimedOut  *prometheus.CounterVec
	PollAttempts        prometheus.Histogram

	// Request metrics
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics initializes and registers the metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes the metrics on a custom registry.
// A nil registry falls back to the default registerer.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		ActivitiesSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnkey_activities_submitted_total",
				Help: "The total number of signing activities submitted",
			},
			[]string{"type"},
		),
		ActivitiesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnkey_activities_completed_total",
				Help: "The total number of signing activities that completed",
			},
			[]string{"type"},
		),
		ActivitiesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnkey_activities_failed_total",
				Help: "The total number of signing activities the service refused",
			},
			[]string{"type"},
		),
		ActivitiesTimedOut: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnkey_activities_timed_out_total",
				Help: "The total number of signing activities still pending at the deadline",
			},
			[]string{"type"},
		),
		PollAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "turnkey_activity_poll_attempts",
			Help:    "Polls needed per activity before reaching a terminal state",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turnkey_request_duration_seconds",
				Help:    "Duration of requests to the signer service",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "status"},
		),
	}
}

func (m *Metrics) observeRequest(path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) activitySubmitted(activityType string) {
	if m == nil {
		return
	}
	m.ActivitiesSubmitted.WithLabelValues(activityType).Inc()
}

func (m *Metrics) activityCompleted(activityType string, polls int) {
	if m == nil {
		return
	}
	m.ActivitiesCompleted.WithLabelValues(activityType).Inc()
	m.PollAttempts.Observe(float64(polls))
}

func (m *Metrics) activityFailed(activityType string) {
	if m == nil {
		return
	}
	m.ActivitiesFailed.WithLabelValues(activityType).Inc()
}

func (m *Metrics) activityTimedOut(activityType string) {
	if m == nil {
		return
	}
	m.ActivitiesTimedOut.WithLabelValues(activityType).Inc()
}
