package metrics

import (
	"time"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow metrics
var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractflow_transitions_total",
			Help: "Contract workflow actions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	TransitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contractflow_transition_duration_seconds",
			Help:    "Time taken to run a contract workflow action including commit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	ContractsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contractflow_contracts_expired_total",
		Help: "Contracts moved to expired by the expiry sweeper",
	})

	ExpirySweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contractflow_expiry_sweep_duration_seconds",
		Help:    "Time taken by one expiry sweep",
		Buckets: prometheus.DefBuckets,
	})
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contractflow_http_requests_total",
			Help: "HTTP requests by route template, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contractflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	AttachmentBytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contractflow_attachment_bytes_stored_total",
		Help: "Bytes of attachment content written to blob storage",
	})
)

// TransitionRecorder reports engine outcomes to Prometheus
type TransitionRecorder struct{}

func NewTransitionRecorder() *TransitionRecorder {
	return &TransitionRecorder{}
}

func (r *TransitionRecorder) ObserveTransition(action domain.Action, outcome string, duration time.Duration) {
	TransitionsTotal.WithLabelValues(string(action), outcome).Inc()
	TransitionDuration.WithLabelValues(string(action)).Observe(duration.Seconds())
	if action == domain.ActionExpire && outcome == "ok" {
		ContractsExpired.Inc()
	}
}
