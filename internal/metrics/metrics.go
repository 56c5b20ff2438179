// Package metrics holds the Prometheus collectors for airdrop workflows and
// the HTTP front end.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
)

// Metrics holds all Prometheus collectors. It is passed explicitly to the
// components that record into it.
type Metrics struct {
	// Workflow metrics
	stepsTotal       *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsender_workflow_steps_total",
				Help: "Total number of airdrop workflow steps reached, by step and chain",
			},
			[]string{"step", "chain_id"},
		),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tsender_submissions_total",
				Help: "Total number of finished airdrop submissions by outcome",
			},
			[]string{"outcome", "chain_id"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tsender_workflow_step_duration_seconds",
				Help:    "Duration of each airdrop workflow step in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
			},
			[]string{"step"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 10, 60},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// OnStep records a workflow event. It makes Metrics an airdrop.Observer.
func (m *Metrics) OnStep(e airdrop.Event) {
	chainID := strconv.FormatInt(e.ChainID, 10)
	m.stepsTotal.WithLabelValues(string(e.Step), chainID).Inc()
	// A failure ends a step rather than being one, so it carries no duration.
	if e.Step != airdrop.StepFailed {
		m.stepDuration.WithLabelValues(string(e.Step)).Observe(e.Elapsed.Seconds())
	}

	switch e.Step {
	case airdrop.StepAirdropConfirmed:
		m.submissionsTotal.WithLabelValues(string(airdrop.StatusSuccess), chainID).Inc()
	case airdrop.StepFailed:
		m.submissionsTotal.WithLabelValues(string(airdrop.StatusFailed), chainID).Inc()
	}
}

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
