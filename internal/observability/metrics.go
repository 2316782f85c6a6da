package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the daemon's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// NewMetrics creates and registers the daemon collectors on a fresh
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aidis_tool_calls_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aidis_tool_duration_seconds",
			Help:    "Tool execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aidis_http_requests_total",
			Help: "HTTP requests by path and status code.",
		}, []string{"path", "status"}),
	}

	registry.MustRegister(m.toolCalls, m.toolDuration, m.httpRequests)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveToolCall records one tool execution.
func (m *Metrics) ObserveToolCall(tool, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one HTTP request.
func (m *Metrics) ObserveHTTPRequest(path, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, status).Inc()
}
