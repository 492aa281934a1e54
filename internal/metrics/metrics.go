package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	resolverOutcomes *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbox_mcp_tool_calls_total",
			Help: "MCP tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netbox_mcp_tool_duration_seconds",
			Help:    "MCP tool call duration",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"tool"}),
		resolverOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbox_mcp_resolver_outcomes_total",
			Help: "Name-to-id resolutions by relationship kind and outcome",
		}, []string{"kind", "outcome"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netbox_mcp_upstream_requests_total",
			Help: "Requests to the NetBox API by endpoint and status code (0 when no response)",
		}, []string{"endpoint", "code"}),
		gatherer: reg,
	}
	reg.MustRegister(m.toolCalls, m.toolDuration, m.resolverOutcomes, m.upstreamRequests)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns collectors registered once with a process-wide registry
// that also carries the Go and process collectors.
func Default() *Metrics {
	defaultOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		defaultMetrics = New(reg)
	})
	return defaultMetrics
}

// Outcome labels for tool calls.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ObserveToolCall records one tool call.
func (m *Metrics) ObserveToolCall(tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveResolve records one resolver outcome.
func (m *Metrics) ObserveResolve(kind, outcome string) {
	if m == nil {
		return
	}
	m.resolverOutcomes.WithLabelValues(kind, outcome).Inc()
}

// ObserveUpstream records one API request.
func (m *Metrics) ObserveUpstream(endpoint string, code int) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
