package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "musicsearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	AdapterRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "adapter_requests_total",
		Help:      "Total requests to source adapters by adapter name and result status.",
	}, []string{"adapter", "status"})

	AdapterRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "musicsearch",
		Name:      "adapter_request_duration_seconds",
		Help:      "Source adapter request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"adapter"})

	AdapterHealthy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "musicsearch",
		Name:      "adapter_healthy",
		Help:      "Whether an adapter is healthy (1) or tripped by the circuit breaker (0).",
	}, []string{"adapter"})

	OrchestratorStageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "musicsearch",
		Name:      "orchestrator_stage_duration_seconds",
		Help:      "Orchestrator stage duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"stage"})

	AdvisorFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "advisor_fallback_total",
		Help:      "Total times an advisor-backed component fell back to its deterministic path.",
	}, []string{"component"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AdapterRequestsTotal,
		AdapterRequestDuration,
		AdapterHealthy,
		OrchestratorStageDuration,
		AdvisorFallbackTotal,
	)
}
