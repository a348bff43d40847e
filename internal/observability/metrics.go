package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's Prometheus metrics behind its own
// registry, so tests can build as many as they like without duplicate
// registration panics.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	MemoryOps    *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	memoryOps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Total number of memory graph operations",
		},
		[]string{"operation", "status"},
	)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		memoryOps,
	)

	return &Collector{
		registry:     registry,
		HTTPRequests: httpRequests,
		HTTPDuration: httpDuration,
		MemoryOps:    memoryOps,
	}
}

// ObserveOp counts one memory operation outcome.
func (c *Collector) ObserveOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.MemoryOps.WithLabelValues(operation, status).Inc()
}

// Handler serves this registry's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
