package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movegpt_http_requests_total",
		Help: "HTTP requests processed, partitioned by handler, method and status code.",
	}, []string{"handler", "method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "movegpt_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"handler", "method"})

	turns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movegpt_turns_total",
		Help: "Conversation turns, partitioned by mode and outcome.",
	}, []string{"mode", "outcome"})

	turnDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "movegpt_turn_duration_seconds",
		Help:    "End to end latency of a conversation turn including retrieval and completion.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"mode"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		turns,
		turnDuration,
	)
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// ObserveTurn records the outcome of one conversation turn. Outcome is "ok" or
// the error code of the failure.
func ObserveTurn(mode, outcome string, duration time.Duration) {
	turns.WithLabelValues(mode, outcome).Inc()
	turnDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// Registry exposes the registry backing Handler.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
