// Package metrics exposes Prometheus collectors for poll chains.
//
// A [Collector] owns its own registry, so several can coexist in one process
// (tests, embedded use) without clashing on the global default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pollkit"

// latencyBuckets spans fast local endpoints to slow job-status APIs.
var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Collector records poll events and response statistics.
//
// Collector is safe for concurrent use.
type Collector struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	responses *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	active    prometheus.Gauge
}

// New creates a [Collector] with Go runtime and process collectors registered.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Poll events emitted, by poll name and event kind.",
		}, []string{"poll", "kind"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "HTTP responses received by poll requests, by status class.",
		}, []string{"poll", "class"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_latency_seconds",
			Help:      "Latency of every poll request that received a response.",
			Buckets:   latencyBuckets,
		}, []string{"poll"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_polls",
			Help:      "Poll chains currently running.",
		}),
	}

	reg.MustRegister(
		c.events,
		c.responses,
		c.latency,
		c.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveEvent counts one event of the given kind for a poll.
func (c *Collector) ObserveEvent(poll, kind string) {
	c.events.WithLabelValues(poll, kind).Inc()
}

// ObserveResponse records the status class and latency of one response.
func (c *Collector) ObserveResponse(poll string, statusCode int, latency time.Duration) {
	c.responses.WithLabelValues(poll, StatusClass(statusCode)).Inc()
	c.latency.WithLabelValues(poll).Observe(latency.Seconds())
}

// PollStarted increments the active poll gauge.
func (c *Collector) PollStarted() {
	c.active.Inc()
}

// PollFinished decrements the active poll gauge.
func (c *Collector) PollFinished() {
	c.active.Dec()
}

// Handler returns an http.Handler serving the collector's registry in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StatusClass maps a status code to its class label ("2xx", "4xx", ...).
// Codes outside 100-599 map to "other".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
