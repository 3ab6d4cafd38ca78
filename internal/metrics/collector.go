// Package metrics exposes request and reconciliation counters for the
// local proxy.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aicodewith"

// Collector owns its own prometheus registry, so several instances can
// coexist in one process. A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry
	handler  http.Handler

	requests          *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
	transformFailures *prometheus.CounterVec
	upstreamErrors    *prometheus.CounterVec
	configChanges     *prometheus.CounterVec
	inputTokens       *prometheus.CounterVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Intercepted requests by upstream family and status.",
			},
			[]string{"family", "status"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Time until upstream response headers arrive.",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"family"},
		),
		transformFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transform_fallbacks_total",
				Help:      "Requests forwarded with their original body because it could not be transformed.",
			},
			[]string{"family"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Transport errors talking to the upstream.",
			},
			[]string{"family"},
		),
		configChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_changes_total",
				Help:      "Changes applied to host configuration files.",
			},
			[]string{"change"},
		),
		inputTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "input_tokens_total",
				Help:      "Estimated input tokens of proxied requests.",
			},
			[]string{"family"},
		),
	}

	registry.MustRegister(
		c.requests,
		c.upstreamLatency,
		c.transformFailures,
		c.upstreamErrors,
		c.configChanges,
		c.inputTokens,
	)
	c.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return c
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return c.handler
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RecordRequest(family string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(family, strconv.Itoa(status)).Inc()
	c.upstreamLatency.WithLabelValues(family).Observe(duration.Seconds())
}

func (c *Collector) RecordUpstreamError(family string) {
	if c == nil {
		return
	}
	c.upstreamErrors.WithLabelValues(family).Inc()
}

func (c *Collector) RecordTransformFallback(family string) {
	if c == nil {
		return
	}
	c.transformFailures.WithLabelValues(family).Inc()
}

// RecordConfigChange counts one change tag, such as provider_updated.
func (c *Collector) RecordConfigChange(change string) {
	if c == nil {
		return
	}
	c.configChanges.WithLabelValues(change).Inc()
}

func (c *Collector) RecordInputTokens(family string, tokens int) {
	if c == nil || tokens <= 0 {
		return
	}
	c.inputTokens.WithLabelValues(family).Add(float64(tokens))
}
