package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the webhook ingestion and
// trigger flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	webhookBatchesTotal  prometheus.Counter
	webhookEventsTotal   *prometheus.CounterVec
	ingestDuration       prometheus.Histogram
	triggersTotal        *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "novu_bridge",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "novu_bridge",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		webhookBatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "novu_bridge",
				Name:      "webhook_batches_total",
				Help:      "Total number of webhook ingestion calls.",
			},
		),
		webhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "novu_bridge",
				Name:      "webhook_events_total",
				Help:      "Total number of webhook events grouped by outcome.",
			},
			[]string{"outcome"},
		),
		ingestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "novu_bridge",
				Name:      "webhook_ingest_duration_seconds",
				Help:      "Webhook batch ingestion duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "novu_bridge",
				Name:      "triggers_total",
				Help:      "Total number of workflow trigger calls grouped by status.",
			},
			[]string{"status"},
		),
		providerCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "novu_bridge",
				Name:      "provider_call_duration_seconds",
				Help:      "Upstream provider call duration in seconds grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhookBatchesTotal,
		m.webhookEventsTotal,
		m.ingestDuration,
		m.triggersTotal,
		m.providerCallDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

// ObserveIngest records the outcome counts of one webhook batch.
func (m *Metrics) ObserveIngest(received, succeeded, skipped, failed int) {
	if m == nil {
		return
	}
	m.webhookBatchesTotal.Inc()
	m.webhookEventsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	m.webhookEventsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.webhookEventsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObserveIngestDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.ingestDuration.Observe(seconds)
}

func (m *Metrics) IncTrigger(status string) {
	if m == nil {
		return
	}
	statusLabel := strings.TrimSpace(strings.ToLower(status))
	if statusLabel == "" {
		statusLabel = "unknown"
	}
	m.triggersTotal.WithLabelValues(statusLabel).Inc()
}

func (m *Metrics) ObserveProviderCall(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	operationLabel := strings.TrimSpace(strings.ToLower(operation))
	if operationLabel == "" {
		operationLabel = "unknown"
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.providerCallDuration.WithLabelValues(operationLabel).Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
