// Package metrics holds the Prometheus collectors exported by the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobboard"

// Collector wraps the service's Prometheus registry and metric vectors.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	StatusTransitions   *prometheus.CounterVec
	ApplicationCancels  prometheus.Counter
	FileUploads         *prometheus.CounterVec
	ActiveSubscriptions *prometheus.GaugeVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "application_status_transitions_total",
			Help:      "Application status changes written by employers",
		}, []string{"status"}),
		ApplicationCancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "application_cancellations_total",
			Help:      "Pending applications deleted by their seeker",
		}),
		FileUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_file_uploads_total",
			Help:      "Profile file uploads by kind and outcome",
		}, []string{"kind", "outcome"}),
		ActiveSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_active_subscriptions",
			Help:      "Live application feeds currently connected",
		}, []string{"view"}),
	}

	reg.MustRegister(
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
		c.StatusTransitions,
		c.ApplicationCancels,
		c.FileUploads,
		c.ActiveSubscriptions,
		collectors.NewGoCollector(),
	)

	return c
}

// Handler returns the HTTP handler serving the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, used by tests to gather values.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Nil receivers are allowed so controllers can run without a collector in tests.

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveTransition counts a status write.
func (c *Collector) ObserveTransition(status string) {
	if c == nil {
		return
	}
	c.StatusTransitions.WithLabelValues(status).Inc()
}

// ObserveCancel counts a seeker cancellation.
func (c *Collector) ObserveCancel() {
	if c == nil {
		return
	}
	c.ApplicationCancels.Inc()
}

// ObserveUpload counts a file upload attempt.
func (c *Collector) ObserveUpload(kind, outcome string) {
	if c == nil {
		return
	}
	c.FileUploads.WithLabelValues(kind, outcome).Inc()
}

// TrackSubscription increments the live feed gauge and returns the matching decrement.
func (c *Collector) TrackSubscription(view string) func() {
	if c == nil {
		return func() {}
	}
	g := c.ActiveSubscriptions.WithLabelValues(view)
	g.Inc()
	return g.Dec
}
