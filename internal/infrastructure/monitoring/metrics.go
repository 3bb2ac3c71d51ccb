// Package monitoring collects Prometheus metrics for the HTTP surface,
// the WebSocket transport, and the control plane.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Control plane metrics
	SessionsActive    prometheus.Gauge
	SessionsTotal     prometheus.Counter
	ProtocolRequests  *prometheus.CounterVec
	Misbehaviors      prometheus.Counter
	PaintsPosted      prometheus.Counter
	BuffersLive       prometheus.Gauge
	LeasesLive        prometheus.Gauge
	LeasesExpired     prometheus.Counter
	WindowsLive       prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumen_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lumen_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumen_sessions_active",
				Help: "Number of connected client sessions",
			},
		),
		SessionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lumen_sessions_total",
				Help: "Total number of sessions accepted",
			},
		),
		ProtocolRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumen_protocol_requests_total",
				Help: "Total number of protocol requests dispatched",
			},
			[]string{"kind"},
		),
		Misbehaviors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lumen_protocol_misbehaviors_total",
				Help: "Total number of client protocol violations",
			},
		),
		PaintsPosted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lumen_paints_posted_total",
				Help: "Total number of paint notifications posted",
			},
		),
		BuffersLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumen_shared_buffers_live",
				Help: "Number of live shared buffers",
			},
		),
		LeasesLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumen_buffer_leases_live",
				Help: "Number of outstanding buffer leases",
			},
		),
		LeasesExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lumen_buffer_leases_expired_total",
				Help: "Total number of buffer leases dropped by TTL",
			},
		),
		WindowsLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumen_windows_live",
				Help: "Number of windows in the stacking order",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumen_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumen_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "kind"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lumen_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}

	go m.updateUptime()
	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message by direction and kind.
func (m *Metrics) RecordWSMessage(direction, kind string) {
	m.WSMessages.WithLabelValues(direction, kind).Inc()
}

// SessionOpened implements session.Metrics.
func (m *Metrics) SessionOpened() {
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

// SessionClosed implements session.Metrics.
func (m *Metrics) SessionClosed() {
	m.SessionsActive.Dec()
}

// RecordRequest implements session.Metrics.
func (m *Metrics) RecordRequest(kind string) {
	m.ProtocolRequests.WithLabelValues(kind).Inc()
}

// RecordMisbehavior implements session.Metrics.
func (m *Metrics) RecordMisbehavior(string) {
	m.Misbehaviors.Inc()
}

// RecordPaint implements session.Metrics.
func (m *Metrics) RecordPaint() {
	m.PaintsPosted.Inc()
}
