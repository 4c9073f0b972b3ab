package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Photo list sync metrics
	SyncTotal    *prometheus.CounterVec
	SyncDuration prometheus.Histogram

	// Slideshow metrics
	SlideAdvanceTotal *prometheus.CounterVec
	Photos            prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance registered on its own registry so several
// instances can live in one process (tests, two servers).
func New() *Metrics {
	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		SyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photo_sync_total",
			Help: "Photo list syncs by result (ready, empty, error, stale)",
		}, []string{"result"}),

		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "photo_sync_duration_seconds",
			Help:    "Photo list sync duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		SlideAdvanceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slideshow_advance_total",
			Help: "Cursor moves by source (timer, user)",
		}, []string{"source"}),

		Photos: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "slideshow_photos",
			Help: "Number of photos in the current sequence",
		}),

		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestTotal,
		m.HTTPRequestDuration,
		m.SyncTotal,
		m.SyncDuration,
		m.SlideAdvanceTotal,
		m.Photos,
	)

	return m
}

// ObserveSync records one settled sync.
func (m *Metrics) ObserveSync(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncTotal.WithLabelValues(result).Inc()
	m.SyncDuration.Observe(d.Seconds())
}

// ObserveAdvance records one cursor move.
func (m *Metrics) ObserveAdvance(source string) {
	if m == nil {
		return
	}
	m.SlideAdvanceTotal.WithLabelValues(source).Inc()
}

// SetPhotos records the current sequence length.
func (m *Metrics) SetPhotos(n int) {
	if m == nil {
		return
	}
	m.Photos.Set(float64(n))
}

// Middleware records request count and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
