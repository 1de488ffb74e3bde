package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	RemoteEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_remote_events_total",
			Help: "Collection snapshots received from the remote store",
		},
		[]string{"collection"},
	)

	StaleEventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_stale_events_dropped_total",
			Help: "Collection snapshots discarded because a newer one arrived first",
		},
		[]string{"collection"},
	)

	WritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_writes_total",
			Help: "Outbound document writes by result",
		},
		[]string{"collection", "op", "status"},
	)

	PendingWrites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_pending_writes",
			Help: "Outbound writes not yet confirmed by the remote store",
		},
	)

	Connected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_connected",
			Help: "1 while the remote store is reachable",
		},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_clients",
			Help: "Connected snapshot feed clients",
		},
	)

	WebsocketMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_total",
			Help: "Snapshot feed messages by type and direction",
		},
		[]string{"type", "direction"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests refused by a rate limiter",
		},
		[]string{"limiter"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(RemoteEvents)
	prometheus.MustRegister(StaleEventsDropped)
	prometheus.MustRegister(WritesTotal)
	prometheus.MustRegister(PendingWrites)
	prometheus.MustRegister(Connected)
	prometheus.MustRegister(WebsocketClients)
	prometheus.MustRegister(WebsocketMessages)
	prometheus.MustRegister(RateLimited)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
