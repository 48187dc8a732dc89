// Package metrics provides Prometheus instrumentation for the SITARA engine.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitara",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sitara",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DecisionsTotal counts engine decisions by resulting state.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitara",
			Name:      "decisions_total",
			Help:      "Total engine decisions by resulting state.",
		},
		[]string{"state"},
	)

	// StateTransitionsTotal counts FSM transitions by edge.
	StateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitara",
			Name:      "state_transitions_total",
			Help:      "Total state machine transitions by from/to state.",
		},
		[]string{"from", "to"},
	)

	// AlertsEmittedTotal counts alerts actually emitted (post-cooldown).
	AlertsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitara",
			Name:      "alerts_emitted_total",
			Help:      "Total alerts emitted by action type.",
		},
		[]string{"type"},
	)

	// AlertsSuppressedTotal counts alerts suppressed by the cooldown gate.
	AlertsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitara",
			Name:      "alerts_suppressed_total",
			Help:      "Total alerts suppressed within a cooldown window by action type.",
		},
		[]string{"type"},
	)

	// SnapshotSavesTotal counts snapshot persistence attempts by result.
	SnapshotSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitara",
			Name:      "snapshot_saves_total",
			Help:      "Total engine snapshot save attempts by result.",
		},
		[]string{"result"},
	)

	// RiskScore tracks the last observed (clamped) risk score.
	RiskScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitara", Name: "risk_score",
		Help: "Last observed risk score after clamping.",
	})

	// RiskVelocity tracks the last computed risk velocity (per minute).
	RiskVelocity = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitara", Name: "risk_velocity_per_minute",
		Help: "Last computed rate of risk change per minute.",
	})

	// ObserveDuration observes the engine critical-section latency.
	ObserveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sitara",
		Name:      "observe_duration_seconds",
		Help:      "Engine observation processing time in seconds.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitara", Name: "active_websocket_clients",
		Help: "Number of currently connected WebSocket clients.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitara", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitara", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitara", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		DecisionsTotal,
		StateTransitionsTotal,
		AlertsEmittedTotal,
		AlertsSuppressedTotal,
		SnapshotSavesTotal,
		RiskScore,
		RiskVelocity,
		ObserveDuration,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
