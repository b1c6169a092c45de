package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "collabify",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabify",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collabify",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	interestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabify",
			Subsystem: "workflow",
			Name:      "interest_transitions_total",
			Help:      "Interest status changes by target status.",
		},
		[]string{"status"},
	)

	projectEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabify",
			Subsystem: "workflow",
			Name:      "project_events_total",
			Help:      "Project lifecycle events (created, updated, deleted, status changes).",
		},
		[]string{"event"},
	)

	teamMemberEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabify",
			Subsystem: "workflow",
			Name:      "team_member_events_total",
			Help:      "Team membership additions and removals.",
		},
		[]string{"event"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		interestTransitions,
		projectEvents,
		teamMemberEvents,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency labelled by the matched route
// pattern, so /api/projects/:id does not explode into one series per id.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordInterestTransition counts an interest entering status.
func RecordInterestTransition(status string) {
	interestTransitions.WithLabelValues(status).Inc()
}

// RecordProjectEvent counts a project lifecycle event.
func RecordProjectEvent(event string) {
	projectEvents.WithLabelValues(event).Inc()
}

// RecordTeamMemberEvent counts a membership change ("added" or "removed").
func RecordTeamMemberEvent(event string) {
	teamMemberEvents.WithLabelValues(event).Inc()
}

// RegisterDBStats exports connection pool statistics for db under the given name.
func RegisterDBStats(db *sql.DB, name string) error {
	return Registry.Register(collectors.NewDBStatsCollector(db, name))
}
