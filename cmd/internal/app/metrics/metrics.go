// Package metrics exposes Prometheus collectors for the Vows server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vows",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vows",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vows",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	rsvpSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vows",
			Subsystem: "rsvp",
			Name:      "submissions_total",
			Help:      "Total number of accepted RSVP submissions.",
		},
		[]string{"attending"},
	)

	dashboardSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vows",
			Subsystem: "dashboard",
			Name:      "subscribers",
			Help:      "Current number of connected dashboard subscribers.",
		},
	)

	dashboardEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vows",
			Subsystem: "dashboard",
			Name:      "events_dropped_total",
			Help:      "Total number of feed events dropped due to slow subscribers.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		rsvpSubmissions,
		dashboardSubscribers,
		dashboardEventsDropped,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordRSVPSubmission records an accepted guest RSVP.
func RecordRSVPSubmission(attending bool) {
	rsvpSubmissions.WithLabelValues(strconv.FormatBool(attending)).Inc()
}

// DashboardSubscriberOpened records a new dashboard feed subscription.
func DashboardSubscriberOpened() { dashboardSubscribers.Inc() }

// DashboardSubscriberClosed records a closed dashboard feed subscription.
func DashboardSubscriberClosed() { dashboardSubscribers.Dec() }

// RecordDashboardEventDropped records a feed event dropped on backpressure.
func RecordDashboardEventDropped() { dashboardEventsDropped.Inc() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap exposes the wrapped writer so http.ResponseController can reach
// Hijacker/Flusher through the middleware chain (WebSocket upgrades).
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// canonicalPath collapses per-resource identifiers so label cardinality
// stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")

	for i, p := range parts {
		if i == 0 {
			continue
		}
		switch parts[i-1] {
		case "invitations":
			if p != "" {
				parts[i] = ":id"
			}
		}
	}
	// /api/public/invitations/{slug}/... addresses by slug, not id.
	if len(parts) >= 4 && parts[0] == "api" && parts[1] == "public" && parts[2] == "invitations" {
		parts[3] = ":slug"
	}
	return "/" + strings.Join(parts, "/")
}
