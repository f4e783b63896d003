package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric definitions for the scan pipeline

var (
	scansCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "scan",
			Name:      "completed_total",
			Help:      "Total number of completed scans",
		},
		[]string{"source", "verdict"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phishguard",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "End to end scan pipeline duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"source"},
	)

	scansJoined = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "scan",
			Name:      "joined_total",
			Help:      "Scan requests that joined an in-flight scan of the same address",
		},
	)

	remoteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "remote",
			Name:      "failures_total",
			Help:      "Remote scorer failures that routed to the local fallback",
		},
		[]string{"reason"},
	)

	contentUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "content",
			Name:      "unavailable_total",
			Help:      "Scans that proceeded without content signals",
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Verdict cache lookups",
		},
		[]string{"result"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Threat notifications by outcome",
		},
		[]string{"status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phishguard",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)
)

// ObserveScan records a completed scan
func ObserveScan(source string, isThreat bool, d time.Duration) {
	verdict := "safe"
	if isThreat {
		verdict = "threat"
	}
	scansCompleted.WithLabelValues(source, verdict).Inc()
	scanDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveJoinedScan records a request served by an in-flight scan
func ObserveJoinedScan() {
	scansJoined.Inc()
}

// ObserveRemoteFailure records a remote scorer failure by reason
func ObserveRemoteFailure(reason string) {
	remoteFailures.WithLabelValues(reason).Inc()
}

// ObserveContentUnavailable records a scan without content signals
func ObserveContentUnavailable() {
	contentUnavailable.Inc()
}

// ObserveCacheLookup records a cache hit or miss
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveNotification records a notification attempt
func ObserveNotification(err error) {
	if err != nil {
		notificationsSent.WithLabelValues("error").Inc()
		return
	}
	notificationsSent.WithLabelValues("ok").Inc()
}

// ObserveHTTPRequest records a served API request
func ObserveHTTPRequest(method, handler, status string) {
	httpRequestsTotal.WithLabelValues(method, handler, status).Inc()
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
