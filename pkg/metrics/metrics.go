package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edtech",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edtech",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edtech",
		Name:      "db_query_duration_seconds",
		Help:      "Database statement latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edtech",
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by outcome.",
	}, []string{"outcome"})

	payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edtech",
		Name:      "payments_total",
		Help:      "Payments by resulting status.",
	}, []string{"status"})

	progressReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edtech",
		Name:      "progress_reports_total",
		Help:      "Video progress reports, split by whether completion was reported.",
	}, []string{"completed"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edtech",
		Name:      "cache_lookups_total",
		Help:      "Course facts cache lookups by result.",
	}, []string{"result"})
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDBQuery observes a database statement.
func RecordDBQuery(operation, table string, elapsed time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordEnrollment counts an enrollment outcome such as "created" or "already_enrolled".
func RecordEnrollment(outcome string) {
	enrollments.WithLabelValues(outcome).Inc()
}

// RecordPayment counts a payment reaching status.
func RecordPayment(status string) {
	payments.WithLabelValues(status).Inc()
}

// RecordProgressReport counts a progress report.
func RecordProgressReport(completed bool) {
	progressReports.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}
