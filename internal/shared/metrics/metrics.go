package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_analyses_total",
			Help: "Total scan analyses by outcome",
		},
		[]string{"outcome"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scan_analysis_duration_seconds",
			Help:    "End-to-end scan analysis duration in seconds",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	scopeFilteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_scope_filtered_total",
			Help: "Detections suppressed by the scope filter",
		},
	)

	specialistCorrectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_specialist_corrections_total",
			Help: "Recommended specialists replaced by a routing rule",
		},
		[]string{"rule"},
	)

	reportsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_reports_rendered_total",
			Help: "PDF reports rendered",
		},
		[]string{"with_image"},
	)
)

// Outcome labels for ObserveAnalysis.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ObserveAnalysis records the outcome and duration of one analysis.
func ObserveAnalysis(outcome string, d time.Duration) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(d.Seconds())
}

// IncScopeFiltered counts a detection suppressed by the scope filter.
func IncScopeFiltered() {
	scopeFilteredTotal.Inc()
}

// IncSpecialistCorrection counts a doctorType replaced by the named rule.
func IncSpecialistCorrection(rule string) {
	specialistCorrectionsTotal.WithLabelValues(rule).Inc()
}

// IncReportRendered counts a rendered report.
func IncReportRendered(withImage bool) {
	reportsRenderedTotal.WithLabelValues(strconv.FormatBool(withImage)).Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
