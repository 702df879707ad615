package prometheus

import (
	"time"

	"listing-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Listing metrics
	ListingOperationsCounter prometheus.CounterVec

	// Search metrics labelled by the resolver path taken (mls, spatial,
	// fallback, or none for an empty query)
	SearchRequestsCounter prometheus.CounterVec

	// Geocoding provider metrics
	GeocodeRequestsCounter prometheus.Counter
	GeocodeErrorsCounter   prometheus.Counter

	// Upload metrics
	UploadedFilesCounter prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Listing metrics
	ListingOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of listing operations",
		},
		[]string{"operation"},
	)

	// Search metrics
	SearchRequestsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_search_requests_total",
			Help: "Total number of search requests by resolver path",
		},
		[]string{"path"},
	)

	// Geocoding metrics
	GeocodeRequestsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_geocode_requests_total",
			Help: "Total number of geocoding provider calls",
		},
	)

	GeocodeErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_geocode_errors_total",
			Help: "Total number of failed geocoding provider calls",
		},
	)

	// Upload metrics
	UploadedFilesCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_uploaded_files_total",
			Help: "Total number of uploaded image files",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordListingOperation increments the counter for listing operations
func RecordListingOperation(operation string) {
	ListingOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordSearchPath increments the counter for the resolver path taken
func RecordSearchPath(path string) {
	SearchRequestsCounter.WithLabelValues(path).Inc()
}
