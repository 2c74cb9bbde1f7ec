package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "school_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "school_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Token exchange counter
	TokenExchangeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "school_token_exchange_total",
			Help: "Total number of long-to-short token exchanges",
		},
	)

	// Domain operation counter
	DomainOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "school_domain_operations_total",
			Help: "Total number of domain operations",
		},
		[]string{"entity", "operation"}, // entity: school/grade/classroom/student/staff
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "school_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "school_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", "forbidden" etc.
	)

	// Card id allocation counter
	CardIDAllocationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "school_card_id_allocations_total",
			Help: "Total number of student card id allocation outcomes",
		},
		[]string{"outcome"}, // "allocated" or "exhausted"
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "school_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "school_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "school_info",
			Help: "Information about the school service",
		},
		[]string{"version"},
	)

	// Active schools
	ActiveSchoolsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "school_active_schools",
			Help: "Number of currently active schools",
		},
	)

	// Students per school
	StudentsPerSchoolGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "school_students_per_school",
			Help: "Number of students per school",
		},
		[]string{"school_id", "school_name"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(TokenExchangeCounter)
	prometheus.MustRegister(DomainOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(CardIDAllocationCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(ActiveSchoolsGauge)
	prometheus.MustRegister(StudentsPerSchoolGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordDomainOperation records a domain operation by entity and operation
func RecordDomainOperation(entity, operation string) {
	DomainOperationCounter.With(prometheus.Labels{
		"entity":    entity,
		"operation": operation,
	}).Inc()
}

// RecordCardIDAllocation records a card id allocation outcome
func RecordCardIDAllocation(outcome string) {
	CardIDAllocationCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// UpdateActiveSchools updates the active schools gauge
func UpdateActiveSchools(count int) {
	ActiveSchoolsGauge.Set(float64(count))
}

// UpdateStudentsPerSchool updates the students per school gauge
func UpdateStudentsPerSchool(schoolID uint, schoolName string, count int) {
	StudentsPerSchoolGauge.With(prometheus.Labels{
		"school_id":   strconv.FormatUint(uint64(schoolID), 10),
		"school_name": schoolName,
	}).Set(float64(count))
}
