package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API. A nil *Metrics records nothing.
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Rental operation metrics
	rentalOperationsTotal   *prometheus.CounterVec
	rentalOperationDuration *prometheus.HistogramVec
	stationAvailable        *prometheus.GaugeVec
	bikesRented             prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bicis_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bicis_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bicis_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		rentalOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bicis_rental_operations_total",
				Help: "Total number of rent and return operations by outcome",
			},
			[]string{"operation", "outcome"},
		),

		rentalOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bicis_rental_operation_duration_seconds",
				Help:    "Rental operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		stationAvailable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bicis_station_available_bikes",
				Help: "Bikes parked at each station as of the last read",
			},
			[]string{"station"},
		),

		bikesRented: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bicis_bikes_rented",
				Help: "Bikes currently rented as of the last consistency check",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bicis_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRentalOperation records a rent or return and its outcome
func (m *Metrics) RecordRentalOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rentalOperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.rentalOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateStations sets the availability gauge for every station
func (m *Metrics) UpdateStations(counts []int) {
	if m == nil {
		return
	}
	for i, c := range counts {
		m.stationAvailable.WithLabelValues(strconv.Itoa(i + 1)).Set(float64(c))
	}
}

// UpdateRented sets the rented bikes gauge
func (m *Metrics) UpdateRented(n int) {
	if m == nil {
		return
	}
	m.bikesRented.Set(float64(n))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
