package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	rpcDurationBuckets     = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	llmDurationBuckets     = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	bodySizeBuckets        = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the gateway.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Intent classification metrics
	IntentClassificationsTotal *prometheus.CounterVec
	IntentClassifierDuration   prometheus.Histogram
	IntentParseFailuresTotal   prometheus.Counter

	// Action metrics
	ActionsTotal            *prometheus.CounterVec
	ConfirmationsTotal      *prometheus.CounterVec
	ValidationFailuresTotal *prometheus.CounterVec
	ReadOnlyRejectionsTotal prometheus.Counter

	// Backend RPC metrics
	BackendRequestsTotal       *prometheus.CounterVec
	BackendRequestDuration     *prometheus.HistogramVec
	BackendCircuitBreakerState prometheus.Gauge

	// Schema cache metrics
	SchemaCacheHitsTotal   prometheus.Counter
	SchemaCacheMissesTotal prometheus.Counter
	SchemaCacheEntries     prometheus.Gauge
	SchemaReloadsTotal     *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odoochat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odoochat_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odoochat_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Intent classification
		IntentClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_intent_classifications_total",
			Help: "Total number of classified intents.",
		}, []string{"intent_type"}),
		IntentClassifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "odoochat_intent_classifier_duration_seconds",
			Help:    "Intent classifier round-trip duration in seconds.",
			Buckets: llmDurationBuckets,
		}),
		IntentParseFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odoochat_intent_parse_failures_total",
			Help: "Total number of classifier responses that could not be parsed.",
		}),

		// Actions
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_actions_total",
			Help: "Total number of executed actions.",
		}, []string{"operation", "model", "status"}),
		ConfirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_confirmations_total",
			Help: "Total number of confirmation outcomes.",
		}, []string{"outcome"}),
		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_validation_failures_total",
			Help: "Total number of value validation failures.",
		}, []string{"model"}),
		ReadOnlyRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odoochat_read_only_rejections_total",
			Help: "Total number of writes rejected by read-only mode.",
		}),

		// Backend
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_backend_requests_total",
			Help: "Total number of backend RPC requests.",
		}, []string{"model", "rpc_method", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odoochat_backend_request_duration_seconds",
			Help:    "Backend RPC request duration in seconds.",
			Buckets: rpcDurationBuckets,
		}, []string{"rpc_method"}),
		BackendCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odoochat_backend_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),

		// Schema cache
		SchemaCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odoochat_schema_cache_hits_total",
			Help: "Total schema cache hits.",
		}),
		SchemaCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odoochat_schema_cache_misses_total",
			Help: "Total schema cache misses.",
		}),
		SchemaCacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odoochat_schema_cache_entries",
			Help: "Number of cached model schemas.",
		}),
		SchemaReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odoochat_schema_reloads_total",
			Help: "Total schema load attempts.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Intents
		m.IntentClassificationsTotal,
		m.IntentClassifierDuration,
		m.IntentParseFailuresTotal,
		// Actions
		m.ActionsTotal,
		m.ConfirmationsTotal,
		m.ValidationFailuresTotal,
		m.ReadOnlyRejectionsTotal,
		// Backend
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendCircuitBreakerState,
		// Schema cache
		m.SchemaCacheHitsTotal,
		m.SchemaCacheMissesTotal,
		m.SchemaCacheEntries,
		m.SchemaReloadsTotal,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordIntentClassification records a classified intent and its latency.
func (m *Metrics) RecordIntentClassification(intentType string, duration time.Duration) {
	m.IntentClassificationsTotal.WithLabelValues(intentType).Inc()
	m.IntentClassifierDuration.Observe(duration.Seconds())
}

// RecordIntentParseFailure records an unparseable classifier response.
func (m *Metrics) RecordIntentParseFailure() {
	m.IntentParseFailuresTotal.Inc()
}

// RecordAction records an executed action.
func (m *Metrics) RecordAction(operation, model, status string) {
	m.ActionsTotal.WithLabelValues(operation, model, status).Inc()
}

// RecordConfirmation records a confirmation outcome (confirmed, cancelled,
// expired).
func (m *Metrics) RecordConfirmation(outcome string) {
	m.ConfirmationsTotal.WithLabelValues(outcome).Inc()
}

// RecordValidationFailure records a value validation failure for a model.
func (m *Metrics) RecordValidationFailure(model string) {
	m.ValidationFailuresTotal.WithLabelValues(model).Inc()
}

// RecordReadOnlyRejection records a write rejected by read-only mode.
func (m *Metrics) RecordReadOnlyRejection() {
	m.ReadOnlyRejectionsTotal.Inc()
}

// RecordBackendRequest records a backend RPC request.
func (m *Metrics) RecordBackendRequest(model, rpcMethod, status string, duration time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(model, rpcMethod, status).Inc()
	m.BackendRequestDuration.WithLabelValues(rpcMethod).Observe(duration.Seconds())
}

// SetBackendCircuitBreakerState sets the circuit breaker state gauge.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetBackendCircuitBreakerState(state float64) {
	m.BackendCircuitBreakerState.Set(state)
}

// RecordSchemaCacheHit records a schema cache hit.
func (m *Metrics) RecordSchemaCacheHit() {
	m.SchemaCacheHitsTotal.Inc()
}

// RecordSchemaCacheMiss records a schema cache miss.
func (m *Metrics) RecordSchemaCacheMiss() {
	m.SchemaCacheMissesTotal.Inc()
}

// SetSchemaCacheEntries sets the number of cached schemas.
func (m *Metrics) SetSchemaCacheEntries(count float64) {
	m.SchemaCacheEntries.Set(count)
}

// RecordSchemaReload records a schema load attempt.
func (m *Metrics) RecordSchemaReload(status string) {
	m.SchemaReloadsTotal.WithLabelValues(status).Inc()
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
