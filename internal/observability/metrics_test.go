package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	return m, reg
}

func TestInitMetrics_registersAllMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	if m == nil {
		t.Fatal("InitMetrics returned nil")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"odoochat_http_requests_total",
		"odoochat_http_request_duration_seconds",
		"odoochat_http_request_size_bytes",
		"odoochat_http_response_size_bytes",
		"odoochat_intent_classifications_total",
		"odoochat_intent_classifier_duration_seconds",
		"odoochat_intent_parse_failures_total",
		"odoochat_actions_total",
		"odoochat_confirmations_total",
		"odoochat_validation_failures_total",
		"odoochat_read_only_rejections_total",
		"odoochat_backend_requests_total",
		"odoochat_backend_request_duration_seconds",
		"odoochat_backend_circuit_breaker_state",
		"odoochat_schema_cache_hits_total",
		"odoochat_schema_cache_misses_total",
		"odoochat_schema_cache_entries",
		"odoochat_schema_reloads_total",
	}
	// Counters with no observations yet won't appear in Gather output;
	// record one sample of each first.
	m.RecordHTTPRequest(http.MethodGet, "/api/chat", 200, time.Millisecond, 10, 20)
	m.RecordIntentClassification("QUERY", time.Second)
	m.RecordIntentParseFailure()
	m.RecordAction("create", "res.partner", "success")
	m.RecordConfirmation("confirmed")
	m.RecordValidationFailure("res.partner")
	m.RecordReadOnlyRejection()
	m.RecordBackendRequest("res.partner", "search_read", "ok", time.Millisecond)
	m.SetBackendCircuitBreakerState(0)
	m.RecordSchemaCacheHit()
	m.RecordSchemaCacheMiss()
	m.SetSchemaCacheEntries(3)
	m.RecordSchemaReload("success")

	families, err = reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names = make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordHTTPRequest(http.MethodPost, "/api/chat", 200, 50*time.Millisecond, 128, 512)
	m.RecordHTTPRequest(http.MethodPost, "/api/chat", 200, 30*time.Millisecond, 64, 256)
	m.RecordHTTPRequest(http.MethodPost, "/api/chat", 422, 10*time.Millisecond, 64, 128)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/chat", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/chat", "422")); got != 1 {
		t.Errorf("422 count = %v, want 1", got)
	}
}

func TestRecordIntentClassification(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordIntentClassification("QUERY", 300*time.Millisecond)
	m.RecordIntentClassification("QUERY", 400*time.Millisecond)
	m.RecordIntentClassification("CREATE", 250*time.Millisecond)

	if got := testutil.ToFloat64(m.IntentClassificationsTotal.WithLabelValues("QUERY")); got != 2 {
		t.Errorf("QUERY count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.IntentClassificationsTotal.WithLabelValues("CREATE")); got != 1 {
		t.Errorf("CREATE count = %v, want 1", got)
	}
}

func TestRecordActionAndConfirmation(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordAction("create", "res.partner", "success")
	m.RecordAction("create", "res.partner", "failure")
	m.RecordConfirmation("confirmed")
	m.RecordConfirmation("cancelled")
	m.RecordConfirmation("cancelled")

	if got := testutil.ToFloat64(m.ActionsTotal.WithLabelValues("create", "res.partner", "success")); got != 1 {
		t.Errorf("success count = %v", got)
	}
	if got := testutil.ToFloat64(m.ConfirmationsTotal.WithLabelValues("cancelled")); got != 2 {
		t.Errorf("cancelled count = %v", got)
	}
}

func TestCircuitBreakerStateGauge(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SetBackendCircuitBreakerState(2)
	if got := testutil.ToFloat64(m.BackendCircuitBreakerState); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	m.SetBackendCircuitBreakerState(0)
	if got := testutil.ToFloat64(m.BackendCircuitBreakerState); got != 0 {
		t.Errorf("state = %v, want 0", got)
	}
}

func TestSchemaCacheMetrics(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordSchemaCacheHit()
	m.RecordSchemaCacheHit()
	m.RecordSchemaCacheMiss()
	m.SetSchemaCacheEntries(7)

	if got := testutil.ToFloat64(m.SchemaCacheHitsTotal); got != 2 {
		t.Errorf("hits = %v", got)
	}
	if got := testutil.ToFloat64(m.SchemaCacheMissesTotal); got != 1 {
		t.Errorf("misses = %v", got)
	}
	if got := testutil.ToFloat64(m.SchemaCacheEntries); got != 7 {
		t.Errorf("entries = %v", got)
	}
}

func TestMetricsMiddleware_usesRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Get("/api/models/{model}/schema", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	for _, path := range []string{"/api/models/res.partner/schema", "/api/models/sale.order/schema"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	// Both requests collapse onto the single route pattern label.
	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/models/{model}/schema", "200"))
	if got != 2 {
		t.Errorf("pattern count = %v, want 2", got)
	}
}

func TestMetricsMiddleware_capturesStatus(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/boom", "502")); got != 1 {
		t.Errorf("502 count = %v", got)
	}
}

func TestRoutePattern_fallsBackToPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/raw/path", nil)
	if got := routePattern(req); got != "/raw/path" {
		t.Errorf("routePattern = %q", got)
	}
}

func TestHandler_servesMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected default runtime metrics in output")
	}
}
