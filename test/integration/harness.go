// Package integration provides a reusable test harness for end-to-end
// testing of the chat gateway. It starts the full HTTP router over a mock
// ERP JSON-RPC backend, a scripted intent classifier, and in-memory stores.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/undergnarly/odoo-mcp-chat/internal/agent"
	"github.com/undergnarly/odoo-mcp-chat/internal/audit"
	"github.com/undergnarly/odoo-mcp-chat/internal/config"
	"github.com/undergnarly/odoo-mcp-chat/internal/discovery"
	"github.com/undergnarly/odoo-mcp-chat/internal/domfilter"
	"github.com/undergnarly/odoo-mcp-chat/internal/observability"
	"github.com/undergnarly/odoo-mcp-chat/internal/odoo"
	"github.com/undergnarly/odoo-mcp-chat/internal/schema"
	"github.com/undergnarly/odoo-mcp-chat/internal/session"
	"github.com/undergnarly/odoo-mcp-chat/internal/transport"
	"github.com/undergnarly/odoo-mcp-chat/internal/validate"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

const (
	opsAPIKey    = "integ-ops-key"
	viewerAPIKey = "integ-viewer-key"
	jwtSecret    = "integ-jwt-secret"
)

// ScriptedClassifier is an intent.Classifier whose next result tests set
// explicitly, bypassing any real language model.
type ScriptedClassifier struct {
	mu     sync.Mutex
	intent model.Intent
	err    error
}

// Returns sets the intent the classifier reports for subsequent messages.
func (c *ScriptedClassifier) Returns(in model.Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent = in
	c.err = nil
}

// Fails makes the classifier return the given error.
func (c *ScriptedClassifier) Fails(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *ScriptedClassifier) Classify(context.Context, string, []model.ChatMessage) (model.Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return model.Intent{}, c.err
	}
	return c.intent, nil
}

// TestHarness is a fully wired gateway instance over mock dependencies.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	Backend    *MockOdoo
	Classifier *ScriptedClassifier
	Sessions   *session.MemoryStore
	Audit      *audit.MemoryStore
	Schemas    *schema.Cache
}

// TestClaims are the JWT claims tests can issue tokens with.
type TestClaims struct {
	Subject  string
	Issuer   string
	ReadOnly bool
	Expired  bool
}

// GenerateToken signs an HS256 token with the harness JWT secret.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	h.t.Helper()
	issuer := claims.Issuer
	if issuer == "" {
		issuer = "odoo-chat-test"
	}
	exp := time.Now().Add(time.Hour)
	if claims.Expired {
		exp = time.Now().Add(-time.Hour)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       claims.Subject,
		"iss":       issuer,
		"exp":       exp.Unix(),
		"read_only": claims.ReadOnly,
	}).SignedString([]byte(jwtSecret))
	if err != nil {
		h.t.Fatalf("sign token: %v", err)
	}
	return token
}

type harnessConfig struct {
	readOnlyMode bool
	breaker      *odoo.Breaker
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

// WithReadOnlyMode starts the gateway with the global write block enabled.
func WithReadOnlyMode() HarnessOption {
	return func(c *harnessConfig) { c.readOnlyMode = true }
}

// WithBreaker overrides the backend circuit breaker, letting tests use a
// low failure threshold.
func WithBreaker(b *odoo.Breaker) HarnessOption {
	return func(c *harnessConfig) { c.breaker = b }
}

// NewTestHarness starts a gateway instance backed by a mock ERP server.
// Everything is cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{}
	for _, opt := range opts {
		opt(hc)
	}

	t.Setenv("INTEG_OPS_KEY", opsAPIKey)
	t.Setenv("INTEG_VIEWER_KEY", viewerAPIKey)
	t.Setenv("INTEG_JWT_SECRET", jwtSecret)

	backend := newMockOdoo(t)

	client := odoo.NewJSONRPCClient(odoo.Options{
		URL:      backend.URL(),
		Database: "integ",
		Login:    "bot@example.com",
		APIKey:   "backend-secret",
		Timeout:  5 * time.Second,
		Breaker:  hc.breaker,
	})

	cache := schema.NewCache(client, schema.Options{TTL: time.Hour})
	validator := validate.NewValidator(cache, nil)
	normalizer := domfilter.NewNormalizer(nil)
	disc := discovery.NewService(client, time.Hour, nil)
	sessions := session.NewMemoryStore()
	auditStore := audit.NewMemoryStore(1000)
	classifier := &ScriptedClassifier{}

	ag := agent.New(agent.Options{
		Client:     client,
		Schemas:    cache,
		Validator:  validator,
		Filters:    normalizer,
		Classifier: classifier,
		Sessions:   sessions,
		Audit:      auditStore,
		Discovery:  disc,
		ReadOnly:   hc.readOnlyMode,
		PendingTTL: time.Minute,
	})

	cfg := config.Defaults()
	cfg.ReadOnlyMode = hc.readOnlyMode
	cfg.Observability.Metrics.Enabled = false
	cfg.Server.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Auth = config.AuthConfig{
		APIKeys: []config.APIKeyConfig{
			{ID: "ops", KeyEnv: "INTEG_OPS_KEY", SubjectID: "ops-bot"},
			{ID: "viewer", KeyEnv: "INTEG_VIEWER_KEY", SubjectID: "viewer-bot", ReadOnly: true},
		},
		JWTSecretEnv: "INTEG_JWT_SECRET",
		JWTIssuer:    "odoo-chat-test",
	}

	router := transport.NewRouter(transport.Dependencies{
		Config: cfg,
		Handlers: &transport.Handlers{
			Agent:     ag,
			Schemas:   cache,
			Discovery: disc,
			Audit:     auditStore,
		},
		Authenticate: transport.NewAuthenticator(cfg.Auth).Middleware,
		Readiness: observability.ReadinessChecks{
			Backend: client,
		},
	})

	h := &TestHarness{
		t:          t,
		server:     httptest.NewServer(router),
		Backend:    backend,
		Classifier: classifier,
		Sessions:   sessions,
		Audit:      auditStore,
		Schemas:    cache,
	}
	t.Cleanup(h.server.Close)
	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string { return h.server.URL }

// OpsKey returns the read-write API key.
func (h *TestHarness) OpsKey() string { return opsAPIKey }

// ViewerKey returns the read-only API key.
func (h *TestHarness) ViewerKey() string { return viewerAPIKey }

// GET performs a GET request authenticated with the given API key.
func (h *TestHarness) GET(path, apiKey string) *http.Response {
	h.t.Helper()
	return h.doRequest(http.MethodGet, path, nil, apiKey)
}

// POST performs a POST request with a JSON body, authenticated with the
// given API key.
func (h *TestHarness) POST(path string, body any, apiKey string) *http.Response {
	h.t.Helper()
	return h.doRequest(http.MethodPost, path, body, apiKey)
}

// Chat sends one conversational message and decodes the agent response.
func (h *TestHarness) Chat(sessionID, message, apiKey string) model.AgentResponse {
	h.t.Helper()
	resp := h.POST("/api/chat", map[string]any{
		"session_id": sessionID,
		"message":    message,
	}, apiKey)
	if resp.StatusCode != http.StatusOK {
		h.t.Fatalf("POST /api/chat status = %d", resp.StatusCode)
	}
	var out model.AgentResponse
	h.ParseJSON(resp, &out)
	return out
}

// Confirm resolves a pending action and decodes the agent response.
func (h *TestHarness) Confirm(sessionID string, confirmed bool, apiKey string) model.AgentResponse {
	h.t.Helper()
	resp := h.POST("/api/confirm", map[string]any{
		"session_id": sessionID,
		"confirmed":  confirmed,
	}, apiKey)
	if resp.StatusCode != http.StatusOK {
		h.t.Fatalf("POST /api/confirm status = %d", resp.StatusCode)
	}
	var out model.AgentResponse
	h.ParseJSON(resp, &out)
	return out
}

func (h *TestHarness) doRequest(method, path string, body any, apiKey string) *http.Response {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, h.server.URL+path, reader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads and decodes the response body, then closes it.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("decode response %s: %v", data, err)
	}
}
